package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/cryptox"
)

// SessionService manages server-side sessions. Session identifiers are
// 256-bit random strings handed to the client in a cookie; the store only
// ever sees their SHA-256 fingerprints, so a leaked database cannot be
// replayed as live sessions.
type SessionService struct {
	Store store.Store
	TTL   time.Duration
}

// Create issues a fresh session for the user and returns the opaque
// identifier to set as the cookie value. When priorID is non-empty the
// session it names is destroyed first, so an identifier planted before
// login never survives authentication.
func (s *SessionService) Create(ctx context.Context, userID string, priorID string) (string, domain.Session, error) {
	if priorID != "" {
		if err := s.Store.Sessions().DeleteSession(ctx, cryptox.FingerprintToken(priorID)); err != nil {
			return "", domain.Session{}, fmt.Errorf("failed to discard prior session: %w", err)
		}
	}

	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now().UTC()
	session := domain.Session{
		IDHash:       cryptox.FingerprintToken(id),
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.TTL),
		LastActivity: now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return "", domain.Session{}, fmt.Errorf("failed to store session: %w", err)
	}

	return id, session, nil
}

// Validate resolves a session identifier to its user. Expired sessions are
// purged on sight, and a session whose user no longer exists is treated as
// missing. Valid lookups refresh the last-activity timestamp.
func (s *SessionService) Validate(ctx context.Context, id string) (domain.Session, domain.User, error) {
	idHash := cryptox.FingerprintToken(id)

	session, err := s.Store.Sessions().GetSession(ctx, idHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, domain.User{}, ErrSessionNotFound
		}
		return domain.Session{}, domain.User{}, err
	}

	now := time.Now().UTC()
	if session.Expired(now) {
		_ = s.Store.Sessions().DeleteSession(ctx, idHash)
		return domain.Session{}, domain.User{}, ErrSessionExpired
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.Store.Sessions().DeleteSession(ctx, idHash)
			return domain.Session{}, domain.User{}, ErrSessionNotFound
		}
		return domain.Session{}, domain.User{}, err
	}

	if err := s.Store.Sessions().TouchSession(ctx, idHash, now); err != nil {
		return domain.Session{}, domain.User{}, err
	}
	session.LastActivity = now

	return session, user, nil
}

// Destroy removes a session. Destroying an unknown identifier succeeds, so
// logout is always safe to repeat.
func (s *SessionService) Destroy(ctx context.Context, id string) error {
	return s.Store.Sessions().DeleteSession(ctx, cryptox.FingerprintToken(id))
}

// DestroyAllForUser removes every session belonging to a user. Used when a
// password changes or MFA state flips.
func (s *SessionService) DestroyAllForUser(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeleteUserSessions(ctx, userID)
}

// Regenerate swaps the identifier under an existing session: the old one is
// validated, destroyed, and a new session created for the same user. Callers
// invoke this at every privilege boundary.
func (s *SessionService) Regenerate(ctx context.Context, id string) (string, domain.Session, error) {
	session, _, err := s.Validate(ctx, id)
	if err != nil {
		return "", domain.Session{}, err
	}

	return s.Create(ctx, session.UserID, id)
}
