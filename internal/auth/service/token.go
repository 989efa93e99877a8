package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/pkg/jwtx"
)

// TokenService issues and verifies the stateless JWT credentials. Unlike
// sessions there is no server-side record: everything the verifier needs is
// inside the signed token.
type TokenService struct {
	Signer     *jwtx.Signer
	Users      *UserService
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssuePair signs a new access/refresh token pair for the user.
func (s *TokenService) IssuePair(user domain.User) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.Signer.Sign(s.Signer.NewAccessClaims(
		user.ID, user.Email, user.Username, string(user.Role), s.AccessTTL, now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Signer.Sign(s.Signer.NewRefreshClaims(user.ID, s.RefreshTTL, now))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// VerifyAccess checks an access token end to end: signature, expiry,
// issuer, audience, and token type. A refresh token presented here fails.
// The returned error carries both ErrInvalidToken and the underlying jwtx
// sentinel, so the gateway can audit whether the token was expired,
// tampered, malformed, or the wrong type while callers keep matching on
// ErrInvalidToken.
func (s *TokenService) VerifyAccess(raw string) (jwtx.Claims, error) {
	claims, err := s.Signer.Verify(raw, jwtx.TypeAccess)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user record is
// re-read so revoked accounts and role changes take effect at refresh time.
func (s *TokenService) Refresh(ctx context.Context, rawRefresh string) (domain.TokenPair, error) {
	claims, err := s.Signer.Verify(rawRefresh, jwtx.TypeRefresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user, err := s.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	return s.IssuePair(user)
}

// Decode parses a token without verifying it, for display and teaching
// purposes only. The result must never be trusted for authentication.
func (s *TokenService) Decode(raw string) (jwtx.Claims, error) {
	claims, err := jwtx.DecodeUnverified(raw)
	if err != nil {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}
