package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/idx"
)

// AuditService appends immutable records of authentication events. A write
// failure is logged and swallowed: auditing must never turn a successful
// login into an error.
type AuditService struct {
	Store  store.Store
	Logger *slog.Logger
}

// Success records a successful event.
func (s *AuditService) Success(ctx context.Context, action string, user domain.User, ip string) {
	s.append(ctx, domain.AuditEntry{
		ID:       idx.New().String(),
		UserID:   user.ID,
		Username: user.Username,
		Action:   action,
		Status:   domain.AuditSuccess,
		IP:       ip,
		At:       time.Now().UTC(),
	})
}

// Failure records a failed event. Username is whatever the caller attempted,
// which may not name a real account; reason stays internal to the log.
func (s *AuditService) Failure(ctx context.Context, action, username, reason, ip string) {
	s.append(ctx, domain.AuditEntry{
		ID:       idx.New().String(),
		Username: username,
		Action:   action,
		Status:   domain.AuditFailure,
		Reason:   reason,
		IP:       ip,
		At:       time.Now().UTC(),
	})
}

// Recent returns up to limit entries, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Store.Audit().ListAuditEntries(ctx, limit)
}

func (s *AuditService) append(ctx context.Context, entry domain.AuditEntry) {
	if err := s.Store.Audit().AppendAuditEntry(ctx, entry); err != nil {
		s.Logger.Error("failed to append audit entry",
			"action", entry.Action, "error", err)
	}
}
