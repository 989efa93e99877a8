package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
)

type sessionsRepo struct {
	db *sql.DB
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id_hash, user_id, created_at, expires_at, last_activity)
		 VALUES (?, ?, ?, ?, ?)`,
		s.IDHash, s.UserID, s.CreatedAt, s.ExpiresAt, s.LastActivity,
	)
	return mapConflict(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, idHash string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT id_hash, user_id, created_at, expires_at, last_activity FROM sessions WHERE id_hash = ?`,
		idHash,
	).Scan(&s.IDHash, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) TouchSession(ctx context.Context, idHash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE id_hash = ?`, at, idHash)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, idHash string) error {
	// Idempotent on purpose: logout of an unknown session is not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id_hash = ?`, idHash)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	return err
}
