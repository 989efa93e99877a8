package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
)

type mfaRepo struct {
	db *sql.DB
}

func (r *mfaRepo) GetMFARecord(ctx context.Context, userID string) (domain.MFARecord, error) {
	var rec domain.MFARecord
	var enabledAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, secret, enabled, created_at, enabled_at FROM mfa_records WHERE user_id = ?`,
		userID,
	).Scan(&rec.UserID, &rec.Secret, &rec.Enabled, &rec.CreatedAt, &enabledAt)
	if err != nil {
		return domain.MFARecord{}, mapNotFound(err)
	}
	if enabledAt.Valid {
		rec.EnabledAt = &enabledAt.Time
	}
	return rec, nil
}

func (r *mfaRepo) UpsertMFARecord(ctx context.Context, rec domain.MFARecord) error {
	var enabledAt any
	if rec.EnabledAt != nil {
		enabledAt = *rec.EnabledAt
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mfa_records (user_id, secret, enabled, created_at, enabled_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   secret = excluded.secret,
		   enabled = excluded.enabled,
		   created_at = excluded.created_at,
		   enabled_at = excluded.enabled_at`,
		rec.UserID, rec.Secret, rec.Enabled, rec.CreatedAt, enabledAt,
	)
	return err
}

func (r *mfaRepo) EnableMFA(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mfa_records SET enabled = 1, enabled_at = ? WHERE user_id = ?`, at, userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *mfaRepo) DeleteMFARecord(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_records WHERE user_id = ?`, userID)
	return err
}

func (r *mfaRepo) DeletePendingMFARecords(ctx context.Context, createdBefore time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_records WHERE enabled = 0 AND created_at < ?`, createdBefore)
	return err
}

type backupCodesRepo struct {
	db *sql.DB
}

func (r *backupCodesRepo) ReplaceBackupCodes(ctx context.Context, userID string, codeHashes []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, hash := range codeHashes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backup_codes (user_id, code_hash) VALUES (?, ?)`, userID, hash); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ConsumeBackupCode relies on the conditional UPDATE being atomic: the row
// flips from unused to used at most once regardless of concurrent callers.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE backup_codes SET used_at = ? WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		time.Now().UTC(), userID, codeHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *backupCodesRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND used_at IS NULL`, userID,
	).Scan(&count)
	return count, err
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}
