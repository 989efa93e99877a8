package sqlite

import (
	"context"
	"database/sql"

	"github.com/authlab/authlab/internal/auth/domain"
)

type auditRepo struct {
	db *sql.DB
}

func (r *auditRepo) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, username, action, status, reason, ip, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Username, entry.Action, entry.Status,
		entry.Reason, entry.IP, entry.At,
	)
	return err
}

// ListAuditEntries returns the newest entries first. Entry IDs are
// monotonic ULIDs, so ordering by id is ordering by time of record.
func (r *auditRepo) ListAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, username, action, status, reason, ip, at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.Status,
			&e.Reason, &e.IP, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
