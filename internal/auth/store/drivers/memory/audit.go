package memory

import (
	"context"
	"sync"

	"github.com/authlab/authlab/internal/auth/domain"
)

// auditRepo is append-only: entries are never mutated or deleted.
type auditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func newAuditRepo() *auditRepo {
	return &auditRepo{}
}

func (r *auditRepo) AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRepo) ListAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]domain.AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
