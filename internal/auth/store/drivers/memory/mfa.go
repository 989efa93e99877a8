package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
)

type mfaRepo struct {
	mu     sync.RWMutex
	byUser map[string]domain.MFARecord
}

func newMFARepo() *mfaRepo {
	return &mfaRepo{byUser: make(map[string]domain.MFARecord)}
}

func (r *mfaRepo) GetMFARecord(ctx context.Context, userID string) (domain.MFARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byUser[userID]
	if !ok {
		return domain.MFARecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *mfaRepo) UpsertMFARecord(ctx context.Context, rec domain.MFARecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[rec.UserID] = rec
	return nil
}

func (r *mfaRepo) EnableMFA(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byUser[userID]
	if !ok {
		return store.ErrNotFound
	}
	rec.Enabled = true
	rec.EnabledAt = &at
	r.byUser[userID] = rec
	return nil
}

func (r *mfaRepo) DeleteMFARecord(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser, userID)
	return nil
}

func (r *mfaRepo) DeletePendingMFARecords(ctx context.Context, createdBefore time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, rec := range r.byUser {
		if !rec.Enabled && rec.CreatedAt.Before(createdBefore) {
			delete(r.byUser, userID)
		}
	}
	return nil
}

// backupCodesRepo keeps two disjoint fingerprint sets per user. A code lives
// in at most one of them; consume moves it unused -> used under the lock.
type backupCodesRepo struct {
	mu     sync.RWMutex
	unused map[string]map[string]struct{} // userID -> code hashes
	used   map[string]map[string]struct{}
}

func newBackupCodesRepo() *backupCodesRepo {
	return &backupCodesRepo{
		unused: make(map[string]map[string]struct{}),
		used:   make(map[string]map[string]struct{}),
	}
}

func (r *backupCodesRepo) ReplaceBackupCodes(ctx context.Context, userID string, codeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := make(map[string]struct{}, len(codeHashes))
	for _, h := range codeHashes {
		set[h] = struct{}{}
	}
	r.unused[userID] = set
	delete(r.used, userID)
	return nil
}

func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.unused[userID]
	if !ok {
		return false, nil
	}
	if _, ok := set[codeHash]; !ok {
		return false, nil
	}

	delete(set, codeHash)
	if r.used[userID] == nil {
		r.used[userID] = make(map[string]struct{})
	}
	r.used[userID][codeHash] = struct{}{}
	return true, nil
}

func (r *backupCodesRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.unused[userID]), nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.unused, userID)
	delete(r.used, userID)
	return nil
}
