package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
)

type sessionsRepo struct {
	mu     sync.RWMutex
	byHash map[string]domain.Session
}

func newSessionsRepo() *sessionsRepo {
	return &sessionsRepo{byHash: make(map[string]domain.Session)}
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[s.IDHash]; exists {
		return store.ErrAlreadyExists
	}
	r.byHash[s.IDHash] = s
	return nil
}

func (r *sessionsRepo) GetSession(ctx context.Context, idHash string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byHash[idHash]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (r *sessionsRepo) TouchSession(ctx context.Context, idHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byHash[idHash]
	if !ok {
		return store.ErrNotFound
	}
	s.LastActivity = at
	r.byHash[idHash] = s
	return nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, idHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byHash, idHash)
	return nil
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, s := range r.byHash {
		if s.UserID == userID {
			delete(r.byHash, hash)
		}
	}
	return nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, s := range r.byHash {
		if s.Expired(now) {
			delete(r.byHash, hash)
		}
	}
	return nil
}
