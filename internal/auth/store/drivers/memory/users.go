package memory

import (
	"context"
	"sync"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
)

type usersRepo struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byUsername map[string]string // username -> id
	byEmail    map[string]string // email -> id
}

func newUsersRepo() *usersRepo {
	return &usersRepo{
		byID:       make(map[string]domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[u.ID]; exists {
		return store.ErrAlreadyExists
	}
	if _, exists := r.byUsername[u.Username]; exists {
		return store.ErrAlreadyExists
	}
	if _, exists := r.byEmail[u.Email]; exists {
		return store.ErrAlreadyExists
	}

	r.byID[u.ID] = u
	r.byUsername[u.Username] = u.ID
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	r.byID[userID] = u
	return nil
}

func (r *usersRepo) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.MFAEnabled = enabled
	r.byID[userID] = u
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.byID, userID)
	delete(r.byUsername, u.Username)
	delete(r.byEmail, u.Email)
	return nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID) == 0, nil
}
