package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
)

type authCodesRepo struct {
	mu     sync.RWMutex
	byID   map[string]domain.AuthorizationCode
	byHash map[string]string // code hash -> id
}

func newAuthCodesRepo() *authCodesRepo {
	return &authCodesRepo{
		byID:   make(map[string]domain.AuthorizationCode),
		byHash: make(map[string]string),
	}
}

func (r *authCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[code.ID]; exists {
		return store.ErrAlreadyExists
	}
	r.byID[code.ID] = code
	r.byHash[code.CodeHash] = code.ID
	return nil
}

func (r *authCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHash[hash]
	if !ok {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

// MarkAuthorizationCodeUsed is the compare-and-set half of code redemption:
// the used check and the flip happen under one lock, so a second exchange
// racing on the same code observes ErrAlreadyUsed.
func (r *authCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if code.UsedAt != nil {
		return store.ErrAlreadyUsed
	}
	code.UsedAt = &at
	r.byID[id] = code
	return nil
}

func (r *authCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, code := range r.byID {
		if now.After(code.ExpiresAt) {
			delete(r.byID, id)
			delete(r.byHash, code.CodeHash)
		}
	}
	return nil
}

type oauthTokensRepo struct {
	mu        sync.RWMutex
	byID      map[string]domain.OAuthToken
	byAccess  map[string]string // access token hash -> id
	byRefresh map[string]string // refresh token hash -> id
}

func newOAuthTokensRepo() *oauthTokensRepo {
	return &oauthTokensRepo{
		byID:      make(map[string]domain.OAuthToken),
		byAccess:  make(map[string]string),
		byRefresh: make(map[string]string),
	}
}

func (r *oauthTokensRepo) CreateOAuthToken(ctx context.Context, t domain.OAuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID]; exists {
		return store.ErrAlreadyExists
	}
	r.byID[t.ID] = t
	r.byAccess[t.AccessTokenHash] = t.ID
	r.byRefresh[t.RefreshTokenHash] = t.ID
	return nil
}

func (r *oauthTokensRepo) GetOAuthTokenByAccessHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAccess[hash]
	if !ok {
		return domain.OAuthToken{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *oauthTokensRepo) GetOAuthTokenByRefreshHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRefresh[hash]
	if !ok {
		return domain.OAuthToken{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

// RotateAccessToken swaps the access token on the record in place. The old
// access fingerprint stops resolving in the same locked step that installs
// the new one.
func (r *oauthTokensRepo) RotateAccessToken(ctx context.Context, refreshHash, newAccessHash string, newExpiresAt time.Time) (domain.OAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byRefresh[refreshHash]
	if !ok {
		return domain.OAuthToken{}, store.ErrNotFound
	}

	t := r.byID[id]
	delete(r.byAccess, t.AccessTokenHash)
	t.AccessTokenHash = newAccessHash
	t.ExpiresAt = newExpiresAt
	r.byID[id] = t
	r.byAccess[newAccessHash] = id
	return t, nil
}

func (r *oauthTokensRepo) DeleteExpiredOAuthTokens(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.byID {
		if cutoff.After(t.ExpiresAt) {
			delete(r.byID, id)
			delete(r.byAccess, t.AccessTokenHash)
			delete(r.byRefresh, t.RefreshTokenHash)
		}
	}
	return nil
}
