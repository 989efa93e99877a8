package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
)

type authCodesRepo struct {
	db *sql.DB
}

func (r *authCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes
		   (id, code_hash, client_id, redirect_uri, scope, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.CodeHash, code.ClientID, code.RedirectURI, code.Scope,
		code.UserID, code.ExpiresAt, code.CreatedAt,
	)
	return mapConflict(err)
}

func (r *authCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var code domain.AuthorizationCode
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code_hash, client_id, redirect_uri, scope, user_id, expires_at, used_at, created_at
		 FROM authorization_codes WHERE code_hash = ?`, hash,
	).Scan(&code.ID, &code.CodeHash, &code.ClientID, &code.RedirectURI, &code.Scope,
		&code.UserID, &code.ExpiresAt, &usedAt, &code.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	if usedAt.Valid {
		code.UsedAt = &usedAt.Time
	}
	return code, nil
}

// MarkAuthorizationCodeUsed is a compare-and-set: the conditional UPDATE
// succeeds for exactly one caller; losers are told whether the code was
// missing or already spent.
func (r *authCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM authorization_codes WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return store.ErrAlreadyUsed
}

func (r *authCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at < ?`, now)
	return err
}

type oauthTokensRepo struct {
	db *sql.DB
}

const oauthTokenColumns = `id, access_token_hash, refresh_token_hash, client_id, scope, user_id, expires_at, created_at`

func scanOAuthToken(row *sql.Row) (domain.OAuthToken, error) {
	var t domain.OAuthToken
	err := row.Scan(&t.ID, &t.AccessTokenHash, &t.RefreshTokenHash, &t.ClientID,
		&t.Scope, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.OAuthToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *oauthTokensRepo) CreateOAuthToken(ctx context.Context, t domain.OAuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens
		   (id, access_token_hash, refresh_token_hash, client_id, scope, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccessTokenHash, t.RefreshTokenHash, t.ClientID, t.Scope, t.UserID, t.ExpiresAt, t.CreatedAt,
	)
	return mapConflict(err)
}

func (r *oauthTokensRepo) GetOAuthTokenByAccessHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE access_token_hash = ?`, hash)
	return scanOAuthToken(row)
}

func (r *oauthTokensRepo) GetOAuthTokenByRefreshHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE refresh_token_hash = ?`, hash)
	return scanOAuthToken(row)
}

func (r *oauthTokensRepo) RotateAccessToken(ctx context.Context, refreshHash, newAccessHash string, newExpiresAt time.Time) (domain.OAuthToken, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE oauth_tokens SET access_token_hash = ?, expires_at = ? WHERE refresh_token_hash = ?`,
		newAccessHash, newExpiresAt, refreshHash,
	)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.OAuthToken{}, err
	}
	if n == 0 {
		return domain.OAuthToken{}, store.ErrNotFound
	}

	return r.GetOAuthTokenByRefreshHash(ctx, refreshHash)
}

func (r *oauthTokensRepo) DeleteExpiredOAuthTokens(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE expires_at < ?`, cutoff)
	return err
}
