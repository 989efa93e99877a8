package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store/drivers/memory"
	"github.com/authlab/authlab/pkg/jwtx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *memory.Store
	users    *UserService
	sessions *SessionService
	tokens   *TokenService
	mfa      *MFAService
	oauth    *OAuthService
	audit    *AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.NewStore()

	signer, err := jwtx.NewSigner([]byte("0123456789abcdef0123456789abcdef"), "authlab", "authlab-clients")
	require.NoError(t, err)

	users := &UserService{Store: st, BcryptCost: 4} // low cost keeps tests fast
	return &fixture{
		store:    st,
		users:    users,
		sessions: &SessionService{Store: st, TTL: time.Hour},
		tokens: &TokenService{
			Signer:     signer,
			Users:      users,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		mfa: &MFAService{Store: st, Issuer: "AuthLab", Skew: 2},
		oauth: &OAuthService{
			Store: st,
			Users: users,
			Client: OAuthClient{
				ID:          "demo-client",
				Secret:      "demo-secret",
				RedirectURI: "http://localhost:3000/callback",
			},
		},
		audit: &AuditService{Store: st, Logger: discardLogger()},
	}
}

func (f *fixture) mustCreateUser(t *testing.T, username, password string) domain.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), username, username+"@example.com", password, domain.RoleUser)
	require.NoError(t, err)
	return user
}

func TestUserServiceAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	created := f.mustCreateUser(t, "alice", "correct horse")

	t.Run("valid credentials", func(t *testing.T) {
		user, err := f.users.Authenticate(ctx, "alice", "correct horse")
		require.NoError(t, err)
		require.Equal(t, created.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.users.Authenticate(ctx, "alice", "battery staple")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		_, err := f.users.Authenticate(ctx, "nobody", "correct horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		_, err := f.users.CreateUser(ctx, "alice", "alice2@example.com", "pw", domain.RoleUser)
		require.ErrorIs(t, err, ErrUserExists)
	})
}

func TestUserServiceAuthenticateMFAGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "bob", "hunter2hunter2")

	require.NoError(t, f.store.Users().SetMFAEnabled(ctx, user.ID, true))

	got, err := f.users.Authenticate(ctx, "bob", "hunter2hunter2")
	require.ErrorIs(t, err, ErrMFARequired)
	require.Equal(t, user.ID, got.ID, "caller needs the user to drive the second factor")

	// A wrong password on an MFA account must not reveal the MFA state.
	_, err = f.users.Authenticate(ctx, "bob", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "carol", "pw12345678")

	id, session, err := f.sessions.Create(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, id, 43, "256-bit identifier, base64url")
	require.NotEqual(t, id, session.IDHash, "store must never hold the raw identifier")

	t.Run("validate resolves the user and touches activity", func(t *testing.T) {
		got, gotUser, err := f.sessions.Validate(ctx, id)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.UserID)
		require.Equal(t, user.ID, gotUser.ID)
		require.False(t, got.LastActivity.Before(session.LastActivity))
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, _, err := f.sessions.Validate(ctx, "not-a-session")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		require.NoError(t, f.sessions.Destroy(ctx, id))
		require.NoError(t, f.sessions.Destroy(ctx, id))
		_, _, err := f.sessions.Validate(ctx, id)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.sessions.TTL = -time.Minute // already expired at creation
	user := f.mustCreateUser(t, "dave", "pw12345678")

	id, _, err := f.sessions.Create(ctx, user.ID, "")
	require.NoError(t, err)

	_, _, err = f.sessions.Validate(ctx, id)
	require.ErrorIs(t, err, ErrSessionExpired)

	// The expired session is purged, not just rejected.
	_, _, err = f.sessions.Validate(ctx, id)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionFixationDefense(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "erin", "pw12345678")

	planted, _, err := f.sessions.Create(ctx, user.ID, "")
	require.NoError(t, err)

	// Logging in with a pre-existing identifier must retire it.
	fresh, _, err := f.sessions.Create(ctx, user.ID, planted)
	require.NoError(t, err)
	require.NotEqual(t, planted, fresh)

	_, _, err = f.sessions.Validate(ctx, planted)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = f.sessions.Validate(ctx, fresh)
	require.NoError(t, err)
}

func TestSessionRegenerate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "frank", "pw12345678")

	oldID, _, err := f.sessions.Create(ctx, user.ID, "")
	require.NoError(t, err)

	newID, session, err := f.sessions.Regenerate(ctx, oldID)
	require.NoError(t, err)
	require.NotEqual(t, oldID, newID)
	require.Equal(t, user.ID, session.UserID)

	_, _, err = f.sessions.Validate(ctx, oldID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = f.sessions.Validate(ctx, newID)
	require.NoError(t, err)
}

func TestSessionDeletedUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "grace", "pw12345678")

	id, _, err := f.sessions.Create(ctx, user.ID, "")
	require.NoError(t, err)

	require.NoError(t, f.store.Users().DeleteUser(ctx, user.ID))

	_, _, err = f.sessions.Validate(ctx, id)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTokenServicePair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	user := f.mustCreateUser(t, "heidi", "pw12345678")

	pair, err := f.tokens.IssuePair(user)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(900), pair.ExpiresIn)

	t.Run("access token verifies", func(t *testing.T) {
		claims, err := f.tokens.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, user.Username, claims.Username)
		require.Equal(t, string(user.Role), claims.Role)
	})

	t.Run("refresh token rejected as access token", func(t *testing.T) {
		_, err := f.tokens.VerifyAccess(pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh issues a new pair", func(t *testing.T) {
		fresh, err := f.tokens.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, fresh.AccessToken)

		_, err = f.tokens.VerifyAccess(fresh.AccessToken)
		require.NoError(t, err)
	})

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		_, err := f.tokens.Refresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh for a deleted user fails", func(t *testing.T) {
		require.NoError(t, f.store.Users().DeleteUser(ctx, user.ID))
		_, err := f.tokens.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenServiceErrorTaxonomy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.mustCreateUser(t, "judy", "pw12345678")

	// Failures satisfy ErrInvalidToken for handlers AND the precise jwtx
	// sentinel for audit records and the refresh-vs-relogin decision.

	t.Run("expired", func(t *testing.T) {
		f.tokens.AccessTTL = -time.Hour // beyond verification leeway
		pair, err := f.tokens.IssuePair(user)
		require.NoError(t, err)
		f.tokens.AccessTTL = 15 * time.Minute

		_, err = f.tokens.VerifyAccess(pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		pair, err := f.tokens.IssuePair(user)
		require.NoError(t, err)

		parts := strings.Split(pair.AccessToken, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)

		_, err = f.tokens.VerifyAccess(tampered)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidSignature)
	})

	t.Run("wrong token type", func(t *testing.T) {
		pair, err := f.tokens.IssuePair(user)
		require.NoError(t, err)

		_, err = f.tokens.VerifyAccess(pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrWrongType)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := f.tokens.VerifyAccess("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestTokenServiceDecode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.mustCreateUser(t, "ivan", "pw12345678")

	pair, err := f.tokens.IssuePair(user)
	require.NoError(t, err)

	claims, err := f.tokens.Decode(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)

	_, err = f.tokens.Decode("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}
