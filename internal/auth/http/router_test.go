package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/internal/auth/store/drivers/memory"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/jwtx"
)

const (
	testClientID     = "demo-client"
	testClientSecret = "demo-secret"
	testRedirectURI  = "http://localhost:3000/callback"
)

// generous limits keep rate limiting from interfering with test traffic
var testLimit = httpx.RateLimitConfig{
	RequestsPerWindow: 10000,
	Window:            time.Minute,
	Burst:             10000,
}

func newTestServer(t *testing.T) (*httptest.Server, *service.UserService) {
	t.Helper()

	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := jwtx.NewSigner([]byte("0123456789abcdef0123456789abcdef"), "authlab", "authlab-clients")
	require.NoError(t, err)

	users := &service.UserService{Store: st, BcryptCost: 4}
	sessions := &service.SessionService{Store: st, TTL: time.Hour}
	tokens := &service.TokenService{
		Signer:     signer,
		Users:      users,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	mfa := &service.MFAService{Store: st, Issuer: "AuthLab", Skew: 2}
	oauth := &service.OAuthService{
		Store: st,
		Users: users,
		Client: service.OAuthClient{
			ID:          testClientID,
			Secret:      testClientSecret,
			RedirectURI: testRedirectURI,
		},
	}
	audit := &service.AuditService{Store: st, Logger: logger}
	gateway := &service.Gateway{
		Strategies: []service.AuthStrategy{
			&service.SessionStrategy{Sessions: sessions},
			&service.BearerStrategy{Tokens: tokens},
		},
		Audit:  audit,
		Logger: logger,
	}

	router := NewRouter(st, logger)
	router.SessionTTL = time.Hour
	router.StrictLimit = testLimit
	router.ModerateLimit = testLimit
	router.Gateway = gateway
	router.UserService = users
	router.Sessions = sessions
	router.Tokens = tokens
	router.MFAService = mfa
	router.OAuthService = oauth
	router.Audit = audit
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	_, err = users.CreateUser(context.Background(), "admin", "admin@example.com", "admin123", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = users.CreateUser(context.Background(), "user", "user@example.com", "user123", domain.RoleUser)
	require.NoError(t, err)

	return srv, users
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == service.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func login(t *testing.T, srv *httptest.Server, username, password string) *http.Cookie {
	t.Helper()
	resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/login", loginRequest{
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	resp.Body.Close()
	return cookie
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/login", loginRequest{
			Username: "admin",
			Password: "admin123",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cookie := sessionCookie(t, resp)
		require.NotEmpty(t, cookie.Value)
		require.True(t, cookie.HttpOnly)
		require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		require.Equal(t, "/", cookie.Path)
		require.Equal(t, 3600, cookie.MaxAge)

		body := decodeBody[loginResponse](t, resp)
		require.Equal(t, "admin", body.Username)
		require.Equal(t, "admin", body.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/login", loginRequest{
			Username: "admin",
			Password: "wrong",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown user gets the same response", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/login", loginRequest{
			Username: "ghost",
			Password: "whatever",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		require.Equal(t, "invalid_credentials", body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/login", loginRequest{Username: "admin"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMeAndLogout(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	cookie := login(t, srv, "user", "user123")

	t.Run("me resolves the session principal", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
		req.AddCookie(cookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[meResponse](t, resp)
		require.Equal(t, "session", body.Principal.Method)
		require.Equal(t, "user", body.Username)
	})

	t.Run("me without credentials", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/v1/auth/me")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/logout", nil)
		req.AddCookie(cookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
		req.AddCookie(cookie)
		resp, err = srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		resp, err := srv.Client().Post(srv.URL+"/v1/auth/logout", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSessionRegenerateEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	cookie := login(t, srv, "user", "user123")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/session/regenerate", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fresh := sessionCookie(t, resp)
	resp.Body.Close()
	require.NotEqual(t, cookie.Value, fresh.Value)

	// Old identifier is dead, new one works.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
	req.AddCookie(cookie)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
	req.AddCookie(fresh)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJWTEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/token", loginRequest{
		Username: "user",
		Password: "user123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decodeBody[domain.TokenPair](t, resp)
	require.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	t.Run("bearer token authenticates me", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[meResponse](t, resp)
		require.Equal(t, "jwt", body.Principal.Method)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		parts := strings.Split(pair.AccessToken, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+tampered)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/token/refresh", refreshRequest{
			RefreshToken: pair.RefreshToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		fresh := decodeBody[domain.TokenPair](t, resp)
		require.NotEmpty(t, fresh.AccessToken)
	})

	t.Run("refresh with access token fails", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/token/refresh", refreshRequest{
			RefreshToken: pair.AccessToken,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("decode", func(t *testing.T) {
		resp := postJSON(t, srv.Client(), srv.URL+"/v1/auth/token/decode", decodeRequest{
			Token: pair.AccessToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[decodeResponse](t, resp)
		require.Equal(t, "access", body.Type)
		require.NotEmpty(t, body.Subject)
	})
}

func TestMFAEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	cookie := login(t, srv, "user", "user123")

	do := func(t *testing.T, method, path string, body any) *http.Response {
		t.Helper()
		var reader io.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(buf)
		}
		req, err := http.NewRequest(method, srv.URL+path, reader)
		require.NoError(t, err)
		req.AddCookie(cookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := do(t, http.MethodPost, "/v1/mfa/setup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	setup := decodeBody[domain.MFASetup](t, resp)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
	require.Len(t, setup.BackupCodes, 10)

	t.Run("setup requires authentication", func(t *testing.T) {
		resp, err := srv.Client().Post(srv.URL+"/v1/mfa/setup", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("activation rejects a bad code", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/v1/mfa/activate", mfaCodeRequest{Code: "000000"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("remaining backup codes", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/v1/mfa/backup-codes", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[map[string]int](t, resp)
		require.Equal(t, 10, body["remaining"])
	})
}

func TestMFAStateChangeRotatesSessions(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	current := login(t, srv, "user", "user123")
	other := login(t, srv, "user", "user123")

	do := func(t *testing.T, cookie *http.Cookie, path string, body any) *http.Response {
		t.Helper()
		var reader io.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(buf)
		}
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, reader)
		require.NoError(t, err)
		req.AddCookie(cookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		return resp
	}

	meStatus := func(t *testing.T, cookie *http.Cookie) int {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/auth/me", nil)
		require.NoError(t, err)
		req.AddCookie(cookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	liveCode := func(t *testing.T, secret string) string {
		t.Helper()
		code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
			Period:    30,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		require.NoError(t, err)
		return code
	}

	resp := do(t, current, "/v1/mfa/setup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	setup := decodeBody[domain.MFASetup](t, resp)

	resp = do(t, current, "/v1/mfa/activate", mfaCodeRequest{Code: liveCode(t, setup.Secret)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := sessionCookie(t, resp)
	resp.Body.Close()
	require.NotEqual(t, current.Value, rotated.Value)

	require.Equal(t, http.StatusUnauthorized, meStatus(t, current), "the session that activated mfa is retired")
	require.Equal(t, http.StatusUnauthorized, meStatus(t, other), "concurrent sessions are revoked")
	require.Equal(t, http.StatusOK, meStatus(t, rotated))

	t.Run("disable rotates again", func(t *testing.T) {
		resp := do(t, rotated, "/v1/mfa/disable", mfaCodeRequest{Code: liveCode(t, setup.Secret)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		final := sessionCookie(t, resp)
		resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, meStatus(t, rotated))
		require.Equal(t, http.StatusOK, meStatus(t, final))
	})
}

func TestOAuthFlow(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	cookie := login(t, srv, "user", "user123")

	// The test client must not follow the authorize redirect.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	authorize := func(t *testing.T) string {
		t.Helper()
		q := url.Values{
			"response_type": {"code"},
			"client_id":     {testClientID},
			"redirect_uri":  {testRedirectURI},
			"scope":         {"profile"},
			"state":         {"xyzzy"},
		}
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/oauth2/authorize?"+q.Encode(), nil)
		req.AddCookie(cookie)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "xyzzy", loc.Query().Get("state"))
		code := loc.Query().Get("code")
		require.NotEmpty(t, code)
		return code
	}

	exchange := func(t *testing.T, code string) (*http.Response, domain.TokenPair) {
		t.Helper()
		form := url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"client_id":     {testClientID},
			"client_secret": {testClientSecret},
			"redirect_uri":  {testRedirectURI},
		}
		resp, err := srv.Client().Post(srv.URL+"/v1/oauth2/token",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		if resp.StatusCode != http.StatusOK {
			return resp, domain.TokenPair{}
		}
		return resp, decodeBody[domain.TokenPair](t, resp)
	}

	t.Run("full authorization code flow", func(t *testing.T) {
		code := authorize(t)
		resp, pair := exchange(t, code)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, pair.AccessToken)

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/oauth2/userinfo", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		infoResp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, infoResp.StatusCode)

		info := decodeBody[domain.UserInfo](t, infoResp)
		require.Equal(t, "user@example.com", info.Email)
		require.Equal(t, []string{"user"}, info.Roles)
	})

	t.Run("authorization code is single use", func(t *testing.T) {
		code := authorize(t)
		resp, _ := exchange(t, code)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = exchange(t, code)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody[OAuth2Error](t, resp)
		require.Equal(t, "invalid_grant", body.Code)
	})

	t.Run("authorize requires a scope", func(t *testing.T) {
		q := url.Values{
			"response_type": {"code"},
			"client_id":     {testClientID},
			"redirect_uri":  {testRedirectURI},
			"scope":         {"   "},
		}
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/oauth2/authorize?"+q.Encode(), nil)
		req.AddCookie(cookie)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody[OAuth2Error](t, resp)
		require.Equal(t, "invalid_request", body.Code)
	})

	t.Run("authorize requires authentication", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/v1/oauth2/authorize?response_type=code&client_id=" + testClientID)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong client secret", func(t *testing.T) {
		code := authorize(t)
		form := url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"client_id":     {testClientID},
			"client_secret": {"nope"},
			"redirect_uri":  {testRedirectURI},
		}
		resp, err := srv.Client().Post(srv.URL+"/v1/oauth2/token",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh grant rotates the access token", func(t *testing.T) {
		code := authorize(t)
		resp, pair := exchange(t, code)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		form := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {pair.RefreshToken},
			"client_id":     {testClientID},
			"client_secret": {testClientSecret},
		}
		refreshResp, err := srv.Client().Post(srv.URL+"/v1/oauth2/token",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, refreshResp.StatusCode)
		fresh := decodeBody[domain.TokenPair](t, refreshResp)
		require.NotEqual(t, pair.AccessToken, fresh.AccessToken)

		// The replaced access token no longer resolves.
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/oauth2/userinfo", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		infoResp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer infoResp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, infoResp.StatusCode)
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		form := url.Values{"grant_type": {"password"}}
		resp, err := srv.Client().Post(srv.URL+"/v1/oauth2/token",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody[OAuth2Error](t, resp)
		require.Equal(t, "unsupported_grant_type", body.Code)
	})
}

func TestAuditEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	adminCookie := login(t, srv, "admin", "admin123")
	userCookie := login(t, srv, "user", "user123")

	t.Run("admin sees the feed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/audit", nil)
		req.AddCookie(adminCookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[map[string][]auditEntryResponse](t, resp)
		require.NotEmpty(t, body["entries"])
		// Both logins above are on the feed.
		actions := map[string]bool{}
		for _, e := range body["entries"] {
			actions[e.Action] = true
		}
		require.True(t, actions[domain.AuditLogin])
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/audit", nil)
		req.AddCookie(userCookie)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiting(t *testing.T) {
	t.Parallel()

	// A separate server keeps the production strict limit in place.
	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer, err := jwtx.NewSigner([]byte("0123456789abcdef0123456789abcdef"), "authlab", "authlab-clients")
	require.NoError(t, err)

	users := &service.UserService{Store: st, BcryptCost: 4}
	sessions := &service.SessionService{Store: st, TTL: time.Hour}
	audit := &service.AuditService{Store: st, Logger: logger}
	gateway := &service.Gateway{
		Strategies: []service.AuthStrategy{&service.SessionStrategy{Sessions: sessions}},
		Audit:      audit,
		Logger:     logger,
	}

	router := NewRouter(st, logger)
	router.SessionTTL = time.Hour
	router.Gateway = gateway
	router.UserService = users
	router.Sessions = sessions
	router.Tokens = &service.TokenService{Signer: signer, Users: users, AccessTTL: time.Minute, RefreshTTL: time.Hour}
	router.MFAService = &service.MFAService{Store: st, Issuer: "AuthLab", Skew: 2}
	router.OAuthService = &service.OAuthService{Store: st, Users: users}
	router.Audit = audit
	router.ApplyRoutes()

	limited := httptest.NewServer(router)
	t.Cleanup(limited.Close)

	var got429 bool
	for range 10 {
		resp := postJSON(t, limited.Client(), limited.URL+"/v1/auth/login", loginRequest{
			Username: "ghost",
			Password: "guess",
		})
		if resp.StatusCode == http.StatusTooManyRequests {
			require.NotEmpty(t, resp.Header.Get("Retry-After"))
			got429 = true
			resp.Body.Close()
			break
		}
		resp.Body.Close()
	}
	require.True(t, got429, "strict limit lets at most 5 attempts through")
}
