// Package http wires the authentication engine's services to their HTTP
// surface: session login, JWT issuance, MFA management, the OAuth 2.0
// endpoints, and the audit feed.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger    *slog.Logger
	store     store.Store
	startTime time.Time

	// SecureCookies marks session cookies Secure. Off in local development
	// where the app serves plain HTTP.
	SecureCookies bool

	// SessionTTL drives the session cookie Max-Age.
	SessionTTL time.Duration

	// Limits for credential-guessing and general API endpoints. Tests
	// raise these to keep rate limiting out of the way.
	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig

	Gateway      *service.Gateway
	UserService  *service.UserService
	Sessions     *service.SessionService
	Tokens       *service.TokenService
	MFAService   *service.MFAService
	OAuthService *service.OAuthService
	Audit        *service.AuditService
}

func NewRouter(st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		logger:        logger,
		store:         st,
		startTime:     time.Now(),
		StrictLimit:   httpx.StrictLimit,
		ModerateLimit: httpx.ModerateLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerTokens()
	r.registerMFA()
	r.registerOAuth2()
	r.registerAudit()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{
		Users:         r.UserService,
		Sessions:      r.Sessions,
		MFA:           r.MFAService,
		Audit:         r.Audit,
		SecureCookies: r.SecureCookies,
		SessionTTL:    r.SessionTTL,
	}

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout))
	r.Mux.Handle("POST /v1/auth/session/regenerate",
		httpx.Chain(http.HandlerFunc(h.HandleRegenerate),
			httpx.RateLimitByIP(r.ModerateLimit),
		),
	)

	me := &MeHandler{Users: r.UserService}
	r.Mux.Handle("GET /v1/auth/me", r.Gateway.Middleware(me))
}

func (r *Router) registerTokens() {
	h := &TokenHandler{
		Users:  r.UserService,
		Tokens: r.Tokens,
		MFA:    r.MFAService,
		Audit:  r.Audit,
	}

	r.Mux.Handle("POST /v1/auth/token",
		httpx.Chain(http.HandlerFunc(h.HandleIssue),
			httpx.RateLimitByIP(r.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/token/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/token/decode", http.HandlerFunc(h.HandleDecode))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		Users:         r.UserService,
		MFA:           r.MFAService,
		Audit:         r.Audit,
		Sessions:      r.Sessions,
		SecureCookies: r.SecureCookies,
		SessionTTL:    r.SessionTTL,
	}

	// MFA management requires an authenticated principal; code submission
	// is additionally rate limited to slow guessing.
	r.Mux.Handle("POST /v1/mfa/setup", r.Gateway.Middleware(http.HandlerFunc(h.HandleSetup)))
	r.Mux.Handle("POST /v1/mfa/activate",
		r.Gateway.Middleware(httpx.Chain(http.HandlerFunc(h.HandleActivate),
			httpx.RateLimitByIP(r.StrictLimit),
		)),
	)
	r.Mux.Handle("POST /v1/mfa/disable",
		r.Gateway.Middleware(httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.RateLimitByIP(r.StrictLimit),
		)),
	)
	r.Mux.Handle("GET /v1/mfa/backup-codes", r.Gateway.Middleware(http.HandlerFunc(h.HandleBackupCodesRemaining)))
}

func (r *Router) registerOAuth2() {
	authorize := &AuthorizeHandler{
		Gateway: r.Gateway,
		OAuth:   r.OAuthService,
		Audit:   r.Audit,
	}
	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorize.HandleGet),
			httpx.RateLimitByIP(r.ModerateLimit),
		),
	)

	token := &OAuthTokenHandler{OAuth: r.OAuthService, Audit: r.Audit}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(token,
			httpx.RateLimitByIPAndFormField(r.StrictLimit, "client_id"),
		),
	)

	userinfo := &UserInfoHandler{OAuth: r.OAuthService}
	r.Mux.Handle("GET /v1/oauth2/userinfo",
		httpx.Chain(userinfo,
			httpx.RateLimitByIP(r.ModerateLimit),
		),
	)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Users: r.UserService, Audit: r.Audit}
	r.Mux.Handle("GET /v1/audit", r.Gateway.Middleware(h))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store))
}
