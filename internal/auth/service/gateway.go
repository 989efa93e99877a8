package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/pkg/httpx"
)

// SessionCookieName is the cookie the session strategy reads.
const SessionCookieName = "SessionID"

// Strategy names, recorded as Principal.Method.
const (
	MethodSession = "session"
	MethodJWT     = "jwt"
)

// errNoCredential tells the gateway a strategy found nothing to check, as
// opposed to finding a credential and rejecting it.
var errNoCredential = errors.New("no credential presented")

// AuthStrategy is one way of proving who a request belongs to. Strategies
// are tried in order; the first one that resolves a principal wins.
type AuthStrategy interface {
	// Name identifies the strategy in principals and audit records.
	Name() string

	// TryAuthenticate inspects the request. It returns errNoCredential
	// when the request carries nothing for this strategy to check.
	TryAuthenticate(r *http.Request) (domain.Principal, error)
}

// SessionStrategy authenticates via the session cookie.
type SessionStrategy struct {
	Sessions *SessionService
}

func (s *SessionStrategy) Name() string { return MethodSession }

func (s *SessionStrategy) TryAuthenticate(r *http.Request) (domain.Principal, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return domain.Principal{}, errNoCredential
	}

	session, _, err := s.Sessions.Validate(r.Context(), cookie.Value)
	if err != nil {
		return domain.Principal{}, err
	}

	return domain.Principal{UserID: session.UserID, Method: s.Name()}, nil
}

// BearerStrategy authenticates via a JWT access token in the Authorization
// header.
type BearerStrategy struct {
	Tokens *TokenService
}

func (s *BearerStrategy) Name() string { return MethodJWT }

func (s *BearerStrategy) TryAuthenticate(r *http.Request) (domain.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Principal{}, errNoCredential
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	claims, err := s.Tokens.VerifyAccess(raw)
	if err != nil {
		return domain.Principal{}, err
	}

	return domain.Principal{UserID: claims.Subject, Method: s.Name()}, nil
}

// Gateway is the single entry point protected handlers authenticate
// through. It walks its strategies in order and either resolves a principal
// or rejects with the uniform ErrUnauthorized; the specific failure reason
// goes to the audit log and structured log only.
type Gateway struct {
	Strategies []AuthStrategy
	Audit      *AuditService
	Logger     *slog.Logger
}

// Authenticate resolves the request to a principal. Every rejection looks
// identical to the caller regardless of which strategy failed or why.
func (g *Gateway) Authenticate(r *http.Request) (domain.Principal, error) {
	var lastErr error

	for _, strategy := range g.Strategies {
		principal, err := strategy.TryAuthenticate(r)
		if err == nil {
			return principal, nil
		}
		if errors.Is(err, errNoCredential) {
			continue
		}
		lastErr = err
		g.Logger.Debug("auth strategy rejected request",
			"strategy", strategy.Name(), "reason", err.Error())
	}

	reason := "no credentials presented"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	g.Audit.Failure(r.Context(), domain.AuditGatewayReject, "", reason, httpx.ClientIP(r))

	return domain.Principal{}, ErrUnauthorized
}

// Middleware guards an http.Handler with the gateway, storing the resolved
// principal on the request context.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r)
		if err != nil {
			httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
