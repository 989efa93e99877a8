package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// OAuthTokenHandler serves POST /v1/oauth2/token. Accepts
// application/x-www-form-urlencoded per RFC 6749 and dispatches on
// grant_type.
type OAuthTokenHandler struct {
	OAuth *service.OAuthService
	Audit *service.AuditService
}

func (h *OAuthTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauthErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		oauthErrInvalidFormBody.WriteError(w)
		return
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(w, r, r.Form)
	case "refresh_token":
		h.handleRefreshGrant(w, r, r.Form)
	default:
		oauthErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *OAuthTokenHandler) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(form.Get("code"))
	redirectURI := strings.TrimSpace(form.Get("redirect_uri"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")

	if code == "" || redirectURI == "" || clientID == "" {
		oauthErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.OAuth.ExchangeCode(ctx, code, clientID, clientSecret, redirectURI)
	if err != nil {
		h.Audit.Failure(ctx, domain.AuditOAuthExchange, clientID, err.Error(), httpx.ClientIP(r))
		h.writeGrantError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *OAuthTokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refreshToken := strings.TrimSpace(form.Get("refresh_token"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")

	if refreshToken == "" || clientID == "" {
		oauthErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.OAuth.RefreshAccessToken(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		h.Audit.Failure(ctx, domain.AuditOAuthRefresh, clientID, err.Error(), httpx.ClientIP(r))
		h.writeGrantError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *OAuthTokenHandler) writeGrantError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		oauthErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		oauthErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		oauthErrInvalidRequest.WriteError(w)
	default:
		log.Error("token grant failed", "err", err)
		oauthErrServerError.WriteError(w)
	}
}
