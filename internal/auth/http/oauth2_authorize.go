package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// AuthorizeHandler serves GET /v1/oauth2/authorize. The resource owner must
// already hold a session or bearer credential; an unauthenticated browser
// gets 401 rather than a login redirect, since the app front end owns the
// login UI.
type AuthorizeHandler struct {
	Gateway *service.Gateway
	OAuth   *service.OAuthService
	Audit   *service.AuditService
}

func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, err := h.Gateway.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")

	// Scope arrives space-delimited per RFC 6749; store it canonicalized.
	scope := strings.Join(httpx.ParseSpaceDelimitedFields(q.Get("scope")), " ")

	if q.Get("response_type") != "code" {
		oauthErrInvalidRequest.WriteError(w)
		return
	}

	code, err := h.OAuth.Authorize(ctx, clientID, redirectURI, scope, principal.UserID)
	if err != nil {
		h.Audit.Failure(ctx, domain.AuditOAuthAuthorize, "", err.Error(), httpx.ClientIP(r))
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			oauthErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			oauthErrInvalidRequest.WriteError(w)
		default:
			log.Error("authorize failed", "err", err)
			oauthErrServerError.WriteError(w)
		}
		return
	}

	h.auditSuccess(r, principal.UserID)

	// Redirect back to the client with the code and the client's state
	// echoed verbatim.
	target, err := url.Parse(redirectURI)
	if err != nil {
		oauthErrInvalidRequest.WriteError(w)
		return
	}
	params := target.Query()
	params.Set("code", code)
	if state != "" {
		params.Set("state", state)
	}
	target.RawQuery = params.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (h *AuthorizeHandler) auditSuccess(r *http.Request, userID string) {
	h.Audit.Success(r.Context(), domain.AuditOAuthAuthorize,
		domain.User{ID: userID}, httpx.ClientIP(r))
}
