package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// UserInfoHandler serves GET /v1/oauth2/userinfo. Unlike the gateway's
// bearer strategy this takes the opaque OAuth access token, not a JWT.
type UserInfoHandler struct {
	OAuth *service.OAuthService
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		oauthErrInvalidToken.WriteError(w)
		return
	}

	info, err := h.OAuth.UserInfo(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			oauthErrInvalidToken.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("userinfo lookup failed", "err", err)
		oauthErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, info)
}
