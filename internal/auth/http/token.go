package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// TokenHandler serves the stateless JWT flow: issuance against credentials,
// refresh, and unverified decoding for inspection.
type TokenHandler struct {
	Users  *service.UserService
	Tokens *service.TokenService
	MFA    *service.MFAService
	Audit  *service.AuditService
}

// HandleIssue serves POST /v1/auth/token. Same credential and MFA checks as
// the session login, but the result is a signed token pair instead of a
// cookie.
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	ip := httpx.ClientIP(r)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := h.authenticate(r, req)
	if err != nil {
		status, code := loginErrorResponse(err)
		if code == "server_error" {
			log.Error("token issuance failed", "err", err)
		} else {
			h.Audit.Failure(ctx, domain.AuditTokenIssue, req.Username, err.Error(), ip)
		}
		writeError(w, status, code)
		return
	}

	pair, err := h.Tokens.IssuePair(user)
	if err != nil {
		log.Error("failed to sign token pair", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	h.Audit.Success(ctx, domain.AuditTokenIssue, user, ip)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *TokenHandler) authenticate(r *http.Request, req loginRequest) (domain.User, error) {
	ctx := r.Context()

	user, err := h.Users.Authenticate(ctx, req.Username, req.Password)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, service.ErrMFARequired) {
		return domain.User{}, err
	}

	switch {
	case req.MFACode != "":
		if err := h.MFA.VerifyCode(ctx, user.ID, req.MFACode); err != nil {
			return domain.User{}, err
		}
	case req.BackupCode != "":
		if err := h.MFA.VerifyBackupCode(ctx, user.ID, req.BackupCode); err != nil {
			return domain.User{}, err
		}
	default:
		return domain.User{}, service.ErrMFARequired
	}

	return user, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh serves POST /v1/auth/token/refresh.
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := httpx.ClientIP(r)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, err := h.Tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			h.Audit.Failure(ctx, domain.AuditTokenRefresh, "", err.Error(), ip)
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		slogx.FromContext(ctx).Error("token refresh failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type decodeRequest struct {
	Token string `json:"token"`
}

type decodeResponse struct {
	Header  map[string]string `json:"header"`
	Subject string            `json:"sub"`
	Email   string            `json:"email,omitempty"`
	Role    string            `json:"role,omitempty"`
	Type    string            `json:"type"`
	Note    string            `json:"note"`
}

// HandleDecode serves POST /v1/auth/token/decode: the claims without
// signature verification, for inspecting token structure.
func (h *TokenHandler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	claims, err := h.Tokens.Decode(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, decodeResponse{
		Header:  map[string]string{"alg": "HS256", "typ": "JWT"},
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		Type:    string(claims.TokenType),
		Note:    "decoded without signature verification; do not trust",
	})
}
