package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
	"github.com/authlab/authlab/pkg/slogx"
)

// MFAHandler serves TOTP enrollment and management. Every endpoint sits
// behind the auth gateway; the principal comes off the request context.
type MFAHandler struct {
	Users    *service.UserService
	MFA      *service.MFAService
	Audit    *service.AuditService
	Sessions *service.SessionService

	SecureCookies bool
	SessionTTL    time.Duration
}

func (h *MFAHandler) principalUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	principal, ok := service.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}

	user, err := h.Users.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	return user, true
}

// HandleSetup serves POST /v1/mfa/setup. Returns the secret, provisioning
// URI, and plaintext backup codes exactly once.
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	setup, err := h.MFA.Setup(ctx, user.ID, user.Username)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			writeError(w, http.StatusConflict, "mfa_already_enabled")
			return
		}
		slogx.FromContext(ctx).Error("mfa setup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	h.Audit.Success(ctx, domain.AuditMFAEnroll, user, httpx.ClientIP(r))
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, setup)
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// HandleActivate serves POST /v1/mfa/activate, turning MFA on once the user
// proves their authenticator produces valid codes.
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := h.MFA.Activate(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFACode):
			h.Audit.Failure(ctx, domain.AuditMFAActivate, user.Username, err.Error(), httpx.ClientIP(r))
			writeError(w, http.StatusUnauthorized, "invalid_mfa_code")
		case errors.Is(err, service.ErrMFANotEnrolled):
			writeError(w, http.StatusBadRequest, "mfa_not_enrolled")
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			writeError(w, http.StatusConflict, "mfa_already_enabled")
		default:
			slogx.FromContext(ctx).Error("mfa activation failed", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	h.Audit.Success(ctx, domain.AuditMFAActivate, user, httpx.ClientIP(r))
	h.rotateSessions(w, r, user)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// HandleDisable serves POST /v1/mfa/disable, gated on a valid TOTP code.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	var req mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := h.MFA.Disable(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFACode):
			h.Audit.Failure(ctx, domain.AuditMFADisable, user.Username, err.Error(), httpx.ClientIP(r))
			writeError(w, http.StatusUnauthorized, "invalid_mfa_code")
		case errors.Is(err, service.ErrMFANotEnabled):
			writeError(w, http.StatusBadRequest, "mfa_not_enabled")
		default:
			slogx.FromContext(ctx).Error("mfa disable failed", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	h.Audit.Success(ctx, domain.AuditMFADisable, user, httpx.ClientIP(r))
	h.rotateSessions(w, r, user)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// rotateSessions runs after an MFA state change: every session the user
// holds is revoked, and a session-authenticated caller gets a fresh
// identifier in the same response so they stay logged in. Bearer callers
// keep their JWT; it re-authenticates on its own terms.
func (h *MFAHandler) rotateSessions(w http.ResponseWriter, r *http.Request, user domain.User) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Sessions.DestroyAllForUser(ctx, user.ID); err != nil {
		log.Error("failed to revoke sessions after mfa change", "err", err)
		return
	}

	principal, ok := service.PrincipalFrom(ctx)
	if !ok || principal.Method != service.MethodSession {
		return
	}

	id, _, err := h.Sessions.Create(ctx, user.ID, "")
	if err != nil {
		log.Error("failed to reissue session after mfa change", "err", err)
		clearSessionCookie(w, h.SecureCookies)
		return
	}
	setSessionCookie(w, id, h.SecureCookies, h.SessionTTL)
}

// HandleBackupCodesRemaining serves GET /v1/mfa/backup-codes.
func (h *MFAHandler) HandleBackupCodesRemaining(w http.ResponseWriter, r *http.Request) {
	user, ok := h.principalUser(w, r)
	if !ok {
		return
	}

	remaining, err := h.MFA.RemainingBackupCodes(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}
