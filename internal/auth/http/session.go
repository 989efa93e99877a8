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

// SessionHandler serves cookie-based login, logout, and identifier
// regeneration.
type SessionHandler struct {
	Users         *service.UserService
	Sessions      *service.SessionService
	MFA           *service.MFAService
	Audit         *service.AuditService
	SecureCookies bool
	SessionTTL    time.Duration
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	MFACode    string `json:"mfa_code,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

type loginResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleLogin serves POST /v1/auth/login. A successful login issues a fresh
// session identifier; any identifier already in the cookie is retired first.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
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
			log.Error("login failed", "err", err)
		} else {
			h.Audit.Failure(ctx, domain.AuditLogin, req.Username, err.Error(), ip)
		}
		writeError(w, status, code)
		return
	}

	priorID := ""
	if cookie, err := r.Cookie(service.SessionCookieName); err == nil {
		priorID = cookie.Value
	}

	id, _, err := h.Sessions.Create(ctx, user.ID, priorID)
	if err != nil {
		log.Error("failed to create session", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	h.Audit.Success(ctx, domain.AuditLogin, user, ip)
	setSessionCookie(w, id, h.SecureCookies, h.SessionTTL)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
}

// authenticate runs the password check and, for MFA-enabled accounts, the
// second factor.
func (h *SessionHandler) authenticate(r *http.Request, req loginRequest) (domain.User, error) {
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
		h.Audit.Success(ctx, domain.AuditMFAVerify, user, httpx.ClientIP(r))
	case req.BackupCode != "":
		if err := h.MFA.VerifyBackupCode(ctx, user.ID, req.BackupCode); err != nil {
			return domain.User{}, err
		}
		h.Audit.Success(ctx, domain.AuditBackupCodeUse, user, httpx.ClientIP(r))
	default:
		return domain.User{}, service.ErrMFARequired
	}

	return user, nil
}

// HandleLogout serves POST /v1/auth/logout. Always succeeds, even with no
// live session, and clears the cookie either way.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(service.SessionCookieName); err == nil && cookie.Value != "" {
		if _, user, err := h.Sessions.Validate(ctx, cookie.Value); err == nil {
			h.Audit.Success(ctx, domain.AuditLogout, user, httpx.ClientIP(r))
		}
		if err := h.Sessions.Destroy(ctx, cookie.Value); err != nil {
			slogx.FromContext(ctx).Error("failed to destroy session", "err", err)
		}
	}

	clearSessionCookie(w, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleRegenerate serves POST /v1/auth/session/regenerate: same session
// state, new identifier. Called by the app at privilege boundaries.
func (h *SessionHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(service.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, session, err := h.Sessions.Regenerate(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionExpired) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		slogx.FromContext(ctx).Error("failed to regenerate session", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if user, err := h.Users.GetUserByID(ctx, session.UserID); err == nil {
		h.Audit.Success(ctx, domain.AuditSessionRegenerate, user, httpx.ClientIP(r))
	}

	setSessionCookie(w, id, h.SecureCookies, h.SessionTTL)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "regenerated"})
}

func setSessionCookie(w http.ResponseWriter, id string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     service.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     service.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// loginErrorResponse maps service failures onto status codes and stable
// error strings. Credential and second-factor failures all carry enough
// detail for the client without revealing which check failed first.
func loginErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, service.ErrMFARequired):
		return http.StatusUnauthorized, "mfa_required"
	case errors.Is(err, service.ErrInvalidMFACode),
		errors.Is(err, service.ErrMFANotEnabled):
		return http.StatusUnauthorized, "invalid_mfa_code"
	case errors.Is(err, service.ErrInvalidBackupCode):
		return http.StatusUnauthorized, "invalid_backup_code"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// MeHandler serves GET /v1/auth/me behind the auth gateway.
type MeHandler struct {
	Users *service.UserService
}

type meResponse struct {
	Principal domain.Principal `json:"principal"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := service.PrincipalFrom(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Users.GetUserByID(ctx, principal.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		Principal: principal,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
	})
}

func writeError(w http.ResponseWriter, status int, code string) {
	httpx.WriteJSON(w, status, map[string]string{"error": code})
}
