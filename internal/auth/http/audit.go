package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/pkg/httpx"
)

// AuditHandler serves GET /v1/audit for admins: the recent authentication
// event feed, newest first.
type AuditHandler struct {
	Users *service.UserService
	Audit *service.AuditService
}

type auditEntryResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
	Action   string    `json:"action"`
	Status   string    `json:"status"`
	IP       string    `json:"ip,omitempty"`
	At       time.Time `json:"at"`
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	if user.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		limit = n
	}

	entries, err := h.Audit.Recent(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		// Reason stays internal; the feed shows what happened, not why a
		// check failed.
		out = append(out, auditEntryResponse{
			ID:       e.ID,
			UserID:   e.UserID,
			Username: e.Username,
			Action:   e.Action,
			Status:   e.Status,
			IP:       e.IP,
			At:       e.At,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}
