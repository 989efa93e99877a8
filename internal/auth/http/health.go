package http

import (
	"net/http"
	"time"

	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/httpx"
)

// LivezHandler always answers 200 while the process is running.
func LivezHandler(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"uptime": time.Since(startTime).String(),
		})
	}
}

// ReadyzHandler answers 200 only when the backing store is reachable.
func ReadyzHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK
		database := "ok"

		if err := st.Ping(r.Context()); err != nil {
			database = "error: " + err.Error()
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, map[string]string{
			"status":   status,
			"database": database,
		})
	}
}
