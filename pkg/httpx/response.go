package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON encodes v as the response body with the given status code. Every
// JSON response from the engine goes out uncacheable; bodies routinely carry
// tokens or codes.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status and headers are already on the wire; nothing to recover.
		return
	}
}

// NoCache marks the response uncacheable for both HTTP/1.0 and 1.1 caches.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits a space-delimited string such as an OAuth
// scope list. Blank input yields nil rather than an empty slice.
func ParseSpaceDelimitedFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}
