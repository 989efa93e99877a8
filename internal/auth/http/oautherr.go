package http

import (
	"encoding/json"
	"net/http"
)

// OAuth2Error is a wire-level error response per RFC 6749 section 5.2. Each
// value carries the HTTP status it must be written with.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return e.Code + ": " + e.Description
}

// WriteError writes the error as a JSON body with no-store caching, as the
// framework requires for token endpoint responses.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	oauthErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is missing a required parameter or is otherwise malformed",
	}

	oauthErrInvalidClient = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_client",
		Description: "client authentication failed",
	}

	oauthErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_grant",
		Description: "the provided grant is invalid, expired, or already used",
	}

	oauthErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        "unsupported_grant_type",
		Description: "grant type not supported",
	}

	oauthErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "the access token is missing, invalid, or expired",
	}

	oauthErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "the server encountered an unexpected condition",
	}

	oauthErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	oauthErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "failed to parse form body",
	}
)
