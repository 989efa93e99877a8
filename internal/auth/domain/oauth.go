package domain

import "time"

// AuthorizationCode represents a single-use OAuth 2.0 authorization code
// issuance (RFC 6749 section 4.1). UsedAt flips from nil exactly once.
type AuthorizationCode struct {
	ID          string
	CodeHash    string
	ClientID    string
	RedirectURI string
	Scope       string
	UserID      string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// OAuthToken maps an opaque access/refresh token pair to a user. Refreshing
// replaces the access token and rotates the record in place; the refresh
// token fingerprint stays stable for the record's lifetime.
type OAuthToken struct {
	ID               string
	AccessTokenHash  string
	RefreshTokenHash string
	ClientID         string
	Scope            string
	UserID           string
	ExpiresAt        time.Time // access token expiry
	CreatedAt        time.Time
}

// UserInfo is the public profile served by the userinfo endpoint. It must
// never carry the password hash or other sensitive directory fields.
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}
