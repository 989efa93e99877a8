package domain

import "time"

// Session is a server-side session record. It is keyed in the store by the
// SHA-256 fingerprint of the opaque session identifier; the identifier
// itself only ever lives in the client's cookie.
type Session struct {
	IDHash       string
	UserID       string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}

// Expired reports whether the session has passed its expiry at the given
// time. The expiry instant itself is already expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
