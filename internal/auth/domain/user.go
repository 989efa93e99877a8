package domain

import "time"

// Role is the coarse authorization level attached to a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the canonical identity record. Owned exclusively by the identity
// directory; mutated only through explicit directory operations.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt encoded
	Role         Role
	MFAEnabled   bool
	CreatedAt    time.Time
}
