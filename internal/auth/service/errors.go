package service

import "errors"

// Service-level sentinels. Handlers map these onto HTTP responses; the
// human-readable values are stable strings clients may display.
var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so a caller cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMFARequired means the password was correct but the user has MFA
	// enabled and must present a second factor before a session or token
	// is issued.
	ErrMFARequired = errors.New("mfa required")

	ErrInvalidMFACode    = errors.New("invalid mfa code")
	ErrInvalidBackupCode = errors.New("invalid backup code")
	ErrMFANotEnabled     = errors.New("mfa not enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	ErrMFANotEnrolled    = errors.New("mfa not enrolled")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	// ErrUnauthorized is the gateway's single rejection value. The real
	// reason goes to the audit log, never to the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// OAuth errors follow RFC 6749 section 5.2 naming.
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidClient  = errors.New("invalid_client")
	ErrInvalidGrant   = errors.New("invalid_grant")
	ErrInvalidToken   = errors.New("invalid_token")
)
