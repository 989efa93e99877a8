package domain

import "time"

// Audit actions recorded by the engine.
const (
	AuditLogin             = "login"
	AuditLogout            = "logout"
	AuditSessionValidate   = "session_validate"
	AuditSessionRegenerate = "session_regenerate"
	AuditTokenIssue        = "token_issue"
	AuditTokenRefresh      = "token_refresh"
	AuditMFAEnroll         = "mfa_enroll"
	AuditMFAActivate       = "mfa_activate"
	AuditMFADisable        = "mfa_disable"
	AuditMFAVerify         = "mfa_verify"
	AuditBackupCodeUse     = "backup_code_use"
	AuditOAuthAuthorize    = "oauth_authorize"
	AuditOAuthExchange     = "oauth_exchange"
	AuditOAuthRefresh      = "oauth_refresh"
	AuditGatewayReject     = "gateway_reject"
)

// Audit entry statuses.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEntry is one append-only record of an authentication event. Entries
// are never mutated or deleted. ID is a monotonic ULID, so entries sort in
// write order.
type AuditEntry struct {
	ID       string
	UserID   string // empty when the identity is unknown (failed lookups)
	Username string // username as attempted, for failure forensics
	Action   string
	Status   string
	Reason   string // internal detail; never surfaced to callers
	IP       string
	At       time.Time
}
