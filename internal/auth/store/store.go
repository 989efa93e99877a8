package store

import (
	"context"
	"errors"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrAlreadyUsed   = errors.New("store: already used")
)

// Store is the root data access interface. Concrete drivers (memory, sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and is constructed once per process and passed by reference into
// each service.
//
// Token-like entities (sessions, backup codes, authorization codes, OAuth
// tokens) get dedicated consume/rotate operations instead of read-then-write
// pairs: the driver must make each of those a single atomic step so two
// concurrent requests racing on the same credential cannot both succeed.
type Store interface {
	Users() Users
	Sessions() Sessions
	MFA() MFA
	BackupCodes() BackupCodes
	AuthorizationCodes() AuthorizationCodes
	OAuthTokens() OAuthTokens
	Audit() Audit

	// ApplyMigrations brings the backing schema up to date. A no-op for the
	// memory driver.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail returns a user by email address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateRole changes a user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// SetMFAEnabled flips the user's MFA flag.
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error

	// DeleteUser removes a user record.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users (used by seeding).
	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	// CreateSession stores a session keyed by its identifier fingerprint.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns the session for the given identifier fingerprint.
	GetSession(ctx context.Context, idHash string) (domain.Session, error)

	// TouchSession updates last_activity.
	TouchSession(ctx context.Context, idHash string, at time.Time) error

	// DeleteSession removes a session. Idempotent: deleting a missing
	// session is not an error.
	DeleteSession(ctx context.Context, idHash string) error

	// DeleteUserSessions removes every session belonging to a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions sweeps sessions past their expiry.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type MFA interface {
	// GetMFARecord returns a user's TOTP enrollment record.
	GetMFARecord(ctx context.Context, userID string) (domain.MFARecord, error)

	// UpsertMFARecord creates or replaces an enrollment record. Replacing
	// an enabled record is the caller's responsibility to prevent.
	UpsertMFARecord(ctx context.Context, rec domain.MFARecord) error

	// EnableMFA marks the record enabled at the given time.
	EnableMFA(ctx context.Context, userID string, at time.Time) error

	// DeleteMFARecord removes the enrollment record.
	DeleteMFARecord(ctx context.Context, userID string) error

	// DeletePendingMFARecords sweeps never-activated enrollments created
	// before the cutoff.
	DeletePendingMFARecords(ctx context.Context, createdBefore time.Time) error
}

type BackupCodes interface {
	// ReplaceBackupCodes atomically swaps a user's backup code set for the
	// given fingerprints, all marked unused.
	ReplaceBackupCodes(ctx context.Context, userID string, codeHashes []string) error

	// ConsumeBackupCode atomically moves a code from the unused set to the
	// used set. Returns false when the code is absent from the unused set,
	// including when it was already consumed. Check and consumption are one
	// step: two concurrent calls for the same code yield exactly one true.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error)

	// CountUnusedBackupCodes returns how many codes remain usable.
	CountUnusedBackupCodes(ctx context.Context, userID string) (int, error)

	// DeleteAllBackupCodes removes both the unused and used sets.
	DeleteAllBackupCodes(ctx context.Context, userID string) error
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its fingerprint.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed flips used exactly once (compare-and-set).
	// Returns ErrAlreadyUsed when another exchange got there first and
	// ErrNotFound when the code does not exist.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredAuthorizationCodes sweeps codes past their expiry.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) error
}

type OAuthTokens interface {
	// CreateOAuthToken stores a new opaque token pair record.
	CreateOAuthToken(ctx context.Context, t domain.OAuthToken) error

	// GetOAuthTokenByAccessHash resolves an access token fingerprint.
	GetOAuthTokenByAccessHash(ctx context.Context, hash string) (domain.OAuthToken, error)

	// GetOAuthTokenByRefreshHash resolves a refresh token fingerprint.
	GetOAuthTokenByRefreshHash(ctx context.Context, hash string) (domain.OAuthToken, error)

	// RotateAccessToken atomically replaces the access token fingerprint
	// and expiry on the record identified by refreshHash, returning the
	// updated record. The old access token stops resolving in the same step.
	RotateAccessToken(ctx context.Context, refreshHash, newAccessHash string, newExpiresAt time.Time) (domain.OAuthToken, error)

	// DeleteExpiredOAuthTokens sweeps records whose access token expired
	// before the cutoff.
	DeleteExpiredOAuthTokens(ctx context.Context, cutoff time.Time) error
}

type Audit interface {
	// AppendAuditEntry writes one immutable audit record.
	AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ListAuditEntries returns up to limit entries, newest first.
	ListAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
