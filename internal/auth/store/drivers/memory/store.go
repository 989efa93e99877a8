// Package memory implements store.Store with mutex-guarded in-process maps.
//
// It is the reference backend: every consume/rotate primitive holds the
// repository lock for the whole check-and-mark step, so the at-most-once
// guarantees hold under concurrent requests without any external store.
package memory

import (
	"context"

	"github.com/authlab/authlab/internal/auth/store"
)

type Store struct {
	users       *usersRepo
	sessions    *sessionsRepo
	mfa         *mfaRepo
	backupCodes *backupCodesRepo
	authCodes   *authCodesRepo
	oauthTokens *oauthTokensRepo
	audit       *auditRepo
}

func NewStore() *Store {
	return &Store{
		users:       newUsersRepo(),
		sessions:    newSessionsRepo(),
		mfa:         newMFARepo(),
		backupCodes: newBackupCodesRepo(),
		authCodes:   newAuthCodesRepo(),
		oauthTokens: newOAuthTokensRepo(),
		audit:       newAuditRepo(),
	}
}

func (s *Store) Users() store.Users                             { return s.users }
func (s *Store) Sessions() store.Sessions                       { return s.sessions }
func (s *Store) MFA() store.MFA                                 { return s.mfa }
func (s *Store) BackupCodes() store.BackupCodes                 { return s.backupCodes }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes   { return s.authCodes }
func (s *Store) OAuthTokens() store.OAuthTokens                 { return s.oauthTokens }
func (s *Store) Audit() store.Audit                             { return s.audit }

func (s *Store) ApplyMigrations() error             { return nil }
func (s *Store) Close() error                       { return nil }
func (s *Store) Ping(ctx context.Context) error     { return nil }
