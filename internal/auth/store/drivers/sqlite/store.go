// Package sqlite implements store.Store on a SQLite database. It is the
// persistent backend: the same interface the memory driver serves, with the
// atomic consume primitives expressed as conditional UPDATEs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/authlab/authlab/internal/auth/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users                           { return &usersRepo{db: s.db} }
func (s *Store) Sessions() store.Sessions                     { return &sessionsRepo{db: s.db} }
func (s *Store) MFA() store.MFA                               { return &mfaRepo{db: s.db} }
func (s *Store) BackupCodes() store.BackupCodes               { return &backupCodesRepo{db: s.db} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authCodesRepo{db: s.db} }
func (s *Store) OAuthTokens() store.OAuthTokens               { return &oauthTokensRepo{db: s.db} }
func (s *Store) Audit() store.Audit                           { return &auditRepo{db: s.db} }

// mapNotFound converts sql.ErrNoRows into the store-level sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConflict converts SQLite unique violations into the store-level sentinel.
func mapConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}
