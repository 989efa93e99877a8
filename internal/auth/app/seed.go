package app

import (
	"context"
	"fmt"

	"github.com/authlab/authlab/internal/auth/domain"
)

// seed populates an empty directory with the two demo accounts. A store
// that already has users is left untouched, so seeding is restart-safe for
// the SQLite backend.
func (app *Application) seed(ctx context.Context) error {
	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check directory: %w", err)
	}
	if !empty {
		return nil
	}

	seeds := []struct {
		username string
		email    string
		password string
		role     domain.Role
	}{
		{"admin", "admin@authlab.local", app.cfg.SeedAdminPassword, domain.RoleAdmin},
		{"user", "user@authlab.local", app.cfg.SeedUserPassword, domain.RoleUser},
	}

	for _, s := range seeds {
		if _, err := app.userService.CreateUser(ctx, s.username, s.email, s.password, s.role); err != nil {
			return fmt.Errorf("failed to seed %q: %w", s.username, err)
		}
		app.logger.Info("seeded account", "username", s.username, "role", s.role)
	}

	return nil
}
