package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/cryptox"
	"github.com/authlab/authlab/pkg/idx"
)

// UserService owns the identity directory. All user records are created and
// mutated here; other services read through it and never touch the password
// hash directly.
type UserService struct {
	Store      store.Store
	BcryptCost int
}

// CreateUser registers a new user with a freshly hashed password.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("invalid role %q", role)
	}

	hash, err := cryptox.HashPassword(password, s.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks a username/password pair. When the username is unknown
// it still burns a bcrypt verification against a dummy hash so the response
// time does not reveal whether the account exists.
//
// A successful password check against an MFA-enabled account returns the
// user together with ErrMFARequired: the caller must collect a second factor
// before treating the login as complete.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.VerifyDummy(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		return user, ErrMFARequired
	}

	return user, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetUserByUsername fetches a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetUserByEmail fetches a user by email address.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateRole changes a user's role.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	if err := s.Store.Users().UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UserInfo builds the public profile view of a user. The password hash never
// crosses this boundary.
func (s *UserService) UserInfo(ctx context.Context, userID string) (domain.UserInfo, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserInfo{}, err
	}
	return domain.UserInfo{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Username,
		Roles: []string{string(user.Role)},
	}, nil
}
