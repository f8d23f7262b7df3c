package store

import (
	"context"
	"fmt"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// CreateUser creates a new user account.
// Returns ErrAlreadyExists when the id, email, username or Google id is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.Users.Create(ctx, user.ID, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("user created", "user_id", user.ID)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.Users.Get(ctx, id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// GetUserByUsername retrieves a user by username, case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "username", username)
}

// GetUserByGoogleID retrieves a user by their Google account subject.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "google", googleID)
}

// GetUserByVerificationToken retrieves the user an email verification token was issued to.
func (s *Store) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "verify_token", token)
}

// GetUserByResetToken retrieves the user a password reset token was issued to.
func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "reset_token", token)
}

// GetUsers loads users by id, skipping ids that no longer exist.
func (s *Store) GetUsers(ctx context.Context, ids []string) ([]*domain.User, error) {
	return s.Users.GetMany(ctx, ids)
}

// UpdateUser replaces a user record and refreshes its update timestamp.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Touch()
	if err := s.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// MutateUser applies fn to the stored user and persists the result atomically.
func (s *Store) MutateUser(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	return s.Users.Mutate(ctx, id, func(u *domain.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.Touch()
		return nil
	})
}

// DeleteUser removes a user record. Cascading cleanup is the caller's job.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.Users.Delete(ctx, id)
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.Users.All(ctx)
}

// ListUsersByStatus returns users with the given account status.
func (s *Store) ListUsersByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.User, error) {
	return s.Users.ListByIndex(ctx, "status", string(status))
}
