package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/store"
)

func newTestUser(id, email, username string) *domain.User {
	u := &domain.User{
		Record:      domain.Record{ID: id},
		Email:       email,
		Username:    username,
		Name:        "Test " + id,
		AuthMethod:  domain.AuthLocal,
		Role:        domain.RoleUser,
		Status:      domain.AccountActive,
		Preferences: domain.DefaultPreferences(),
	}
	u.InitTimestamps()
	return u
}

func TestUsers_CreateAndLookup(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := newTestUser("usr-1", "Cook@Example.com", "Chef")
	u.GoogleID = "g-123"
	u.VerificationToken = "verify-abc"
	require.NoError(t, s.CreateUser(ctx, u))

	byEmail, err := s.GetUserByEmail(ctx, "cook@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", byEmail.ID)

	byName, err := s.GetUserByUsername(ctx, "chef")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", byName.ID)

	byGoogle, err := s.GetUserByGoogleID(ctx, "g-123")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", byGoogle.ID)

	byToken, err := s.GetUserByVerificationToken(ctx, "verify-abc")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", byToken.ID)

	_, err = s.GetUserByResetToken(ctx, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmailRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "a@example.com", "")))

	err := s.CreateUser(ctx, newTestUser("usr-2", "A@EXAMPLE.com", ""))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_UsersWithoutUsernameDoNotCollide(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "a@example.com", "")))
	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-2", "b@example.com", "")))
}

func TestUsers_TokenIndexFollowsUpdates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "a@example.com", "")))

	_, err := s.MutateUser(ctx, "usr-1", func(u *domain.User) error {
		u.PasswordResetToken = "reset-1"
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetUserByResetToken(ctx, "reset-1")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)

	_, err = s.MutateUser(ctx, "usr-1", func(u *domain.User) error {
		u.PasswordResetToken = ""
		return nil
	})
	require.NoError(t, err)

	_, err = s.GetUserByResetToken(ctx, "reset-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_ListByStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "a@example.com", "")))
	suspended := newTestUser("usr-2", "b@example.com", "")
	suspended.Status = domain.AccountSuspended
	require.NoError(t, s.CreateUser(ctx, suspended))

	active, err := s.ListUsersByStatus(ctx, domain.AccountActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "usr-1", active[0].ID)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUsers_Delete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "a@example.com", "cook")))
	require.NoError(t, s.DeleteUser(ctx, "usr-1"))

	_, err := s.GetUser(ctx, "usr-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "cook")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
