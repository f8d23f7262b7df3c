package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// setupStore opens an in-memory badger store closed at test end.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// createTestUser stores an active local user.
func createTestUser(t *testing.T, s *store.Store, email string) *domain.User {
	t.Helper()

	u, err := newUser(email, "Test "+email)
	require.NoError(t, err)
	u.AuthMethod = domain.AuthLocal
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// createTestRecipe stores a recipe owned by owner and records it in the
// owner's list.
func createTestRecipe(t *testing.T, s *store.Store, owner *domain.User, title string, v domain.Visibility) *domain.Recipe {
	t.Helper()
	ctx := context.Background()

	r := &domain.Recipe{
		OwnerID:      owner.ID,
		Title:        title,
		Ingredients:  []string{"flour", "water"},
		Instructions: []string{"mix", "bake"},
		Servings:     2,
		Visibility:   v,
		SharedWith:   []domain.ShareEntry{},
		Likes:        []string{},
		Comments:     []domain.Comment{},
		Tags:         []string{},
		Photos:       []domain.Photo{},
	}
	recipeID, err := id.Generate(id.PrefixRecipe)
	require.NoError(t, err)
	r.ID = recipeID
	r.InitTimestamps()
	require.NoError(t, s.CreateRecipe(ctx, r))

	_, err = s.MutateUser(ctx, owner.ID, func(u *domain.User) error {
		domain.AddString(&u.Recipes, r.ID)
		return nil
	})
	require.NoError(t, err)
	return r
}

// reload fetches the current copy of a user.
func reload(t *testing.T, s *store.Store, u *domain.User) *domain.User {
	t.Helper()
	fresh, err := s.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func reloadRecipe(t *testing.T, s *store.Store, id string) *domain.Recipe {
	t.Helper()
	r, err := s.GetRecipe(context.Background(), id)
	require.NoError(t, err)
	return r
}

// requireCode asserts err is a domain error with the given code.
func requireCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	require.Error(t, err)
	var de *domainerrors.Error
	require.True(t, errors.As(err, &de), "expected domain error, got %T: %v", err, err)
	require.Equal(t, code, de.Code, de.Message)
}

func newValidator() *validation.Validator { return validation.New() }

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	verify    []string
	reset     []string
	shared    []string
	comments  []string
	followers []string
}

func (n *recordingNotifier) SendVerification(u *domain.User, token string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify = append(n.verify, u.Email+":"+token)
}

func (n *recordingNotifier) SendPasswordReset(u *domain.User, token string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset = append(n.reset, u.Email+":"+token)
}

func (n *recordingNotifier) SendRecipeShared(to string, _ *domain.User, _ *domain.Recipe, _ domain.Permission, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shared = append(n.shared, to)
}

func (n *recordingNotifier) SendNewComment(owner, _ *domain.User, _ *domain.Recipe, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = append(n.comments, owner.ID)
}

func (n *recordingNotifier) SendNewFollower(target, _ *domain.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.followers = append(n.followers, target.ID)
}

// flakyUsers fails MutateUser for one user id, to leave dual writes
// half-applied.
type flakyUsers struct {
	*store.Store
	failFor string
}

func (f *flakyUsers) MutateUser(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	if id == f.failFor {
		return nil, errors.New("disk on fire")
	}
	return f.Store.MutateUser(ctx, id, fn)
}

// flakyRecipes fails MutateRecipe when enabled.
type flakyRecipes struct {
	*store.Store
	fail bool
}

func (f *flakyRecipes) MutateRecipe(ctx context.Context, id string, touch bool, fn func(*domain.Recipe) error) (*domain.Recipe, error) {
	if f.fail {
		return nil, errors.New("disk on fire")
	}
	return f.Store.MutateRecipe(ctx, id, touch, fn)
}

func intPtr(v int) *int { return &v }
