package service

import (
	"context"
	"time"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/store/sqlite"
)

// UserStore is the user persistence used by services. *store.Store
// implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*domain.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*domain.User, error)
	MutateUser(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ListUsersByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.User, error)
}

// RecipeStore is the recipe persistence used by services. *store.Store
// implements it.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, recipe *domain.Recipe) error
	GetRecipe(ctx context.Context, id string) (*domain.Recipe, error)
	GetRecipes(ctx context.Context, ids []string) ([]*domain.Recipe, error)
	MutateRecipe(ctx context.Context, id string, touch bool, fn func(*domain.Recipe) error) (*domain.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	ListRecipes(ctx context.Context) ([]*domain.Recipe, error)
	ListRecipesByOwner(ctx context.Context, ownerID string) ([]*domain.Recipe, error)
	ListRecipesByVisibility(ctx context.Context, v domain.Visibility) ([]*domain.Recipe, error)
	ListRecipesSharedWith(ctx context.Context, userID, email string) ([]*domain.Recipe, error)
}

// Notifier sends fire-and-forget notifications. *notify.Notifier
// implements it.
type Notifier interface {
	SendVerification(u *domain.User, token string, ttl time.Duration)
	SendPasswordReset(u *domain.User, token string, ttl time.Duration)
	SendRecipeShared(to string, owner *domain.User, r *domain.Recipe, perm domain.Permission, note string)
	SendNewComment(owner, author *domain.User, r *domain.Recipe, text string)
	SendNewFollower(target, follower *domain.User)
}

// AuditLog records moderation actions. *sqlite.Store implements it.
type AuditLog interface {
	RecordAction(ctx context.Context, e *domain.AuditEntry) error
	ListActions(ctx context.Context, f sqlite.AuditFilter) ([]*domain.AuditEntry, int, error)
}

// RecipeSearcher runs discovery queries. *search.SearchIndex implements it.
type RecipeSearcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// PageCache caches rendered discovery pages. *cache.FeedCache implements
// it, including as a nil pointer.
type PageCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// GoogleVerifier validates Google ID tokens. *auth.GoogleVerifier
// implements it.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleIdentity, error)
}

type noopNotifier struct{}

func (noopNotifier) SendVerification(*domain.User, string, time.Duration) {}
func (noopNotifier) SendPasswordReset(*domain.User, string, time.Duration) {}
func (noopNotifier) SendRecipeShared(string, *domain.User, *domain.Recipe, domain.Permission, string) {
}
func (noopNotifier) SendNewComment(*domain.User, *domain.User, *domain.Recipe, string) {}
func (noopNotifier) SendNewFollower(*domain.User, *domain.User)                       {}

func orNoopNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
