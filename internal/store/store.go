package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// RecipeIndexer is notified after every recipe write.
// Store uses this to keep the search index and feed cache in sync without
// depending on their implementations. Failures are logged, never returned:
// the badger document is the source of truth.
type RecipeIndexer interface {
	IndexRecipe(ctx context.Context, recipe *domain.Recipe) error
	DeleteRecipe(ctx context.Context, recipeID string) error
}

// NoopRecipeIndexer is a no-op implementation for testing.
type NoopRecipeIndexer struct{}

// IndexRecipe is a no-op.
func (NoopRecipeIndexer) IndexRecipe(context.Context, *domain.Recipe) error { return nil }

// DeleteRecipe is a no-op.
func (NoopRecipeIndexer) DeleteRecipe(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Indexers kept in sync with recipe writes.
	// Added via AddRecipeIndexer after store creation to avoid circular dependencies.
	indexers []RecipeIndexer

	// Generic entities
	Users   *Entity[domain.User]
	Recipes *Entity[domain.Recipe]
}

// New creates a new Store instance with the given database path.
// An empty path opens an in-memory database.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = path != "" // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initUsers()
	store.initRecipes()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path, "in_memory", path == "")
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("database closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// AddRecipeIndexer registers an indexer notified after recipe writes.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before search and cache can be created).
func (s *Store) AddRecipeIndexer(indexer RecipeIndexer) {
	if indexer != nil {
		s.indexers = append(s.indexers, indexer)
	}
}

func (s *Store) recipeChanged(ctx context.Context, recipe *domain.Recipe) {
	for _, idx := range s.indexers {
		if err := idx.IndexRecipe(ctx, recipe); err != nil && s.logger != nil {
			s.logger.Warn("recipe index update failed", "recipe_id", recipe.ID, "error", err)
		}
	}
}

func (s *Store) recipeRemoved(ctx context.Context, recipeID string) {
	for _, idx := range s.indexers {
		if err := idx.DeleteRecipe(ctx, recipeID); err != nil && s.logger != nil {
			s.logger.Warn("recipe index delete failed", "recipe_id", recipeID, "error", err)
		}
	}
}

// initUsers initializes the Users entity on the store.
// Email lookups are case-insensitive via the normalizeEmail transformation.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail,
		).
		WithIndexTransform("username",
			func(u *domain.User) []string {
				return []string{normalizeUsername(u.Username)}
			},
			normalizeUsername,
		).
		WithIndex("google", func(u *domain.User) []string {
			return []string{u.GoogleID}
		}).
		WithIndex("verify_token", func(u *domain.User) []string {
			return []string{u.VerificationToken}
		}).
		WithIndex("reset_token", func(u *domain.User) []string {
			return []string{u.PasswordResetToken}
		}).
		WithMultiIndex("status", func(u *domain.User) []string {
			status := u.Status
			if status == "" {
				status = domain.AccountActive
			}
			return []string{string(status)}
		}, nil)
}

// initRecipes initializes the Recipes entity on the store.
// Share entries are indexed under both keys so a requester can be matched
// by user id or by email.
func (s *Store) initRecipes() {
	s.Recipes = NewEntity[domain.Recipe](s, "recipe:").
		WithMultiIndex("owner", func(r *domain.Recipe) []string {
			return []string{r.OwnerID}
		}, nil).
		WithMultiIndex("visibility", func(r *domain.Recipe) []string {
			return []string{string(r.Visibility)}
		}, nil).
		WithMultiIndex("shared_user", func(r *domain.Recipe) []string {
			out := make([]string, 0, len(r.SharedWith))
			for _, e := range r.SharedWith {
				if id, ok := e.Identity.UserID(); ok {
					out = append(out, id)
				}
			}
			return out
		}, nil).
		WithMultiIndex("shared_email", func(r *domain.Recipe) []string {
			out := make([]string, 0, len(r.SharedWith))
			for _, e := range r.SharedWith {
				if email, ok := e.Identity.Email(); ok {
					out = append(out, email)
				}
			}
			return out
		}, normalizeEmail)
}

func normalizeEmail(email string) string {
	return domain.NormalizeEmail(email)
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
