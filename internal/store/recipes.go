package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// CreateRecipe stores a new recipe.
func (s *Store) CreateRecipe(ctx context.Context, recipe *domain.Recipe) error {
	if err := s.Recipes.Create(ctx, recipe.ID, recipe); err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	s.recipeChanged(ctx, recipe)
	return nil
}

// GetRecipe retrieves a recipe by ID.
func (s *Store) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	return s.Recipes.Get(ctx, id)
}

// GetRecipes loads recipes by id in the given order, skipping missing ids.
func (s *Store) GetRecipes(ctx context.Context, ids []string) ([]*domain.Recipe, error) {
	return s.Recipes.GetMany(ctx, ids)
}

// MutateRecipe applies fn to the stored recipe and persists the result
// atomically. touch controls whether the update timestamp moves; counters
// such as views leave it alone.
func (s *Store) MutateRecipe(ctx context.Context, id string, touch bool, fn func(*domain.Recipe) error) (*domain.Recipe, error) {
	recipe, err := s.Recipes.Mutate(ctx, id, func(r *domain.Recipe) error {
		if err := fn(r); err != nil {
			return err
		}
		if touch {
			r.Touch()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recipeChanged(ctx, recipe)
	return recipe, nil
}

// DeleteRecipe removes a recipe. Deleting a missing recipe is not an error.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	if err := s.Recipes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.recipeRemoved(ctx, id)
	return nil
}

// ListRecipes returns every recipe.
func (s *Store) ListRecipes(ctx context.Context) ([]*domain.Recipe, error) {
	return s.Recipes.All(ctx)
}

// ListRecipesByOwner returns the recipes owned by a user.
func (s *Store) ListRecipesByOwner(ctx context.Context, ownerID string) ([]*domain.Recipe, error) {
	return s.Recipes.ListByIndex(ctx, "owner", ownerID)
}

// ListRecipesByVisibility returns recipes with the given visibility.
func (s *Store) ListRecipesByVisibility(ctx context.Context, v domain.Visibility) ([]*domain.Recipe, error) {
	return s.Recipes.ListByIndex(ctx, "visibility", string(v))
}

// ListRecipesSharedWith returns recipes carrying a share entry for the user
// id or for the email address. Each recipe appears once.
func (s *Store) ListRecipesSharedWith(ctx context.Context, userID, email string) ([]*domain.Recipe, error) {
	var ids []string
	if userID != "" {
		byUser, err := s.Recipes.ListIDsByIndex(ctx, "shared_user", userID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, byUser...)
	}
	if email != "" {
		byEmail, err := s.Recipes.ListIDsByIndex(ctx, "shared_email", email)
		if err != nil {
			return nil, err
		}
		for _, id := range byEmail {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return s.Recipes.GetMany(ctx, ids)
}
