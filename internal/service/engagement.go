package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/dualwrite"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
)

// EngagementService tracks favorites, views and copies.
//
// A favorite lives on both sides: the user's favorites list is
// authoritative for "is favorited", the recipe's likes set for the like
// count. Both are written through dualwrite.Pair and repaired on read.
type EngagementService struct {
	users   UserStore
	recipes RecipeStore
	logger  *slog.Logger
}

// NewEngagementService creates a new engagement service.
func NewEngagementService(users UserStore, recipes RecipeStore, log *slog.Logger) *EngagementService {
	return &EngagementService{
		users:   users,
		recipes: recipes,
		logger:  logger.OrDiscard(log),
	}
}

// FavoriteResult is the state after a toggle.
type FavoriteResult struct {
	Favorited bool `json:"is_favorited"`
	LikeCount int  `json:"like_count"`
}

// ToggleFavorite flips the requester's favorite on a recipe.
func (s *EngagementService) ToggleFavorite(ctx context.Context, requester *domain.User, recipeID string) (*FavoriteResult, error) {
	recipe, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanFavorite() {
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}

	var favorited bool
	likeCount := recipe.LikeCount()

	pair := dualwrite.Pair{
		Name: "favorite",
		Primary: func(ctx context.Context) error {
			_, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
				if u.HasFavorite(recipeID) {
					domain.RemoveString(&u.Favorites, recipeID)
					favorited = false
				} else {
					domain.AddString(&u.Favorites, recipeID)
					favorited = true
				}
				return nil
			})
			return storeErr(err, "user")
		},
		Secondary: func(ctx context.Context) error {
			updated, err := s.recipes.MutateRecipe(ctx, recipeID, false, func(r *domain.Recipe) error {
				setLike(r, requester.ID, favorited)
				return nil
			})
			if err != nil {
				return err
			}
			likeCount = updated.LikeCount()
			return nil
		},
	}

	res, err := pair.Do(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	if !res.Consistent() {
		// Report the count the mirror should have had.
		setLike(recipe, requester.ID, favorited)
		likeCount = recipe.LikeCount()
	}

	s.logger.Debug("favorite toggled", "user_id", requester.ID, "recipe_id", recipeID, "favorited", favorited)
	return &FavoriteResult{Favorited: favorited, LikeCount: likeCount}, nil
}

func setLike(r *domain.Recipe, userID string, liked bool) bool {
	if liked {
		return domain.AddString(&r.Likes, userID)
	}
	return domain.RemoveString(&r.Likes, userID)
}

// RegisterView counts a view of recipe by requester and returns the new
// view count. Every fetch except the owner's counts, anonymous ones
// included; there is no de-duplication.
func (s *EngagementService) RegisterView(ctx context.Context, recipe *domain.Recipe, requester *domain.User) (int, error) {
	if requester != nil && recipe.IsOwnedBy(requester.ID) {
		return recipe.Views, nil
	}
	updated, err := s.recipes.MutateRecipe(ctx, recipe.ID, false, func(r *domain.Recipe) error {
		r.Views++
		return nil
	})
	if err != nil {
		return recipe.Views, storeErr(err, "recipe")
	}
	recipe.Views = updated.Views
	return updated.Views, nil
}

// ReconcileLike brings the recipe's likes set in line with the reader's
// favorites list, which is authoritative. It covers both directions: a
// favorite whose like was never written and an un-favorite whose like was
// never removed. recipe is updated in place when a repair is applied.
func (s *EngagementService) ReconcileLike(ctx context.Context, recipe *domain.Recipe, reader *domain.User) bool {
	if reader == nil {
		return false
	}
	want := reader.HasFavorite(recipe.ID)
	return dualwrite.Repair(ctx, s.logger, "favorite", recipe.IsLikedBy(reader.ID) == want, func(ctx context.Context) error {
		updated, err := s.recipes.MutateRecipe(ctx, recipe.ID, false, func(r *domain.Recipe) error {
			setLike(r, reader.ID, want)
			return nil
		})
		if err != nil {
			return err
		}
		recipe.Likes = updated.Likes
		return nil
	})
}

// CopyRecipe clones a recipe into the requester's collection. The copy is
// private and unrated and records where it came from; the source's copy
// counter goes up by one.
func (s *EngagementService) CopyRecipe(ctx context.Context, requester *domain.User, recipeID string) (*domain.Recipe, error) {
	source, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanCopy() {
		if grant.Level == access.LevelView {
			return nil, domainerrors.Forbidden("you only have view access to this recipe")
		}
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}

	newID, err := id.Generate(id.PrefixRecipe)
	if err != nil {
		return nil, fmt.Errorf("generate recipe ID: %w", err)
	}
	fork := source.Fork(newID, requester.ID, time.Now())

	pair := dualwrite.Pair{
		Name: "recipe-owner",
		Primary: func(ctx context.Context) error {
			return storeErr(s.recipes.CreateRecipe(ctx, fork), "recipe")
		},
		Secondary: func(ctx context.Context) error {
			_, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
				domain.AddString(&u.Recipes, fork.ID)
				return nil
			})
			return err
		},
	}
	if _, err := pair.Do(ctx, s.logger); err != nil {
		return nil, err
	}

	if _, err := s.recipes.MutateRecipe(ctx, source.ID, false, func(r *domain.Recipe) error {
		r.Copies++
		return nil
	}); err != nil {
		s.logger.Warn("copy counter not updated", "recipe_id", source.ID, "error", err)
	}

	s.logger.Info("recipe copied",
		"recipe_id", fork.ID,
		"source_id", source.ID,
		"user_id", requester.ID,
	)
	return fork, nil
}

// ListFavorites returns the requester's favorite recipes in favorite order.
// Ids of deleted recipes are dropped from the user's list, and recipes
// missing the requester in their likes set get it back. Recipes the
// requester can no longer read are hidden but kept.
func (s *EngagementService) ListFavorites(ctx context.Context, requester *domain.User) ([]RecipeCard, error) {
	user, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	recipes, err := s.recipes.GetRecipes(ctx, user.Favorites)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	found := make(map[string]bool, len(recipes))
	req := access.RequesterFor(user)
	visible := make([]*domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		found[r.ID] = true
		dualwrite.Repair(ctx, s.logger, "favorite", r.IsLikedBy(user.ID), func(ctx context.Context) error {
			_, err := s.recipes.MutateRecipe(ctx, r.ID, false, func(r *domain.Recipe) error {
				setLike(r, user.ID, true)
				return nil
			})
			return err
		})
		if access.Resolve(r, req).CanRead() {
			visible = append(visible, r)
		}
	}

	var stale []string
	for _, fid := range user.Favorites {
		if !found[fid] {
			stale = append(stale, fid)
		}
	}
	dualwrite.Repair(ctx, s.logger, "favorite", len(stale) == 0, func(ctx context.Context) error {
		_, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
			for _, fid := range stale {
				domain.RemoveString(&u.Favorites, fid)
			}
			return nil
		})
		return err
	})

	return cards(ctx, s.users, visible)
}
