package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/store"
)

// storeErr converts store sentinels into domain errors. what names the
// entity for the client-facing message, e.g. "recipe".
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case store.IsNotFound(err):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case store.IsAlreadyExists(err):
		return domainerrors.AlreadyExistsf("%s already exists", what).WithCause(err)
	case domainerrors.IsExpected(err):
		return err
	}
	return fmt.Errorf("%s: %w", what, err)
}

// loadRecipe fetches a recipe and resolves the requester's grant on it.
// requester may be nil for anonymous callers.
func loadRecipe(ctx context.Context, recipes RecipeStore, requester *domain.User, recipeID string) (*domain.Recipe, access.Grant, error) {
	r, err := recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, access.Grant{}, storeErr(err, "recipe")
	}
	return r, access.Resolve(r, access.RequesterFor(requester)), nil
}

// requireOwner loads a recipe the requester must own.
func requireOwner(ctx context.Context, recipes RecipeStore, requester *domain.User, recipeID, action string) (*domain.Recipe, error) {
	r, grant, err := loadRecipe(ctx, recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanManage() {
		return nil, domainerrors.Forbiddenf("only the recipe owner can %s", action)
	}
	return r, nil
}

// UserSummary is the public card of a user shown next to recipes,
// comments and search results.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// SummarizeUser builds a UserSummary. A nil user yields the zero value.
func SummarizeUser(u *domain.User) UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Picture:  u.Profile.Picture,
	}
}

// usersByID loads users and indexes them by id. Missing ids are skipped.
func usersByID(ctx context.Context, users UserStore, ids []string) (map[string]*domain.User, error) {
	list, err := users.GetUsers(ctx, compactIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(list))
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// RecipeFilter narrows an in-memory recipe list.
type RecipeFilter struct {
	Category   domain.Category   `json:"category,omitempty"`
	Region     domain.Region     `json:"region,omitempty"`
	Visibility domain.Visibility `json:"visibility,omitempty"`
	Search     string            `json:"search,omitempty"`
}

// Match reports whether r passes every set filter.
func (f RecipeFilter) Match(r *domain.Recipe) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Visibility != "" && r.Visibility != f.Visibility {
		return false
	}
	return r.MatchesText(f.Search)
}

// sortRecipes orders recipes in place by one of the search sort keys.
// Unknown keys fall back to newest first.
func sortRecipes(recipes []*domain.Recipe, key string) {
	var less func(a, b *domain.Recipe) int
	switch key {
	case search.SortOldest:
		less = func(a, b *domain.Recipe) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case search.SortTitle:
		less = func(a, b *domain.Recipe) int { return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case search.SortTitleZA:
		less = func(a, b *domain.Recipe) int { return cmp.Compare(strings.ToLower(b.Title), strings.ToLower(a.Title)) }
	case search.SortRating:
		less = func(a, b *domain.Recipe) int { return cmp.Compare(b.AverageRating(), a.AverageRating()) }
	case search.SortViews:
		less = func(a, b *domain.Recipe) int { return cmp.Compare(b.Views, a.Views) }
	case search.SortLikes:
		less = func(a, b *domain.Recipe) int { return cmp.Compare(b.LikeCount(), a.LikeCount()) }
	default:
		less = func(a, b *domain.Recipe) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(recipes, func(a, b *domain.Recipe) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// RecipeCard is the compact listing form of a recipe.
type RecipeCard struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Category      domain.Category   `json:"category,omitempty"`
	Region        domain.Region     `json:"region,omitempty"`
	Tags          []string          `json:"tags"`
	Photo         *domain.Photo     `json:"photo,omitempty"`
	TotalTime     int               `json:"total_time"`
	Servings      int               `json:"servings"`
	Visibility    domain.Visibility `json:"visibility"`
	Views         int               `json:"views"`
	LikeCount     int               `json:"like_count"`
	CommentCount  int               `json:"comment_count"`
	AverageRating float64           `json:"average_rating"`
	Owner         UserSummary       `json:"owner"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Card builds the listing form of r. owner may be nil.
func Card(r *domain.Recipe, owner *domain.User) RecipeCard {
	c := RecipeCard{
		ID:            r.ID,
		Title:         r.Title,
		Category:      r.Category,
		Region:        r.Region,
		Tags:          r.Tags,
		TotalTime:     r.TotalTime(),
		Servings:      r.Servings,
		Visibility:    r.Visibility,
		Views:         r.Views,
		LikeCount:     r.LikeCount(),
		CommentCount:  len(r.Comments),
		AverageRating: domain.RoundRating(r.AverageRating()),
		Owner:         SummarizeUser(owner),
		CreatedAt:     r.CreatedAt,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if len(r.Photos) > 0 {
		p := r.Photos[0]
		c.Photo = &p
	}
	if owner == nil {
		c.Owner.ID = r.OwnerID
	}
	return c
}

// cards builds listing forms for recipes, loading their owners in one pass.
func cards(ctx context.Context, users UserStore, recipes []*domain.Recipe) ([]RecipeCard, error) {
	ownerIDs := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ownerIDs = append(ownerIDs, r.OwnerID)
	}
	owners, err := usersByID(ctx, users, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipe owners: %w", err)
	}
	out := make([]RecipeCard, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, Card(r, owners[r.OwnerID]))
	}
	return out, nil
}
