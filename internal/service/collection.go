package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// CollectionService manages the named recipe lists embedded in a user.
// Collection names are unique per user.
type CollectionService struct {
	users     UserStore
	recipes   RecipeStore
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(users UserStore, recipes RecipeStore, v *validation.Validator, log *slog.Logger) *CollectionService {
	return &CollectionService{
		users:     users,
		recipes:   recipes,
		validator: v,
		logger:    logger.OrDiscard(log),
	}
}

// CollectionRequest creates or updates a collection.
type CollectionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	IsPublic    bool   `json:"is_public,omitempty"`
}

// CollectionView is a collection with its readable recipes.
type CollectionView struct {
	domain.Collection
	Recipes []RecipeCard `json:"recipes"`
}

// List returns the requester's collections.
func (s *CollectionService) List(ctx context.Context, requester *domain.User) ([]domain.Collection, error) {
	u, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if u.Collections == nil {
		return []domain.Collection{}, nil
	}
	return u.Collections, nil
}

// Get returns one of the requester's collections with recipe cards.
// Recipes the requester can no longer read are left out.
func (s *CollectionService) Get(ctx context.Context, requester *domain.User, collectionID string) (*CollectionView, error) {
	u, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	c, ok := u.Collection(collectionID)
	if !ok {
		return nil, domainerrors.NotFound("collection not found")
	}

	recipes, err := s.recipes.GetRecipes(ctx, c.RecipeIDs)
	if err != nil {
		return nil, fmt.Errorf("load collection recipes: %w", err)
	}
	req := access.RequesterFor(u)
	readable := recipes[:0]
	for _, r := range recipes {
		if access.Resolve(r, req).CanRead() {
			readable = append(readable, r)
		}
	}
	cs, err := cards(ctx, s.users, readable)
	if err != nil {
		return nil, err
	}
	return &CollectionView{Collection: *c, Recipes: cs}, nil
}

// Create adds a collection.
func (s *CollectionService) Create(ctx context.Context, requester *domain.User, req CollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	collectionID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, fmt.Errorf("generate collection ID: %w", err)
	}

	c := domain.Collection{
		ID:          collectionID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsPublic:    req.IsPublic,
		RecipeIDs:   []string{},
		CreatedAt:   time.Now(),
	}
	if _, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		if u.HasCollectionNamed(name, "") {
			return domainerrors.AlreadyExistsf("a collection named %q already exists", name)
		}
		u.Collections = append(u.Collections, c)
		return nil
	}); err != nil {
		return nil, storeErr(err, "user")
	}

	s.logger.Info("collection created", "user_id", requester.ID, "collection_id", c.ID)
	return &c, nil
}

// Update renames or re-describes a collection.
func (s *CollectionService) Update(ctx context.Context, requester *domain.User, collectionID string, req CollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)

	var out domain.Collection
	if _, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		c, ok := u.Collection(collectionID)
		if !ok {
			return domainerrors.NotFound("collection not found")
		}
		if u.HasCollectionNamed(name, collectionID) {
			return domainerrors.AlreadyExistsf("a collection named %q already exists", name)
		}
		c.Name = name
		c.Description = strings.TrimSpace(req.Description)
		c.IsPublic = req.IsPublic
		out = *c
		return nil
	}); err != nil {
		return nil, storeErr(err, "user")
	}
	return &out, nil
}

// Delete removes a collection. The recipes in it are untouched.
func (s *CollectionService) Delete(ctx context.Context, requester *domain.User, collectionID string) error {
	if _, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		if !u.RemoveCollection(collectionID) {
			return domainerrors.NotFound("collection not found")
		}
		return nil
	}); err != nil {
		return storeErr(err, "user")
	}
	s.logger.Info("collection deleted", "user_id", requester.ID, "collection_id", collectionID)
	return nil
}

// AddRecipe puts a readable recipe into a collection.
func (s *CollectionService) AddRecipe(ctx context.Context, requester *domain.User, collectionID, recipeID string) (*domain.Collection, error) {
	_, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanRead() {
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}
	return s.mutateCollection(ctx, requester, collectionID, func(c *domain.Collection) {
		c.AddRecipe(recipeID)
	})
}

// RemoveRecipe takes a recipe out of a collection.
func (s *CollectionService) RemoveRecipe(ctx context.Context, requester *domain.User, collectionID, recipeID string) (*domain.Collection, error) {
	return s.mutateCollection(ctx, requester, collectionID, func(c *domain.Collection) {
		c.RemoveRecipe(recipeID)
	})
}

func (s *CollectionService) mutateCollection(ctx context.Context, requester *domain.User, collectionID string, fn func(*domain.Collection)) (*domain.Collection, error) {
	var out domain.Collection
	if _, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		c, ok := u.Collection(collectionID)
		if !ok {
			return domainerrors.NotFound("collection not found")
		}
		fn(c)
		out = *c
		return nil
	}); err != nil {
		return nil, storeErr(err, "user")
	}
	return &out, nil
}
