package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerCollectionRoutes(bearer []map[string][]string) {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/collections",
		Summary:     "List collections",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCollection",
		Method:        http.MethodPost,
		Path:          "/api/v1/users/collections",
		Summary:       "Create collection",
		Description:   "Collection names are unique per user, ignoring case",
		Tags:          []string{"Collections"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/collections/{collectionId}",
		Summary:     "Get collection",
		Description: "Returns a collection with the recipes the caller can still read",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCollection",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/collections/{collectionId}",
		Summary:     "Update collection",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleUpdateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCollection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/collections/{collectionId}",
		Summary:     "Delete collection",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleDeleteCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addCollectionRecipe",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/collections/{collectionId}/recipes/{recipeId}",
		Summary:     "Add recipe to collection",
		Description: "Adds a readable recipe. Adding a recipe twice is a no-op.",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleAddCollectionRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCollectionRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/collections/{collectionId}/recipes/{recipeId}",
		Summary:     "Remove recipe from collection",
		Tags:        []string{"Collections"},
		Security:    bearer,
	}, s.handleRemoveCollectionRecipe)
}

// CollectionsOutput wraps the caller's collections for Huma.
type CollectionsOutput struct {
	Body []domain.Collection
}

// CollectionIDInput identifies a collection in the path.
type CollectionIDInput struct {
	CollectionID string `path:"collectionId" doc:"Collection ID"`
}

// CollectionViewOutput wraps a collection with its recipes for Huma.
type CollectionViewOutput struct {
	Body *service.CollectionView
}

// CreateCollectionInput wraps a new collection for Huma.
type CreateCollectionInput struct {
	Body service.CollectionRequest
}

// UpdateCollectionInput wraps a collection update for Huma.
type UpdateCollectionInput struct {
	CollectionID string `path:"collectionId" doc:"Collection ID"`
	Body         service.CollectionRequest
}

// CollectionOutput wraps a collection for Huma.
type CollectionOutput struct {
	Body *domain.Collection
}

// CollectionRecipeInput identifies a recipe inside a collection.
type CollectionRecipeInput struct {
	CollectionID string `path:"collectionId" doc:"Collection ID"`
	RecipeID     string `path:"recipeId" doc:"Recipe ID"`
}

func (s *Server) handleListCollections(ctx context.Context, _ *struct{}) (*CollectionsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	collections, err := s.services.Collection.List(ctx, user)
	if err != nil {
		return nil, err
	}
	return &CollectionsOutput{Body: collections}, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Create(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *CollectionIDInput) (*CollectionViewOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.services.Collection.Get(ctx, user, input.CollectionID)
	if err != nil {
		return nil, err
	}
	return &CollectionViewOutput{Body: view}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Update(ctx, user, input.CollectionID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *CollectionIDInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Collection.Delete(ctx, user, input.CollectionID); err != nil {
		return nil, err
	}
	return message("Collection deleted"), nil
}

func (s *Server) handleAddCollectionRecipe(ctx context.Context, input *CollectionRecipeInput) (*CollectionOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.AddRecipe(ctx, user, input.CollectionID, input.RecipeID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleRemoveCollectionRecipe(ctx context.Context, input *CollectionRecipeInput) (*CollectionOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.RemoveRecipe(ctx, user, input.CollectionID, input.RecipeID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: c}, nil
}
