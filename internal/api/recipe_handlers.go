package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerRecipeRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/mine",
		Summary:     "List my recipes",
		Description: "Returns the caller's recipes, filtered and sorted",
		Tags:        []string{"Recipes"},
		Security:    bearer,
	}, s.handleListMyRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/favorites",
		Summary:     "List favorites",
		Description: "Returns the recipes the caller has favorited",
		Tags:        []string{"Recipes"},
		Security:    bearer,
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipe",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Get recipe",
		Description: "Returns a recipe the caller may read and counts the view. Public recipes need no token.",
		Tags:        []string{"Recipes"},
	}, s.handleGetRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createRecipe",
		Method:        http.MethodPost,
		Path:          "/api/v1/recipes",
		Summary:       "Create recipe",
		Description:   "Creates a recipe owned by the caller. Visibility defaults to public.",
		Tags:          []string{"Recipes"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecipe",
		Method:      http.MethodPut,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Update recipe",
		Description: "Replaces recipe content. Owners and edit collaborators only; only owners may change visibility.",
		Tags:        []string{"Recipes"},
		Security:    bearer,
	}, s.handleUpdateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Delete recipe",
		Tags:        []string{"Recipes"},
		Security:    bearer,
	}, s.handleDeleteRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes/{id}/favorite",
		Summary:     "Toggle favorite",
		Description: "Favorites or unfavorites a readable recipe",
		Tags:        []string{"Recipes"},
		Security:    bearer,
	}, s.handleToggleFavorite)
}

// === DTOs ===

// RecipeFilterParams are the list filters shared by recipe listings.
type RecipeFilterParams struct {
	Category string `query:"category" doc:"Filter by category"`
	Region   string `query:"region" doc:"Filter by region"`
	Search   string `query:"search" maxLength:"200" doc:"Match title or tags"`
}

func (p RecipeFilterParams) filter() service.RecipeFilter {
	return service.RecipeFilter{
		Category: domain.Category(p.Category),
		Region:   domain.Region(p.Region),
		Search:   p.Search,
	}
}

// ListMyRecipesInput contains parameters for listing own recipes.
type ListMyRecipesInput struct {
	RecipeFilterParams
	Visibility string `query:"visibility" doc:"Filter by visibility"`
	Sort       string `query:"sort" doc:"-createdAt (default), createdAt, title, -title, -rating, -views or -likes"`
}

// RecipeCardsOutput wraps a list of recipe cards for Huma.
type RecipeCardsOutput struct {
	Body []service.RecipeCard
}

// RecipeIDInput identifies a recipe in the path.
type RecipeIDInput struct {
	ID string `path:"id" doc:"Recipe ID"`
}

// RecipeViewOutput wraps a readable recipe for Huma.
type RecipeViewOutput struct {
	Body *service.RecipeView
}

// CreateRecipeInput wraps the create request for Huma.
type CreateRecipeInput struct {
	Body service.CreateRecipeRequest
}

// UpdateRecipeInput wraps the update request for Huma.
type UpdateRecipeInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body service.UpdateRecipeRequest
}

// RecipeOutput wraps a stored recipe for Huma.
type RecipeOutput struct {
	Body *domain.Recipe
}

// FavoriteOutput wraps the favorite state for Huma.
type FavoriteOutput struct {
	Body *service.FavoriteResult
}

// === Handlers ===

func (s *Server) handleListMyRecipes(ctx context.Context, input *ListMyRecipesInput) (*RecipeCardsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	req := service.MineRequest{RecipeFilter: input.filter(), Sort: input.Sort}
	req.Visibility = domain.Visibility(input.Visibility)

	recipes, err := s.services.Recipe.Mine(ctx, user, req)
	if err != nil {
		return nil, err
	}
	return &RecipeCardsOutput{Body: recipes}, nil
}

func (s *Server) handleListFavorites(ctx context.Context, _ *struct{}) (*RecipeCardsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipes, err := s.services.Engagement.ListFavorites(ctx, user)
	if err != nil {
		return nil, err
	}
	return &RecipeCardsOutput{Body: recipes}, nil
}

func (s *Server) handleGetRecipe(ctx context.Context, input *RecipeIDInput) (*RecipeViewOutput, error) {
	view, err := s.services.Recipe.Get(ctx, CurrentUser(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &RecipeViewOutput{Body: view}, nil
}

func (s *Server) handleCreateRecipe(ctx context.Context, input *CreateRecipeInput) (*RecipeOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipe, err := s.services.Recipe.Create(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &RecipeOutput{Body: recipe}, nil
}

func (s *Server) handleUpdateRecipe(ctx context.Context, input *UpdateRecipeInput) (*RecipeOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipe, err := s.services.Recipe.Update(ctx, user, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &RecipeOutput{Body: recipe}, nil
}

func (s *Server) handleDeleteRecipe(ctx context.Context, input *RecipeIDInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Recipe.Delete(ctx, user, input.ID); err != nil {
		return nil, err
	}
	return message("Recipe deleted"), nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *RecipeIDInput) (*FavoriteOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.services.Engagement.ToggleFavorite(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &FavoriteOutput{Body: result}, nil
}
