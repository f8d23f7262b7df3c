package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "adminStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Dashboard statistics",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Get user",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminSetUserStatus",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}/status",
		Summary:     "Set account status",
		Description: "Suspends, tombstones or reactivates an account. Admins cannot change their own status.",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminSetUserStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminPromoteUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}/promote",
		Summary:     "Promote to admin",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminPromote)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDemoteUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}/demote",
		Summary:     "Demote to user",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDemote)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/recipes",
		Summary:     "List recipes",
		Description: "Lists recipes of any visibility, newest first",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/recipes/{id}",
		Summary:     "Remove recipe",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDeleteRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminSetRecipeVisibility",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/recipes/{id}/visibility",
		Summary:     "Override visibility",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminSetRecipeVisibility)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminAudit",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/audit",
		Summary:     "Moderation log",
		Description: "Lists moderation actions, newest first",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminAudit)
}

// === DTOs ===

// AdminStatsOutput wraps dashboard statistics for Huma.
type AdminStatsOutput struct {
	Body *service.AdminStats
}

// AdminListUsersInput contains parameters for the user listing.
type AdminListUsersInput struct {
	PageQuery
	Search    string `query:"search" maxLength:"200" doc:"Match name, email or username"`
	Status    string `query:"status" doc:"active, suspended or deleted"`
	SortBy    string `query:"sortBy" doc:"createdAt (default), name, email or lastLogin"`
	SortOrder string `query:"sortOrder" doc:"asc or desc (default)"`
}

// AdminUsersOutput wraps a page of users for Huma.
type AdminUsersOutput struct {
	Body *service.Listing[service.AdminUser]
}

// AdminUserOutput wraps one user for Huma.
type AdminUserOutput struct {
	Body *service.AdminUser
}

// AdminStatusInput wraps a status change for Huma.
type AdminStatusInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body service.StatusRequest
}

// AdminListRecipesInput contains parameters for the recipe listing.
type AdminListRecipesInput struct {
	PageQuery
	Search     string `query:"search" maxLength:"200" doc:"Match title or tags"`
	Visibility string `query:"visibility" doc:"Filter by visibility"`
	Category   string `query:"category" doc:"Filter by category"`
}

// AdminRecipesOutput wraps a page of recipes for Huma.
type AdminRecipesOutput struct {
	Body *service.Listing[service.RecipeCard]
}

// AdminDeleteRecipeInput identifies the recipe to remove.
type AdminDeleteRecipeInput struct {
	ID     string `path:"id" doc:"Recipe ID"`
	Reason string `query:"reason" maxLength:"500" doc:"Recorded in the moderation log"`
}

// AdminRecipeVisibilityInput wraps a visibility override for Huma.
type AdminRecipeVisibilityInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body service.RecipeVisibilityRequest
}

// AdminAuditInput filters the moderation log.
type AdminAuditInput struct {
	PageQuery
	ActorID    string `query:"actorId" doc:"Admin who acted"`
	TargetType string `query:"targetType" doc:"user or recipe"`
	TargetID   string `query:"targetId" doc:"Affected user or recipe"`
}

// AdminAuditOutput wraps a page of log entries for Huma.
type AdminAuditOutput struct {
	Body *service.Listing[*domain.AuditEntry]
}

// === Handlers ===

func (s *Server) handleAdminStats(ctx context.Context, _ *struct{}) (*AdminStatsOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.services.Admin.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminStatsOutput{Body: stats}, nil
}

func (s *Server) handleAdminListUsers(ctx context.Context, input *AdminListUsersInput) (*AdminUsersOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	page, err := s.services.Admin.ListUsers(ctx, service.UserListParams{
		PageParams: input.params(),
		Search:     input.Search,
		Status:     domain.AccountStatus(input.Status),
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	return &AdminUsersOutput{Body: page}, nil
}

func (s *Server) handleAdminGetUser(ctx context.Context, input *UserIDInput) (*AdminUserOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.services.Admin.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AdminUserOutput{Body: user}, nil
}

func (s *Server) handleAdminSetUserStatus(ctx context.Context, input *AdminStatusInput) (*AdminUserOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Admin.SetUserStatus(ctx, admin, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &AdminUserOutput{Body: user}, nil
}

func (s *Server) handleAdminPromote(ctx context.Context, input *UserIDInput) (*AdminUserOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Admin.Promote(ctx, admin, input.ID)
	if err != nil {
		return nil, err
	}
	return &AdminUserOutput{Body: user}, nil
}

func (s *Server) handleAdminDemote(ctx context.Context, input *UserIDInput) (*AdminUserOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Admin.Demote(ctx, admin, input.ID)
	if err != nil {
		return nil, err
	}
	return &AdminUserOutput{Body: user}, nil
}

func (s *Server) handleAdminListRecipes(ctx context.Context, input *AdminListRecipesInput) (*AdminRecipesOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	page, err := s.services.Admin.ListRecipes(ctx, service.RecipeListParams{
		PageParams: input.params(),
		Search:     input.Search,
		Visibility: domain.Visibility(input.Visibility),
		Category:   domain.Category(input.Category),
	})
	if err != nil {
		return nil, err
	}
	return &AdminRecipesOutput{Body: page}, nil
}

func (s *Server) handleAdminDeleteRecipe(ctx context.Context, input *AdminDeleteRecipeInput) (*MessageOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Admin.DeleteRecipe(ctx, admin, input.ID, input.Reason); err != nil {
		return nil, err
	}
	return message("Recipe removed"), nil
}

func (s *Server) handleAdminSetRecipeVisibility(ctx context.Context, input *AdminRecipeVisibilityInput) (*RecipeOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	recipe, err := s.services.Admin.SetRecipeVisibility(ctx, admin, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &RecipeOutput{Body: recipe}, nil
}

func (s *Server) handleAdminAudit(ctx context.Context, input *AdminAuditInput) (*AdminAuditOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	page, err := s.services.Admin.Audit(ctx, service.AuditParams{
		PageParams: input.params(),
		ActorID:    input.ActorID,
		TargetType: domain.AuditTarget(input.TargetType),
		TargetID:   input.TargetID,
	})
	if err != nil {
		return nil, err
	}
	return &AdminAuditOutput{Body: page}, nil
}
