package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerSharingRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "shareRecipe",
		Method:      http.MethodPost,
		Path:        "/api/v1/sharing/{id}/share",
		Summary:     "Share recipe",
		Description: "Grants view, copy or edit on a recipe to one or more email addresses. Owner only.",
		Tags:        []string{"Sharing"},
		Security:    bearer,
	}, s.handleShareRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRecipeVisibility",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sharing/{id}/visibility",
		Summary:     "Set visibility",
		Description: "Changes a recipe's visibility. Private clears every share. Owner only.",
		Tags:        []string{"Sharing"},
		Security:    bearer,
	}, s.handleSetVisibility)

	huma.Register(s.api, huma.Operation{
		OperationID: "unshareRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sharing/{id}/share",
		Summary:     "Unshare recipe",
		Description: "Removes share entries for the given addresses. Owner only.",
		Tags:        []string{"Sharing"},
		Security:    bearer,
	}, s.handleUnshareRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "sharedWithMe",
		Method:      http.MethodGet,
		Path:        "/api/v1/sharing/shared-with-me",
		Summary:     "Shared with me",
		Description: "Lists recipes shared with the caller, newest share first",
		Tags:        []string{"Sharing"},
		Security:    bearer,
	}, s.handleSharedWithMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "publicFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/sharing/public",
		Summary:     "Public feed",
		Description: "Pages through public recipes, excluding the caller's own",
		Tags:        []string{"Discovery"},
	}, s.handlePublicFeed)

	huma.Register(s.api, huma.Operation{
		OperationID:   "copyRecipe",
		Method:        http.MethodPost,
		Path:          "/api/v1/sharing/{id}/copy",
		Summary:       "Copy recipe",
		Description:   "Creates a private copy of a recipe the caller may copy",
		Tags:          []string{"Sharing"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCopyRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/sharing/{id}/comments",
		Summary:     "List comments",
		Tags:        []string{"Comments"},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID: "upsertComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/sharing/{id}/comments",
		Summary:     "Comment on recipe",
		Description: "Adds the caller's comment, or replaces it if they already left one",
		Tags:        []string{"Comments"},
		Security:    bearer,
	}, s.handleUpsertComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sharing/{id}/comments/{commentId}",
		Summary:     "Delete comment",
		Description: "Deletes a comment. Its author or the recipe owner only.",
		Tags:        []string{"Comments"},
		Security:    bearer,
	}, s.handleDeleteComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSharingDetails",
		Method:      http.MethodGet,
		Path:        "/api/v1/sharing/{id}/sharing",
		Summary:     "Sharing details",
		Description: "Returns visibility and share entries with recipient names. Owner only.",
		Tags:        []string{"Sharing"},
		Security:    bearer,
	}, s.handleSharingDetails)
}

// === DTOs ===

// ShareInput wraps the share request for Huma.
type ShareInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body service.ShareRequest
}

// ShareResponse reports the outcome per address.
type ShareResponse struct {
	Results []service.ShareResult `json:"results" doc:"One outcome per address"`
}

// ShareOutput wraps the share response for Huma.
type ShareOutput struct {
	Body ShareResponse
}

// VisibilityRequest changes a recipe's visibility.
type VisibilityRequest struct {
	Visibility string `json:"visibility" doc:"private, shared or public"`
}

// VisibilityInput wraps the visibility request for Huma.
type VisibilityInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body VisibilityRequest
}

// UnshareRequest lists the addresses to remove.
type UnshareRequest struct {
	Emails []string `json:"emails" minItems:"1" maxItems:"50" doc:"Addresses to remove"`
}

// UnshareInput wraps the unshare request for Huma.
type UnshareInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body UnshareRequest
}

// UnshareResponse reports how many entries were removed.
type UnshareResponse struct {
	Removed int `json:"removed" doc:"Number of share entries removed"`
}

// UnshareOutput wraps the unshare response for Huma.
type UnshareOutput struct {
	Body UnshareResponse
}

// SharedWithMeInput contains filters for the shared-with-me listing.
type SharedWithMeInput struct {
	RecipeFilterParams
}

// SharedRecipesOutput wraps shared recipes for Huma.
type SharedRecipesOutput struct {
	Body []service.SharedRecipe
}

// PublicFeedInput contains parameters for the public feed.
type PublicFeedInput struct {
	RecipeFilterParams
	PageQuery
	Sort string `query:"sort" doc:"-createdAt (default), createdAt, -views, -likes, -rating or title"`
}

// FeedOutput wraps a feed page for Huma.
type FeedOutput struct {
	Body *service.FeedPage
}

// CommentsOutput wraps a recipe's comments for Huma.
type CommentsOutput struct {
	Body []service.CommentView
}

// CommentInput wraps a comment upsert for Huma.
type CommentInput struct {
	ID   string `path:"id" doc:"Recipe ID"`
	Body service.CommentRequest
}

// CommentOutput wraps the comment result for Huma.
type CommentOutput struct {
	Body *service.CommentResult
}

// DeleteCommentInput identifies a comment.
type DeleteCommentInput struct {
	ID        string `path:"id" doc:"Recipe ID"`
	CommentID string `path:"commentId" doc:"Comment ID"`
}

// SharingDetailsOutput wraps sharing details for Huma.
type SharingDetailsOutput struct {
	Body *service.SharingDetails
}

// === Handlers ===

func (s *Server) handleShareRecipe(ctx context.Context, input *ShareInput) (*ShareOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.services.Sharing.ShareWith(ctx, user, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ShareOutput{Body: ShareResponse{Results: results}}, nil
}

func (s *Server) handleSetVisibility(ctx context.Context, input *VisibilityInput) (*RecipeOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipe, err := s.services.Sharing.SetVisibility(ctx, user, input.ID, domain.Visibility(input.Body.Visibility))
	if err != nil {
		return nil, err
	}
	return &RecipeOutput{Body: recipe}, nil
}

func (s *Server) handleUnshareRecipe(ctx context.Context, input *UnshareInput) (*UnshareOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	removed, err := s.services.Sharing.Unshare(ctx, user, input.ID, input.Body.Emails)
	if err != nil {
		return nil, err
	}
	return &UnshareOutput{Body: UnshareResponse{Removed: removed}}, nil
}

func (s *Server) handleSharedWithMe(ctx context.Context, input *SharedWithMeInput) (*SharedRecipesOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipes, err := s.services.Sharing.SharedWithMe(ctx, user, input.filter())
	if err != nil {
		return nil, err
	}
	return &SharedRecipesOutput{Body: recipes}, nil
}

func (s *Server) handlePublicFeed(ctx context.Context, input *PublicFeedInput) (*FeedOutput, error) {
	page, err := s.services.Discovery.PublicFeed(ctx, CurrentUser(ctx), service.FeedParams{
		PageParams: input.params(),
		Category:   domain.Category(input.Category),
		Region:     domain.Region(input.Region),
		Search:     input.Search,
		Sort:       input.Sort,
	})
	if err != nil {
		return nil, err
	}
	return &FeedOutput{Body: page}, nil
}

func (s *Server) handleCopyRecipe(ctx context.Context, input *RecipeIDInput) (*RecipeOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	recipe, err := s.services.Engagement.CopyRecipe(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &RecipeOutput{Body: recipe}, nil
}

func (s *Server) handleListComments(ctx context.Context, input *RecipeIDInput) (*CommentsOutput, error) {
	comments, err := s.services.Comment.List(ctx, CurrentUser(ctx), input.ID)
	if err != nil {
		return nil, err
	}
	return &CommentsOutput{Body: comments}, nil
}

func (s *Server) handleUpsertComment(ctx context.Context, input *CommentInput) (*CommentOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.services.Comment.Upsert(ctx, user, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: result}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *DeleteCommentInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Comment.Delete(ctx, user, input.ID, input.CommentID); err != nil {
		return nil, err
	}
	return message("Comment deleted"), nil
}

func (s *Server) handleSharingDetails(ctx context.Context, input *RecipeIDInput) (*SharingDetailsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	details, err := s.services.Sharing.SharingDetails(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}
	return &SharingDetailsOutput{Body: details}, nil
}
