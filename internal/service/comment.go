package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// CommentService manages comments and ratings on recipes. Each user has at
// most one comment per recipe.
type CommentService struct {
	users     UserStore
	recipes   RecipeStore
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCommentService creates a new comment service.
func NewCommentService(users UserStore, recipes RecipeStore, notifier Notifier, v *validation.Validator, log *slog.Logger) *CommentService {
	return &CommentService{
		users:     users,
		recipes:   recipes,
		notifier:  orNoopNotifier(notifier),
		validator: v,
		logger:    logger.OrDiscard(log),
	}
}

// CommentRequest is the body of a comment upsert.
type CommentRequest struct {
	Text   string `json:"text" validate:"required,max=1000"`
	Rating *int   `json:"rating,omitempty"`
}

// CommentView is a comment with its author.
type CommentView struct {
	domain.Comment
	Author UserSummary `json:"author"`
}

// CommentResult is returned by Upsert.
type CommentResult struct {
	Comment       CommentView   `json:"comment"`
	Comments      []CommentView `json:"comments"`
	Updated       bool          `json:"updated"`
	AverageRating float64       `json:"average_rating"`
}

// Upsert stores the requester's comment on a recipe, replacing any comment
// they already left.
func (s *CommentService) Upsert(ctx context.Context, requester *domain.User, recipeID string, req CommentRequest) (*CommentResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !domain.ValidCommentRating(req.Rating) {
		return nil, domainerrors.ValidationWithDetails("rating must be between 1 and 5",
			map[string]string{"rating": "must be between 1 and 5"})
	}

	_, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanComment() {
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}

	var (
		stored  domain.Comment
		updated bool
	)
	newID := id.Comment()
	recipe, err := s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		stored, updated = r.UpsertComment(newID, requester.ID, req.Text, req.Rating, time.Now())
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "recipe")
	}

	if !updated && !recipe.IsOwnedBy(requester.ID) {
		s.notifyOwner(ctx, recipe, requester, req.Text)
	}

	views, err := s.views(ctx, recipe.Comments)
	if err != nil {
		return nil, err
	}
	res := &CommentResult{
		Comments:      views,
		Updated:       updated,
		AverageRating: domain.RoundRating(s.AverageRating(recipe)),
	}
	for _, v := range views {
		if v.ID == stored.ID {
			res.Comment = v
		}
	}

	s.logger.Info("comment saved",
		"recipe_id", recipeID,
		"user_id", requester.ID,
		"updated", updated,
	)
	return res, nil
}

func (s *CommentService) notifyOwner(ctx context.Context, recipe *domain.Recipe, author *domain.User, text string) {
	owner, err := s.users.GetUser(ctx, recipe.OwnerID)
	if err != nil {
		s.logger.Warn("comment notification skipped", "recipe_id", recipe.ID, "error", err)
		return
	}
	if owner.Preferences.EmailNotifications.Comments {
		s.notifier.SendNewComment(owner, author, recipe, text)
	}
}

// Delete removes a comment. The comment's author and the recipe owner may
// delete it.
func (s *CommentService) Delete(ctx context.Context, requester *domain.User, recipeID, commentID string) error {
	recipe, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return err
	}
	c, ok := recipe.Comment(commentID)
	if !ok {
		return domainerrors.NotFound("comment not found")
	}
	if c.UserID != requester.ID && !grant.CanManage() {
		return domainerrors.Forbidden("you can only delete your own comments")
	}

	_, err = s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		if !r.RemoveComment(commentID) {
			return domainerrors.NotFound("comment not found")
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "recipe")
	}

	s.logger.Info("comment deleted", "recipe_id", recipeID, "comment_id", commentID, "user_id", requester.ID)
	return nil
}

// List returns a recipe's comments with their authors.
func (s *CommentService) List(ctx context.Context, requester *domain.User, recipeID string) ([]CommentView, error) {
	recipe, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanRead() {
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}
	return s.views(ctx, recipe.Comments)
}

// AverageRating is the mean of the rated comments on recipe, or the
// recipe's own rating when none are rated.
func (s *CommentService) AverageRating(recipe *domain.Recipe) float64 {
	return recipe.AverageRating()
}

func (s *CommentService) views(ctx context.Context, comments []domain.Comment) ([]CommentView, error) {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	authors, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, storeErr(err, "comment authors")
	}

	out := make([]CommentView, len(comments))
	for i, c := range comments {
		out[i] = CommentView{Comment: c, Author: SummarizeUser(authors[c.UserID])}
		if out[i].Author.ID == "" {
			out[i].Author.ID = c.UserID
		}
	}
	return out, nil
}
