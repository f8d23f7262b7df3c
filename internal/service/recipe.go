package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/dualwrite"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/normalize"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// RecipeService handles recipe CRUD.
type RecipeService struct {
	users      UserStore
	recipes    RecipeStore
	engagement *EngagementService
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewRecipeService creates a new recipe service.
func NewRecipeService(users UserStore, recipes RecipeStore, engagement *EngagementService, v *validation.Validator, log *slog.Logger) *RecipeService {
	return &RecipeService{
		users:      users,
		recipes:    recipes,
		engagement: engagement,
		validator:  v,
		logger:     logger.OrDiscard(log),
	}
}

// RecipeInput is the editable content of a recipe.
type RecipeInput struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Ingredients  []string          `json:"ingredients,omitempty" validate:"max=200,dive,max=500"`
	Instructions []string          `json:"instructions,omitempty" validate:"max=200,dive,max=2000"`
	PrepTime     int               `json:"prep_time,omitempty" validate:"gte=0"`
	CookTime     int               `json:"cook_time,omitempty" validate:"gte=0"`
	Servings     int               `json:"servings,omitempty" validate:"gte=0"`
	Category     domain.Category   `json:"category,omitempty" validate:"category"`
	Region       domain.Region     `json:"region,omitempty" validate:"region"`
	Notes        string            `json:"notes,omitempty" validate:"max=10000"`
	Photos       []domain.Photo    `json:"photos,omitempty" validate:"max=20"`
	Tags         []string          `json:"tags,omitempty" validate:"max=30"`
	SourceURL    string            `json:"source_url,omitempty" validate:"omitempty,url"`
	Nutrition    *domain.Nutrition `json:"nutrition,omitempty"`
	Rating       float64           `json:"rating,omitempty" validate:"gte=0,lte=5"`
}

// CreateRecipeRequest creates a recipe. Visibility defaults to public.
type CreateRecipeRequest struct {
	RecipeInput
	Visibility domain.Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
}

// UpdateRecipeRequest replaces a recipe's content. Visibility may only be
// changed by the owner.
type UpdateRecipeRequest struct {
	RecipeInput
	Visibility *domain.Visibility `json:"visibility,omitempty"`
}

func (in RecipeInput) apply(r *domain.Recipe) {
	r.Title = in.Title
	r.Ingredients = normalize.Lines(in.Ingredients)
	r.Instructions = normalize.Lines(in.Instructions)
	r.PrepTime = in.PrepTime
	r.CookTime = in.CookTime
	r.Servings = max(in.Servings, 1)
	r.Category = in.Category
	r.Region = in.Region
	r.Notes = normalize.Notes(in.Notes)
	r.Photos = slices.Clone(in.Photos)
	r.Tags = normalize.Tags(in.Tags)
	r.SourceURL = in.SourceURL
	r.Nutrition = in.Nutrition
	r.Rating = in.Rating
	if r.Photos == nil {
		r.Photos = []domain.Photo{}
	}
}

// Create stores a new recipe owned by requester. Empty category, region and
// servings fall back to the owner's preferences.
func (s *RecipeService) Create(ctx context.Context, requester *domain.User, req CreateRecipeRequest) (*domain.Recipe, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	prefs := requester.Preferences
	if req.Category == "" {
		req.Category = prefs.DefaultCategory
	}
	if req.Region == "" {
		req.Region = prefs.DefaultRegion
	}
	if req.Servings == 0 {
		req.Servings = prefs.DefaultServings
	}
	if req.Visibility == "" {
		req.Visibility = domain.VisibilityPublic
	}

	recipeID, err := id.Generate(id.PrefixRecipe)
	if err != nil {
		return nil, fmt.Errorf("generate recipe ID: %w", err)
	}

	recipe := &domain.Recipe{
		OwnerID:    requester.ID,
		Visibility: req.Visibility,
		SharedWith: []domain.ShareEntry{},
		Likes:      []string{},
		Comments:   []domain.Comment{},
	}
	recipe.ID = recipeID
	recipe.InitTimestamps()
	req.apply(recipe)

	pair := dualwrite.Pair{
		Name: "recipe-owner",
		Primary: func(ctx context.Context) error {
			return storeErr(s.recipes.CreateRecipe(ctx, recipe), "recipe")
		},
		Secondary: func(ctx context.Context) error {
			_, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
				domain.AddString(&u.Recipes, recipe.ID)
				return nil
			})
			return err
		},
	}
	if _, err := pair.Do(ctx, s.logger); err != nil {
		return nil, err
	}

	s.logger.Info("recipe created", "recipe_id", recipe.ID, "user_id", requester.ID)
	return recipe, nil
}

// RecipeView is a recipe as returned to a reader.
type RecipeView struct {
	*domain.Recipe
	Owner         UserSummary   `json:"owner"`
	Comments      []CommentView `json:"comments"`
	Access        access.Level  `json:"access"`
	TotalTime     int           `json:"total_time"`
	LikeCount     int           `json:"like_count"`
	AverageRating float64       `json:"average_rating"`
	IsFavorited   bool          `json:"is_favorited"`
	Permissions   RecipeActions `json:"permissions"`
}

// RecipeActions lists what the reader may do.
type RecipeActions struct {
	CanEdit    bool `json:"can_edit"`
	CanCopy    bool `json:"can_copy"`
	CanComment bool `json:"can_comment"`
	CanManage  bool `json:"can_manage"`
}

// Get returns a recipe the requester may read and counts the view.
// requester is nil for anonymous callers.
func (s *RecipeService) Get(ctx context.Context, requester *domain.User, recipeID string) (*RecipeView, error) {
	recipe, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanRead() {
		return nil, domainerrors.Forbidden("you do not have access to this recipe")
	}

	if s.engagement != nil {
		s.engagement.ReconcileLike(ctx, recipe, requester)
		if _, err := s.engagement.RegisterView(ctx, recipe, requester); err != nil {
			s.logger.Warn("view not counted", "recipe_id", recipe.ID, "error", err)
		}
	}

	ids := []string{recipe.OwnerID}
	for _, c := range recipe.Comments {
		ids = append(ids, c.UserID)
	}
	people, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipe people: %w", err)
	}

	comments := make([]CommentView, len(recipe.Comments))
	for i, c := range recipe.Comments {
		comments[i] = CommentView{Comment: c, Author: SummarizeUser(people[c.UserID])}
	}

	view := &RecipeView{
		Recipe:        recipe,
		Owner:         SummarizeUser(people[recipe.OwnerID]),
		Comments:      comments,
		Access:        grant.Level,
		TotalTime:     recipe.TotalTime(),
		LikeCount:     recipe.LikeCount(),
		AverageRating: domain.RoundRating(recipe.AverageRating()),
		Permissions: RecipeActions{
			CanEdit:    grant.CanEdit(),
			CanCopy:    grant.CanCopy(),
			CanComment: grant.CanComment(),
			CanManage:  grant.CanManage(),
		},
	}
	if requester != nil {
		view.IsFavorited = requester.HasFavorite(recipe.ID)
	}
	if !grant.CanManage() {
		// Only the owner sees who else the recipe is shared with.
		redacted := *recipe
		redacted.SharedWith = []domain.ShareEntry{}
		view.Recipe = &redacted
	}
	return view, nil
}

// Update replaces a recipe's content. Editors may change content only;
// rating, visibility, sharing and ownership stay with the owner.
func (s *RecipeService) Update(ctx context.Context, requester *domain.User, recipeID string, req UpdateRecipeRequest) (*domain.Recipe, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Visibility != nil && !req.Visibility.IsValid() {
		return nil, domainerrors.InvalidStatef("invalid visibility %q", *req.Visibility)
	}

	current, grant, err := loadRecipe(ctx, s.recipes, requester, recipeID)
	if err != nil {
		return nil, err
	}
	if !grant.CanEdit() {
		return nil, domainerrors.Forbidden("you do not have permission to edit this recipe")
	}
	if req.Visibility != nil && *req.Visibility != current.Visibility && !grant.CanManage() {
		return nil, domainerrors.Forbidden("only the recipe owner can change visibility")
	}

	updated, err := s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		rating := r.Rating
		req.apply(r)
		if !grant.CanManage() {
			// The top-level rating is the owner's.
			r.Rating = rating
		}
		if req.Visibility != nil && grant.CanManage() {
			r.SetVisibility(*req.Visibility)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "recipe")
	}

	s.logger.Info("recipe updated", "recipe_id", recipeID, "user_id", requester.ID, "access", grant.Level)
	return updated, nil
}

// Delete removes a recipe owned by requester.
func (s *RecipeService) Delete(ctx context.Context, requester *domain.User, recipeID string) error {
	recipe, err := requireOwner(ctx, s.recipes, requester, recipeID, "delete it")
	if err != nil {
		return err
	}
	if err := deleteRecipe(ctx, s.users, s.recipes, s.logger, recipe); err != nil {
		return err
	}
	s.logger.Info("recipe deleted", "recipe_id", recipeID, "user_id", requester.ID)
	return nil
}

// MineRequest filters and orders the requester's own recipes.
type MineRequest struct {
	RecipeFilter
	Sort string `json:"sort,omitempty"`
}

// Mine lists the requester's recipes.
func (s *RecipeService) Mine(ctx context.Context, requester *domain.User, req MineRequest) ([]RecipeCard, error) {
	owned, err := s.recipes.ListRecipesByOwner(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("list owned recipes: %w", err)
	}
	filtered := slices.DeleteFunc(owned, func(r *domain.Recipe) bool { return !req.Match(r) })
	sortRecipes(filtered, req.Sort)

	out := make([]RecipeCard, len(filtered))
	for i, r := range filtered {
		out[i] = Card(r, requester)
	}
	return out, nil
}

// deleteRecipe removes a recipe and then, best effort, every reference to
// it held by users: the owner's list, favorites and collections.
func deleteRecipe(ctx context.Context, users UserStore, recipes RecipeStore, log *slog.Logger, recipe *domain.Recipe) error {
	if err := recipes.DeleteRecipe(ctx, recipe.ID); err != nil {
		return storeErr(err, "recipe")
	}

	all, err := users.ListUsers(ctx)
	if err != nil {
		log.Warn("recipe references not cleaned", "recipe_id", recipe.ID, "error", err)
		return nil
	}
	for _, u := range all {
		if !holdsRecipe(u, recipe.ID) {
			continue
		}
		if _, err := users.MutateUser(ctx, u.ID, func(u *domain.User) error {
			u.ForgetRecipe(recipe.ID)
			return nil
		}); err != nil {
			log.Warn("recipe reference not cleaned", "recipe_id", recipe.ID, "user_id", u.ID, "error", err)
		}
	}
	return nil
}

func holdsRecipe(u *domain.User, recipeID string) bool {
	if slices.Contains(u.Recipes, recipeID) || u.HasFavorite(recipeID) {
		return true
	}
	for _, c := range u.Collections {
		if c.ContainsRecipe(recipeID) {
			return true
		}
	}
	return false
}

// recentFirst is a helper for "newest N" listings.
func recentFirst(recipes []*domain.Recipe, n int) []*domain.Recipe {
	sorted := slices.Clone(recipes)
	slices.SortStableFunc(sorted, func(a, b *domain.Recipe) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
