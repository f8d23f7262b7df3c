package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/normalize"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// DeleteConfirmation must be typed verbatim to delete an account.
const DeleteConfirmation = "DELETE MY ACCOUNT"

const statsListLimit = 5

// ProfileService manages a user's own profile, preferences, statistics and
// account deletion.
type ProfileService struct {
	users     UserStore
	recipes   RecipeStore
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(users UserStore, recipes RecipeStore, v *validation.Validator, log *slog.Logger) *ProfileService {
	return &ProfileService{
		users:     users,
		recipes:   recipes,
		validator: v,
		logger:    logger.OrDiscard(log),
	}
}

// UpdateProfileRequest replaces the editable profile fields. Nil fields
// are left unchanged.
type UpdateProfileRequest struct {
	Name               *string              `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Username           *string              `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Bio                *string              `json:"bio,omitempty" validate:"omitempty,max=500"`
	Picture            *string              `json:"picture,omitempty" validate:"omitempty,max=2048"`
	CoverPhoto         *string              `json:"cover_photo,omitempty" validate:"omitempty,max=2048"`
	Location           *string              `json:"location,omitempty" validate:"omitempty,max=100"`
	Website            *string              `json:"website,omitempty" validate:"omitempty,url"`
	CookingLevel       *domain.CookingLevel `json:"cooking_level,omitempty" validate:"omitempty,cooking_level"`
	FavoriteCuisines   []string             `json:"favorite_cuisines,omitempty" validate:"max=20,dive,max=50"`
	DietaryPreferences []string             `json:"dietary_preferences,omitempty" validate:"max=20,dive,max=50"`
}

// UpdateProfile applies a profile edit. Usernames stay unique.
func (s *ProfileService) UpdateProfile(ctx context.Context, requester *domain.User, req UpdateProfileRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var username string
	if req.Username != nil {
		username = normalize.Username(*req.Username)
		if len(username) < 3 {
			return nil, domainerrors.ValidationWithDetails("username is invalid",
				map[string]string{"username": "must contain at least 3 letters, digits, dots or underscores"})
		}
		existing, err := s.users.GetUserByUsername(ctx, username)
		if err == nil && existing.ID != requester.ID {
			return nil, domainerrors.AlreadyExists("username is already taken")
		}
	}

	updated, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Username != nil {
			u.Username = username
		}
		setIf(&u.Profile.Bio, req.Bio)
		setIf(&u.Profile.Picture, req.Picture)
		setIf(&u.Profile.CoverPhoto, req.CoverPhoto)
		setIf(&u.Profile.Location, req.Location)
		setIf(&u.Profile.Website, req.Website)
		if req.CookingLevel != nil {
			u.Profile.CookingLevel = *req.CookingLevel
		}
		if req.FavoriteCuisines != nil {
			u.Profile.FavoriteCuisines = normalize.Lines(req.FavoriteCuisines)
		}
		if req.DietaryPreferences != nil {
			u.Profile.DietaryPreferences = normalize.Lines(req.DietaryPreferences)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	s.logger.Info("profile updated", "user_id", requester.ID)
	return Sanitize(updated), nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// PreferencesRequest replaces the user's preferences.
type PreferencesRequest struct {
	DefaultCategory     domain.Category            `json:"default_category,omitempty" validate:"category"`
	DefaultRegion       domain.Region              `json:"default_region,omitempty" validate:"region"`
	DefaultServings     int                        `json:"default_servings" validate:"gte=1,lte=100"`
	MeasurementUnit     domain.MeasurementUnit     `json:"measurement_unit,omitempty" validate:"omitempty,oneof=metric imperial"`
	DietaryRestrictions []string                   `json:"dietary_restrictions,omitempty" validate:"max=20,dive,max=50"`
	Allergies           []string                   `json:"allergies,omitempty" validate:"max=20,dive,max=50"`
	EmailNotifications  *domain.EmailNotifications `json:"email_notifications,omitempty"`
}

// UpdatePreferences replaces the requester's preferences.
func (s *ProfileService) UpdatePreferences(ctx context.Context, requester *domain.User, req PreferencesRequest) (*domain.Preferences, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	updated, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		p := &u.Preferences
		p.DefaultCategory = req.DefaultCategory
		p.DefaultRegion = req.DefaultRegion
		p.DefaultServings = req.DefaultServings
		if req.MeasurementUnit != "" {
			p.MeasurementUnit = req.MeasurementUnit
		}
		p.DietaryRestrictions = normalize.Lines(req.DietaryRestrictions)
		p.Allergies = normalize.Lines(req.Allergies)
		if req.EmailNotifications != nil {
			p.EmailNotifications = *req.EmailNotifications
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return &updated.Preferences, nil
}

// UserStats summarizes a user's recipe book.
type UserStats struct {
	Counts        UserCounts                `json:"counts"`
	ByCategory    map[domain.Category]int   `json:"by_category"`
	ByRegion      map[domain.Region]int     `json:"by_region"`
	ByVisibility  map[domain.Visibility]int `json:"by_visibility"`
	AverageRating float64                   `json:"average_rating"`
	TotalLikes    int                       `json:"total_likes"`
	TotalViews    int                       `json:"total_views"`
	Recent        []RecipeCard              `json:"recent"`
	Popular       []RecipeCard              `json:"popular"`
}

// Stats computes statistics over the requester's own recipes. The average
// covers rated recipes only.
func (s *ProfileService) Stats(ctx context.Context, requester *domain.User) (*UserStats, error) {
	user, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	owned, err := s.recipes.ListRecipesByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	st := &UserStats{
		Counts:       CountsFor(user),
		ByCategory:   map[domain.Category]int{},
		ByRegion:     map[domain.Region]int{},
		ByVisibility: map[domain.Visibility]int{},
	}
	st.Counts.Recipes = len(owned)

	var ratingSum float64
	rated := 0
	for _, r := range owned {
		if r.Category != "" {
			st.ByCategory[r.Category]++
		}
		if r.Region != "" {
			st.ByRegion[r.Region]++
		}
		st.ByVisibility[r.Visibility]++
		st.TotalLikes += r.LikeCount()
		st.TotalViews += r.Views
		if avg := r.AverageRating(); avg > 0 {
			ratingSum += avg
			rated++
		}
	}
	if rated > 0 {
		st.AverageRating = domain.RoundRating(ratingSum / float64(rated))
	}

	for _, r := range recentFirst(owned, statsListLimit) {
		st.Recent = append(st.Recent, Card(r, user))
	}

	popular := slices.Clone(owned)
	slices.SortStableFunc(popular, func(a, b *domain.Recipe) int {
		if c := cmp.Compare(b.LikeCount(), a.LikeCount()); c != 0 {
			return c
		}
		return cmp.Compare(b.Views, a.Views)
	})
	for _, r := range popular[:min(len(popular), statsListLimit)] {
		st.Popular = append(st.Popular, Card(r, user))
	}
	if st.Recent == nil {
		st.Recent = []RecipeCard{}
	}
	if st.Popular == nil {
		st.Popular = []RecipeCard{}
	}
	return st, nil
}

// DeleteAccountRequest confirms account deletion.
type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
	Password     string `json:"password,omitempty"`
}

// DeleteAccount removes the requester and everything tied to them: their
// recipes, their likes, comments and share entries on other recipes, and
// their place in other users' follow lists. Only the user document deletion
// is fatal; the rest is best effort.
func (s *ProfileService) DeleteAccount(ctx context.Context, requester *domain.User, req DeleteAccountRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if req.Confirmation != DeleteConfirmation {
		return domainerrors.ValidationWithDetails("confirmation text does not match",
			map[string]string{"confirmation": "must be " + DeleteConfirmation})
	}

	user, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return storeErr(err, "user")
	}
	if user.PasswordHash != "" {
		ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return domainerrors.InvalidCredentials("password is incorrect")
		}
	}

	s.purge(ctx, user)

	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		return storeErr(err, "user")
	}
	s.logger.Info("account deleted", "user_id", user.ID)
	return nil
}

func (s *ProfileService) purge(ctx context.Context, user *domain.User) {
	log := s.logger.With("user_id", user.ID)

	owned, err := s.recipes.ListRecipesByOwner(ctx, user.ID)
	if err != nil {
		log.Warn("owned recipes not listed", "error", err)
	}
	for _, r := range owned {
		if err := deleteRecipe(ctx, s.users, s.recipes, log, r); err != nil {
			log.Warn("recipe not deleted", "recipe_id", r.ID, "error", err)
		}
	}

	all, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		log.Warn("recipes not scanned", "error", err)
	}
	for _, r := range all {
		if !touchesUser(r, user) {
			continue
		}
		if _, err := s.recipes.MutateRecipe(ctx, r.ID, false, func(r *domain.Recipe) error {
			forgetUser(r, user)
			return nil
		}); err != nil {
			log.Warn("recipe references not cleaned", "recipe_id", r.ID, "error", err)
		}
	}

	for _, otherID := range compactIDs(append(slices.Clone(user.Followers), user.Following...)) {
		if _, err := s.users.MutateUser(ctx, otherID, func(u *domain.User) error {
			domain.RemoveString(&u.Followers, user.ID)
			domain.RemoveString(&u.Following, user.ID)
			return nil
		}); err != nil {
			log.Warn("follow references not cleaned", "other_id", otherID, "error", err)
		}
	}
}

func touchesUser(r *domain.Recipe, u *domain.User) bool {
	if r.IsLikedBy(u.ID) {
		return true
	}
	if slices.ContainsFunc(r.Comments, func(c domain.Comment) bool { return c.UserID == u.ID }) {
		return true
	}
	return slices.ContainsFunc(r.SharedWith, func(e domain.ShareEntry) bool {
		return e.Identity.MatchesUser(u.ID) || e.Identity.MatchesEmail(u.Email)
	})
}

func forgetUser(r *domain.Recipe, u *domain.User) {
	domain.RemoveString(&r.Likes, u.ID)
	r.Comments = slices.DeleteFunc(r.Comments, func(c domain.Comment) bool { return c.UserID == u.ID })
	r.Unshare(func(id domain.ShareIdentity) bool {
		return id.MatchesUser(u.ID) || id.MatchesEmail(u.Email)
	})
}
