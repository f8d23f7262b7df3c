package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// SharingService manages recipe visibility and per-recipient share entries.
type SharingService struct {
	users     UserStore
	recipes   RecipeStore
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSharingService creates a new sharing service.
func NewSharingService(users UserStore, recipes RecipeStore, notifier Notifier, v *validation.Validator, log *slog.Logger) *SharingService {
	return &SharingService{
		users:     users,
		recipes:   recipes,
		notifier:  orNoopNotifier(notifier),
		validator: v,
		logger:    logger.OrDiscard(log),
	}
}

// ShareRequest asks to share a recipe with one or more addresses.
type ShareRequest struct {
	Emails     []string          `json:"emails" validate:"required,min=1,max=50"`
	Permission domain.Permission `json:"permission"`
	Message    string            `json:"message,omitempty" validate:"max=500"`
}

// ShareResult reports the outcome for one address.
type ShareResult struct {
	Email   string              `json:"email"`
	Outcome domain.ShareOutcome `json:"outcome"`
	// Registered is true when the address belongs to an account.
	Registered bool `json:"registered"`
}

// SetVisibility changes a recipe's visibility. Only the owner may do this;
// moving to private drops every share entry.
func (s *SharingService) SetVisibility(ctx context.Context, requester *domain.User, recipeID string, v domain.Visibility) (*domain.Recipe, error) {
	if !v.IsValid() {
		return nil, domainerrors.InvalidStatef("invalid visibility %q", v)
	}
	if _, err := requireOwner(ctx, s.recipes, requester, recipeID, "change visibility"); err != nil {
		return nil, err
	}

	updated, err := s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		r.SetVisibility(v)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "recipe")
	}

	s.logger.Info("recipe visibility changed",
		"recipe_id", recipeID,
		"user_id", requester.ID,
		"visibility", v,
	)
	return updated, nil
}

// recipient is a resolved share target.
type recipient struct {
	email string
	user  *domain.User
}

func (r recipient) userID() string {
	if r.user == nil {
		return ""
	}
	return r.user.ID
}

// resolveRecipients validates and normalizes addresses and looks up their
// accounts. Lookup failures other than "not found" are logged and the
// address is treated as unregistered.
func (s *SharingService) resolveRecipients(ctx context.Context, emails []string) ([]recipient, error) {
	out := make([]recipient, 0, len(emails))
	for _, raw := range emails {
		email := domain.NormalizeEmail(raw)
		if !s.validator.Email(email) {
			return nil, domainerrors.ValidationWithDetails("invalid email address", map[string]string{"emails": raw})
		}
		if slices.ContainsFunc(out, func(r recipient) bool { return r.email == email }) {
			continue
		}

		rc := recipient{email: email}
		u, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			rc.user = u
		case !store.IsNotFound(err):
			s.logger.Warn("recipient lookup failed", "email", email, "error", err)
		}
		out = append(out, rc)
	}
	return out, nil
}

// ShareWith grants permission on a recipe to each address. Existing entries
// for the same person are updated in place; new addresses are appended and
// notified.
func (s *SharingService) ShareWith(ctx context.Context, requester *domain.User, recipeID string, req ShareRequest) ([]ShareResult, error) {
	if !req.Permission.IsValid() {
		return nil, domainerrors.InvalidStatef("invalid permission %q", req.Permission)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, s.recipes, requester, recipeID, "share it"); err != nil {
		return nil, err
	}

	recipients, err := s.resolveRecipients(ctx, req.Emails)
	if err != nil {
		return nil, err
	}
	for _, rc := range recipients {
		if rc.email == domain.NormalizeEmail(requester.Email) || rc.userID() == requester.ID {
			return nil, domainerrors.InvalidState("you cannot share a recipe with yourself")
		}
	}

	var results []ShareResult
	now := time.Now()
	updated, err := s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		results = results[:0]
		for _, rc := range recipients {
			outcome := r.ShareWith(rc.email, rc.userID(), req.Permission, now)
			results = append(results, ShareResult{
				Email:      rc.email,
				Outcome:    outcome,
				Registered: rc.user != nil,
			})
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "recipe")
	}

	for i, res := range results {
		if res.Outcome != domain.ShareOutcomeShared {
			continue
		}
		if u := recipients[i].user; u != nil && !u.Preferences.EmailNotifications.RecipeShared {
			continue
		}
		s.notifier.SendRecipeShared(res.Email, requester, updated, req.Permission, req.Message)
	}

	s.logger.Info("recipe shared",
		"recipe_id", recipeID,
		"user_id", requester.ID,
		"recipients", len(results),
		"permission", req.Permission,
	)
	return results, nil
}

// Unshare removes the entries for each address, matching either the address
// itself or the account it belongs to. Returns the number of entries
// removed.
func (s *SharingService) Unshare(ctx context.Context, requester *domain.User, recipeID string, emails []string) (int, error) {
	if len(emails) == 0 {
		return 0, domainerrors.Validation("at least one email is required")
	}
	if _, err := requireOwner(ctx, s.recipes, requester, recipeID, "unshare it"); err != nil {
		return 0, err
	}

	recipients, err := s.resolveRecipients(ctx, emails)
	if err != nil {
		return 0, err
	}

	removed := 0
	_, err = s.recipes.MutateRecipe(ctx, recipeID, true, func(r *domain.Recipe) error {
		removed = r.Unshare(func(id domain.ShareIdentity) bool {
			for _, rc := range recipients {
				if id.MatchesEmail(rc.email) || id.MatchesUser(rc.userID()) {
					return true
				}
			}
			return false
		})
		return nil
	})
	if err != nil {
		return 0, storeErr(err, "recipe")
	}

	s.logger.Info("recipe unshared", "recipe_id", recipeID, "user_id", requester.ID, "removed", removed)
	return removed, nil
}

// ShareDetail describes one share entry for the owner.
type ShareDetail struct {
	Email      string            `json:"email"`
	Name       string            `json:"name,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Permission domain.Permission `json:"permission"`
	SharedAt   time.Time         `json:"shared_at"`
	// Pending is true until the address registers.
	Pending bool `json:"pending"`
}

// SharingDetails is the owner's view of who can see a recipe.
type SharingDetails struct {
	RecipeID   string            `json:"recipe_id"`
	Visibility domain.Visibility `json:"visibility"`
	Entries    []ShareDetail     `json:"shared_with"`
}

// SharingDetails lists a recipe's share entries with recipient names.
func (s *SharingService) SharingDetails(ctx context.Context, requester *domain.User, recipeID string) (*SharingDetails, error) {
	r, err := requireOwner(ctx, s.recipes, requester, recipeID, "view its sharing settings")
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range r.SharedWith {
		if uid, ok := e.Identity.UserID(); ok {
			ids = append(ids, uid)
		}
	}
	users, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, fmt.Errorf("load share recipients: %w", err)
	}

	out := &SharingDetails{
		RecipeID:   r.ID,
		Visibility: r.Visibility,
		Entries:    make([]ShareDetail, 0, len(r.SharedWith)),
	}
	for _, e := range r.SharedWith {
		d := ShareDetail{Permission: e.Permission, SharedAt: e.SharedAt}
		if uid, ok := e.Identity.UserID(); ok {
			d.UserID = uid
			if u := users[uid]; u != nil {
				d.Email = u.Email
				d.Name = u.Name
			}
		} else if email, ok := e.Identity.Email(); ok {
			d.Email = email
			d.Pending = true
		}
		out.Entries = append(out.Entries, d)
	}
	return out, nil
}

// SharedRecipe is a recipe shared with the requester.
type SharedRecipe struct {
	RecipeCard
	Permission domain.Permission `json:"permission"`
	SharedAt   time.Time         `json:"shared_at"`
}

// SharedWithMe lists recipes carrying a share entry for the requester,
// newest share first.
func (s *SharingService) SharedWithMe(ctx context.Context, requester *domain.User, filter RecipeFilter) ([]SharedRecipe, error) {
	recipes, err := s.recipes.ListRecipesSharedWith(ctx, requester.ID, requester.Email)
	if err != nil {
		return nil, fmt.Errorf("list shared recipes: %w", err)
	}

	req := access.RequesterFor(requester)
	type match struct {
		recipe *domain.Recipe
		entry  domain.ShareEntry
	}
	var matches []match
	for _, r := range recipes {
		if r.IsOwnedBy(requester.ID) || !filter.Match(r) {
			continue
		}
		if !access.Resolve(r, req).CanRead() {
			continue
		}
		if entry, ok := access.MatchShare(r.SharedWith, req); ok {
			matches = append(matches, match{recipe: r, entry: entry})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		return cmp.Compare(b.entry.SharedAt.UnixNano(), a.entry.SharedAt.UnixNano())
	})

	list := make([]*domain.Recipe, len(matches))
	for i, m := range matches {
		list[i] = m.recipe
	}
	cs, err := cards(ctx, s.users, list)
	if err != nil {
		return nil, err
	}

	out := make([]SharedRecipe, len(matches))
	for i, m := range matches {
		out[i] = SharedRecipe{
			RecipeCard: cs[i],
			Permission: m.entry.Permission,
			SharedAt:   m.entry.SharedAt,
		}
	}
	return out, nil
}

// ClaimPendingShares converts share entries addressed to u's email into
// entries for u's account. Failures are logged; signup never fails because
// of them.
func (s *SharingService) ClaimPendingShares(ctx context.Context, u *domain.User) int {
	recipes, err := s.recipes.ListRecipesSharedWith(ctx, "", u.Email)
	if err != nil {
		s.logger.Warn("list pending shares failed", "user_id", u.ID, "error", err)
		return 0
	}

	claimed := 0
	for _, r := range recipes {
		changed := false
		_, err := s.recipes.MutateRecipe(ctx, r.ID, false, func(r *domain.Recipe) error {
			changed = r.ClaimShares(u.Email, u.ID)
			return nil
		})
		if err != nil {
			s.logger.Warn("claim pending share failed", "user_id", u.ID, "recipe_id", r.ID, "error", err)
			continue
		}
		if changed {
			claimed++
		}
	}
	if claimed > 0 {
		s.logger.Info("pending shares claimed", "user_id", u.ID, "recipes", claimed)
	}
	return claimed
}
