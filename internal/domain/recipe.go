package domain

import (
	"slices"
	"strings"
	"time"
)

// Visibility governs who may discover and read a recipe absent a share entry.
type Visibility string

const (
	// VisibilityPrivate recipes are readable by the owner only.
	VisibilityPrivate Visibility = "private"
	// VisibilityShared recipes are readable by the owner and share recipients.
	VisibilityShared Visibility = "shared"
	// VisibilityPublic recipes are readable by everyone.
	VisibilityPublic Visibility = "public"
)

// IsValid reports whether v is a known visibility.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// Category classifies a recipe by course.
type Category string

// Categories lists every non-empty category.
var Categories = []Category{
	"Appetizer", "Main Course", "Dessert", "Soup", "Salad",
	"Breakfast", "Snack", "Beverage",
}

// IsValid reports whether c is empty or a known category.
func (c Category) IsValid() bool {
	return c == "" || slices.Contains(Categories, c)
}

// Region classifies a recipe by cuisine.
type Region string

// Regions lists every non-empty region.
var Regions = []Region{
	"Italian", "Asian", "Mexican", "American", "French",
	"Mediterranean", "Indian", "Thai", "Japanese", "Greek",
}

// IsValid reports whether r is empty or a known region.
func (r Region) IsValid() bool {
	return r == "" || slices.Contains(Regions, r)
}

// Photo is an opaque reference to an externally stored image.
type Photo struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// Nutrition holds optional per-serving nutrition facts.
type Nutrition struct {
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
	Fiber    float64 `json:"fiber,omitempty"`
	Sugar    float64 `json:"sugar,omitempty"`
	Sodium   float64 `json:"sodium,omitempty"`
}

// Rating bounds for the owner-set recipe rating. Zero means unrated.
const (
	MinRecipeRating = 0
	MaxRecipeRating = 5
)

// Recipe is a recipe document with its sharing state and engagement.
type Recipe struct {
	Record
	OwnerID string `json:"owner_id"`

	Title        string     `json:"title"`
	Ingredients  []string   `json:"ingredients"`
	Instructions []string   `json:"instructions"`
	PrepTime     int        `json:"prep_time"`
	CookTime     int        `json:"cook_time"`
	Servings     int        `json:"servings"`
	Category     Category   `json:"category,omitempty"`
	Region       Region     `json:"region,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Photos       []Photo    `json:"photos"`
	Tags         []string   `json:"tags"`
	SourceURL    string     `json:"source_url,omitempty"`
	Nutrition    *Nutrition `json:"nutrition,omitempty"`
	Rating       float64    `json:"rating"`

	Visibility Visibility   `json:"visibility"`
	SharedWith []ShareEntry `json:"shared_with"`

	OriginalRecipeID string `json:"original_recipe_id,omitempty"`
	ForkedFromID     string `json:"forked_from_id,omitempty"`

	Views    int       `json:"views"`
	Copies   int       `json:"copies"`
	Likes    []string  `json:"likes"`
	Comments []Comment `json:"comments"`
}

// TotalTime returns prep plus cook time in minutes.
func (r *Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// IsOwnedBy reports whether userID owns the recipe.
func (r *Recipe) IsOwnedBy(userID string) bool {
	return userID != "" && r.OwnerID == userID
}

// LikeCount returns the number of users who liked the recipe.
func (r *Recipe) LikeCount() int {
	return len(r.Likes)
}

// IsLikedBy reports whether userID is in the likes set.
func (r *Recipe) IsLikedBy(userID string) bool {
	return slices.Contains(r.Likes, userID)
}

// SetVisibility changes visibility. Moving to private empties the share list.
func (r *Recipe) SetVisibility(v Visibility) {
	r.Visibility = v
	if v == VisibilityPrivate {
		r.SharedWith = nil
	}
}

// ShareOutcome reports what ShareWith did for one address.
type ShareOutcome string

const (
	// ShareOutcomeShared means a new entry was appended.
	ShareOutcomeShared ShareOutcome = "shared"
	// ShareOutcomeUpdated means an existing entry's tier was replaced.
	ShareOutcomeUpdated ShareOutcome = "updated"
)

// ShareWith grants permission to email, or to userID when the address
// belongs to a registered user (userID may be empty). An existing entry for
// either key is updated in place, and an Unregistered entry is upgraded to
// Registered once the user is known. Duplicates for the same identity are
// collapsed into the first match.
func (r *Recipe) ShareWith(email, userID string, permission Permission, now time.Time) ShareOutcome {
	email = NormalizeEmail(email)

	idx := -1
	for i, entry := range r.SharedWith {
		if entry.Identity.MatchesUser(userID) || entry.Identity.MatchesEmail(email) {
			if idx == -1 {
				idx = i
				continue
			}
			// A second entry for the same person; drop it below.
			r.SharedWith[i].Identity = ShareIdentity{}
		}
	}

	identity := Unregistered(email)
	if userID != "" {
		identity = Registered(userID)
	}

	outcome := ShareOutcomeShared
	if idx >= 0 {
		r.SharedWith[idx].Identity = identity
		r.SharedWith[idx].Permission = permission
		outcome = ShareOutcomeUpdated
	} else {
		r.SharedWith = append(r.SharedWith, ShareEntry{
			Identity:   identity,
			Permission: permission,
			SharedAt:   now,
		})
	}

	r.SharedWith = slices.DeleteFunc(r.SharedWith, func(e ShareEntry) bool {
		return !e.Identity.IsValid()
	})

	if r.Visibility == VisibilityPrivate && len(r.SharedWith) > 0 {
		r.Visibility = VisibilityShared
	}
	return outcome
}

// Unshare removes every entry for which match returns true. A shared recipe
// whose list becomes empty is demoted to private. Returns the number of
// entries removed.
func (r *Recipe) Unshare(match func(ShareIdentity) bool) int {
	before := len(r.SharedWith)
	r.SharedWith = slices.DeleteFunc(r.SharedWith, func(e ShareEntry) bool {
		return match(e.Identity)
	})
	if len(r.SharedWith) == 0 && r.Visibility == VisibilityShared {
		r.Visibility = VisibilityPrivate
	}
	return before - len(r.SharedWith)
}

// ClaimShares upgrades Unregistered(email) entries to Registered(userID).
// An existing Registered entry for the same user keeps precedence and the
// email entry is dropped. Returns true if anything changed.
func (r *Recipe) ClaimShares(email, userID string) bool {
	hasRegistered := slices.ContainsFunc(r.SharedWith, func(e ShareEntry) bool {
		return e.Identity.MatchesUser(userID)
	})

	changed := false
	out := r.SharedWith[:0]
	for _, entry := range r.SharedWith {
		if entry.Identity.MatchesEmail(email) {
			changed = true
			if hasRegistered {
				continue
			}
			entry.Identity = Registered(userID)
			hasRegistered = true
		}
		out = append(out, entry)
	}
	r.SharedWith = out
	return changed
}

// Fork returns a deep copy of the recipe owned by ownerID. The copy starts
// private and unrated with fresh engagement and points back at its source.
func (r *Recipe) Fork(newID, ownerID string, now time.Time) *Recipe {
	fork := &Recipe{
		Record: Record{
			ID:        newID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		OwnerID:          ownerID,
		Title:            r.Title + " (Copy)",
		Ingredients:      slices.Clone(r.Ingredients),
		Instructions:     slices.Clone(r.Instructions),
		PrepTime:         r.PrepTime,
		CookTime:         r.CookTime,
		Servings:         r.Servings,
		Category:         r.Category,
		Region:           r.Region,
		Notes:            r.Notes,
		Photos:           slices.Clone(r.Photos),
		Tags:             slices.Clone(r.Tags),
		SourceURL:        r.SourceURL,
		Rating:           0,
		Visibility:       VisibilityPrivate,
		OriginalRecipeID: r.ID,
		ForkedFromID:     r.OwnerID,
	}
	if r.Nutrition != nil {
		n := *r.Nutrition
		fork.Nutrition = &n
	}
	return fork
}

// MatchesText reports whether q appears in the title or any tag,
// case-insensitively.
func (r *Recipe) MatchesText(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), q) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
