package domain

import (
	"slices"
	"strings"
	"time"
)

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleUser grants standard access.
	RoleUser Role = "user"
	// RoleAdmin grants access to moderation endpoints.
	RoleAdmin Role = "admin"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	// AccountActive accounts can sign in and use the system.
	AccountActive AccountStatus = "active"
	// AccountSuspended accounts are blocked by an admin.
	AccountSuspended AccountStatus = "suspended"
	// AccountDeleted accounts are tombstoned by an admin.
	AccountDeleted AccountStatus = "deleted"
)

// IsValid reports whether s is a known account status.
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountDeleted:
		return true
	}
	return false
}

// AuthMethod records how the account authenticates.
type AuthMethod string

const (
	// AuthLocal accounts sign in with email and password.
	AuthLocal AuthMethod = "local"
	// AuthGoogle accounts sign in with a Google ID token.
	AuthGoogle AuthMethod = "google"
)

// CookingLevel is the self-declared skill of a user.
type CookingLevel string

const (
	CookingBeginner     CookingLevel = "beginner"
	CookingIntermediate CookingLevel = "intermediate"
	CookingAdvanced     CookingLevel = "advanced"
	CookingProfessional CookingLevel = "professional"
)

// IsValid reports whether l is a known cooking level.
func (l CookingLevel) IsValid() bool {
	switch l {
	case CookingBeginner, CookingIntermediate, CookingAdvanced, CookingProfessional:
		return true
	}
	return false
}

// MeasurementUnit is the preferred unit system for ingredient quantities.
type MeasurementUnit string

const (
	UnitMetric   MeasurementUnit = "metric"
	UnitImperial MeasurementUnit = "imperial"
)

// EmailNotifications toggles outbound email per event type.
type EmailNotifications struct {
	RecipeShared bool `json:"recipe_shared"`
	NewFollower  bool `json:"new_follower"`
	Comments     bool `json:"comments"`
}

// Preferences holds defaults applied when the user creates recipes.
type Preferences struct {
	DefaultCategory     Category           `json:"default_category,omitempty"`
	DefaultRegion       Region             `json:"default_region,omitempty"`
	DefaultServings     int                `json:"default_servings"`
	MeasurementUnit     MeasurementUnit    `json:"measurement_unit"`
	DietaryRestrictions []string           `json:"dietary_restrictions"`
	Allergies           []string           `json:"allergies"`
	EmailNotifications  EmailNotifications `json:"email_notifications"`
}

// DefaultPreferences returns the preferences given to new accounts.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultServings: 4,
		MeasurementUnit: UnitMetric,
		EmailNotifications: EmailNotifications{
			RecipeShared: true,
			NewFollower:  true,
			Comments:     true,
		},
	}
}

// Profile is the public-facing description of a user.
type Profile struct {
	Bio                string       `json:"bio,omitempty"`
	Picture            string       `json:"picture,omitempty"`
	CoverPhoto         string       `json:"cover_photo,omitempty"`
	Location           string       `json:"location,omitempty"`
	Website            string       `json:"website,omitempty"`
	CookingLevel       CookingLevel `json:"cooking_level,omitempty"`
	FavoriteCuisines   []string     `json:"favorite_cuisines"`
	DietaryPreferences []string     `json:"dietary_preferences"`
}

// User represents an account in the system.
type User struct {
	Record
	Email        string     `json:"email"`
	Username     string     `json:"username,omitempty"`
	GoogleID     string     `json:"google_id,omitempty"`
	PasswordHash string     `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	AuthMethod   AuthMethod `json:"auth_method"`
	Name         string     `json:"name"`

	Profile     Profile     `json:"profile"`
	Preferences Preferences `json:"preferences"`

	Role   Role          `json:"role"`
	Status AccountStatus `json:"status"`

	Following []string `json:"following"`
	Followers []string `json:"followers"`

	Recipes     []string     `json:"recipes"`
	Favorites   []string     `json:"favorites"`
	Collections []Collection `json:"collections"`

	EmailVerified          bool      `json:"email_verified"`
	VerificationToken      string    `json:"verification_token,omitempty"`
	VerificationExpiresAt  time.Time `json:"verification_expires_at,omitzero"`
	PasswordResetToken     string    `json:"password_reset_token,omitempty"`
	PasswordResetExpiresAt time.Time `json:"password_reset_expires_at,omitzero"`

	OnboardingComplete bool      `json:"onboarding_complete"`
	LastLoginAt        time.Time `json:"last_login_at,omitzero"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if the user can sign in and use the system.
// Empty status is treated as active.
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == AccountActive
}

// IsLocal reports whether the account authenticates with a password.
func (u *User) IsLocal() bool {
	return u.AuthMethod == AuthLocal || u.AuthMethod == ""
}

// HasFavorite reports whether recipeID is in the user's favorites.
func (u *User) HasFavorite(recipeID string) bool {
	return slices.Contains(u.Favorites, recipeID)
}

// IsFollowing reports whether the user follows userID.
func (u *User) IsFollowing(userID string) bool {
	return slices.Contains(u.Following, userID)
}

// Collection returns the collection with the given id.
func (u *User) Collection(collectionID string) (*Collection, bool) {
	for i := range u.Collections {
		if u.Collections[i].ID == collectionID {
			return &u.Collections[i], true
		}
	}
	return nil, false
}

// HasCollectionNamed reports whether a collection other than exceptID uses
// name, ignoring case.
func (u *User) HasCollectionNamed(name, exceptID string) bool {
	for _, c := range u.Collections {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// RemoveCollection deletes a collection by id.
func (u *User) RemoveCollection(collectionID string) bool {
	before := len(u.Collections)
	u.Collections = slices.DeleteFunc(u.Collections, func(c Collection) bool {
		return c.ID == collectionID
	})
	return len(u.Collections) != before
}

// ForgetRecipe drops every reference the user holds to recipeID.
// Returns true if anything changed.
func (u *User) ForgetRecipe(recipeID string) bool {
	changed := RemoveString(&u.Recipes, recipeID)
	if RemoveString(&u.Favorites, recipeID) {
		changed = true
	}
	for i := range u.Collections {
		if u.Collections[i].RemoveRecipe(recipeID) {
			changed = true
		}
	}
	return changed
}

// AddString appends value to list unless already present.
// Returns true if the list changed.
func AddString(list *[]string, value string) bool {
	if slices.Contains(*list, value) {
		return false
	}
	*list = append(*list, value)
	return true
}

// RemoveString removes every occurrence of value from list.
// Returns true if the list changed.
func RemoveString(list *[]string, value string) bool {
	before := len(*list)
	*list = slices.DeleteFunc(*list, func(s string) bool { return s == value })
	return len(*list) != before
}
