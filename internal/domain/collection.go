package domain

import (
	"slices"
	"time"
)

// Collection is a named list of recipe references owned by a user.
// Visibility of the collection is independent of the recipes it holds.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	RecipeIDs   []string  `json:"recipe_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddRecipe adds a recipe ID to the collection if not already present.
func (c *Collection) AddRecipe(recipeID string) bool {
	if slices.Contains(c.RecipeIDs, recipeID) {
		return false
	}
	c.RecipeIDs = append(c.RecipeIDs, recipeID)
	return true
}

// RemoveRecipe removes a recipe ID from the collection.
func (c *Collection) RemoveRecipe(recipeID string) bool {
	return RemoveString(&c.RecipeIDs, recipeID)
}

// ContainsRecipe checks if a recipe ID is in this collection.
func (c *Collection) ContainsRecipe(recipeID string) bool {
	return slices.Contains(c.RecipeIDs, recipeID)
}
