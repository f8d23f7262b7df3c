// Package search provides full-text search over recipes using Bleve.
// It backs the public discovery feed and recipe text search with keyword
// filters on category, region, visibility and ownership.
package search

import (
	"strings"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// RecipeDocument is the flattened form of a recipe stored in the index.
// Only fields used for matching, filtering and sorting are kept; the badger
// store remains the source of the full document.
type RecipeDocument struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	TitleSort   string   `json:"title_sort"`
	Tags        []string `json:"tags,omitempty"`
	Ingredients string   `json:"ingredients,omitempty"`
	Category    string   `json:"category,omitempty"`
	Region      string   `json:"region,omitempty"`
	Visibility  string   `json:"visibility"`

	Views  int     `json:"views"`
	Likes  int     `json:"likes"`
	Rating float64 `json:"rating"`

	CreatedAt int64 `json:"created_at"` // Unix millis
}

// RecipeToDocument converts a domain recipe into its index document.
func RecipeToDocument(r *domain.Recipe) *RecipeDocument {
	return &RecipeDocument{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		TitleSort:   strings.ToLower(strings.TrimSpace(r.Title)),
		Tags:        r.Tags,
		Ingredients: strings.Join(r.Ingredients, "\n"),
		Category:    string(r.Category),
		Region:      string(r.Region),
		Visibility:  string(r.Visibility),
		Views:       r.Views,
		Likes:       r.LikeCount(),
		Rating:      r.AverageRating(),
		CreatedAt:   r.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *RecipeDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"title":      d.Title,
		"title_sort": d.TitleSort,
		"visibility": d.Visibility,
		"views":      d.Views,
		"likes":      d.Likes,
		"rating":     d.Rating,
		"created_at": d.CreatedAt,
	}

	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Ingredients != "" {
		m["ingredients"] = d.Ingredients
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if d.Region != "" {
		m["region"] = d.Region
	}

	return m
}
