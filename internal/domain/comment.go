package domain

import (
	"math"
	"slices"
	"time"
)

// Comment rating bounds. Comment ratings start at 1, unlike the recipe's own
// rating where 0 marks "unrated".
const (
	MinCommentRating = 1
	MaxCommentRating = 5
)

// Comment is a single user's note and optional rating on a recipe.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidCommentRating reports whether rating is absent or within 1..5.
func ValidCommentRating(rating *int) bool {
	return rating == nil || (*rating >= MinCommentRating && *rating <= MaxCommentRating)
}

// UpsertComment stores text and rating as userID's comment. An existing
// comment by the same user is replaced in place; otherwise newID is used to
// append a new one. Returns the stored comment and whether it was an update.
func (r *Recipe) UpsertComment(newID, userID, text string, rating *int, now time.Time) (Comment, bool) {
	for i := range r.Comments {
		if r.Comments[i].UserID == userID {
			r.Comments[i].Text = text
			r.Comments[i].Rating = rating
			r.Comments[i].CreatedAt = now
			return r.Comments[i], true
		}
	}

	c := Comment{
		ID:        newID,
		UserID:    userID,
		Text:      text,
		Rating:    rating,
		CreatedAt: now,
	}
	r.Comments = append(r.Comments, c)
	return c, false
}

// Comment returns the comment with the given id.
func (r *Recipe) Comment(commentID string) (*Comment, bool) {
	for i := range r.Comments {
		if r.Comments[i].ID == commentID {
			return &r.Comments[i], true
		}
	}
	return nil, false
}

// RemoveComment deletes a comment by id.
func (r *Recipe) RemoveComment(commentID string) bool {
	before := len(r.Comments)
	r.Comments = slices.DeleteFunc(r.Comments, func(c Comment) bool {
		return c.ID == commentID
	})
	return len(r.Comments) != before
}

// AverageRating is the mean of rated comments. Unrated comments count in
// neither numerator nor denominator. With no rated comments it falls back to
// the recipe's own rating.
func (r *Recipe) AverageRating() float64 {
	sum, n := 0, 0
	for _, c := range r.Comments {
		if c.Rating != nil {
			sum += *c.Rating
			n++
		}
	}
	if n == 0 {
		return r.Rating
	}
	return float64(sum) / float64(n)
}

// RoundRating rounds to one decimal place for display.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
