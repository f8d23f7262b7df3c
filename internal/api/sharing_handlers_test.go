package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func TestShareRecipe_GrantsAccess(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	friendToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Family Lasagne", "shared")

	resp := ts.api.Get("/api/v1/recipes/"+r.ID, bearer(friendToken))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/sharing/"+r.ID+"/share", bearer(ownerToken), map[string]any{
		"emails":     []string{"Bob@Example.com", "carol@example.com"},
		"permission": "copy",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	results := decode[ShareResponse](t, resp.Body.Bytes()).Data.Results
	require.Len(t, results, 2)
	assert.Equal(t, "bob@example.com", results[0].Email)
	assert.True(t, results[0].Registered)
	assert.Equal(t, domain.ShareOutcomeShared, results[0].Outcome)
	assert.False(t, results[1].Registered)

	resp = ts.api.Get("/api/v1/recipes/"+r.ID, bearer(friendToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/sharing/shared-with-me", bearer(friendToken))
	require.Equal(t, http.StatusOK, resp.Code)
	shared := decode[[]service.SharedRecipe](t, resp.Body.Bytes()).Data
	require.Len(t, shared, 1)
	assert.Equal(t, domain.PermissionCopy, shared[0].Permission)

	resp = ts.api.Get("/api/v1/sharing/"+r.ID+"/sharing", bearer(ownerToken))
	require.Equal(t, http.StatusOK, resp.Code)
	details := decode[service.SharingDetails](t, resp.Body.Bytes()).Data
	assert.Len(t, details.Entries, 2)

	resp = ts.api.Get("/api/v1/sharing/"+r.ID+"/sharing", bearer(friendToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestShareRecipe_OwnerOnly(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/share", bearer(otherToken), map[string]any{
		"emails":     []string{"carol@example.com"},
		"permission": "view",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestShareRecipe_WithSelf(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signup(t, "Ada", "ada@example.com")
	r := ts.createRecipe(t, token, "Pancakes", "shared")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/share", bearer(token), map[string]any{
		"emails":     []string{"ada@example.com"},
		"permission": "view",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, resp.Body.Bytes()).Error.Code)
}

func TestUnshareAndPrivateVisibility(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	friendToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "shared")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/share", bearer(ownerToken), map[string]any{
		"emails":     []string{"bob@example.com", "carol@example.com"},
		"permission": "view",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/v1/sharing/"+r.ID+"/share", bearer(ownerToken), map[string]any{
		"emails": []string{"carol@example.com"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decode[UnshareResponse](t, resp.Body.Bytes()).Data.Removed)

	resp = ts.api.Patch("/api/v1/sharing/"+r.ID+"/visibility", bearer(ownerToken), map[string]any{
		"visibility": "private",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[*domain.Recipe](t, resp.Body.Bytes()).Data
	assert.Equal(t, domain.VisibilityPrivate, updated.Visibility)
	assert.Empty(t, updated.SharedWith)

	resp = ts.api.Get("/api/v1/recipes/"+r.ID, bearer(friendToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSetVisibility_Invalid(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signup(t, "Ada", "ada@example.com")
	r := ts.createRecipe(t, token, "Pancakes", "")

	resp := ts.api.Patch("/api/v1/sharing/"+r.ID+"/visibility", bearer(token), map[string]any{
		"visibility": "friends-only",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCopyRecipe(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, other := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/copy", bearer(otherToken))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	cp := decode[*domain.Recipe](t, resp.Body.Bytes()).Data
	assert.NotEqual(t, r.ID, cp.ID)
	assert.Equal(t, other.ID, cp.OwnerID)
	assert.Equal(t, domain.VisibilityPrivate, cp.Visibility)
	assert.Equal(t, r.Title, cp.Title)

	resp = ts.api.Get("/api/v1/recipes/"+r.ID, bearer(ownerToken))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[service.RecipeView](t, resp.Body.Bytes()).Data.Copies)
}

func TestCopyRecipe_ViewOnlyShare(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	friendToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "shared")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/share", bearer(ownerToken), map[string]any{
		"emails":     []string{"bob@example.com"},
		"permission": "view",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/sharing/"+r.ID+"/copy", bearer(friendToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestComments(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Post("/api/v1/sharing/"+r.ID+"/comments", bearer(otherToken), map[string]any{
		"text":   "Lovely",
		"rating": 4,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[service.CommentResult](t, resp.Body.Bytes()).Data
	assert.False(t, result.Updated)
	assert.InDelta(t, 4.0, result.AverageRating, 0.001)

	// A second comment by the same user replaces the first.
	resp = ts.api.Post("/api/v1/sharing/"+r.ID+"/comments", bearer(otherToken), map[string]any{
		"text":   "Even better the second time",
		"rating": 5,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	result = decode[service.CommentResult](t, resp.Body.Bytes()).Data
	assert.True(t, result.Updated)
	require.Len(t, result.Comments, 1)

	resp = ts.api.Get("/api/v1/sharing/" + r.ID + "/comments")
	require.Equal(t, http.StatusOK, resp.Code)
	comments := decode[[]service.CommentView](t, resp.Body.Bytes()).Data
	require.Len(t, comments, 1)
	assert.Equal(t, "Bob", comments[0].Author.Name)

	resp = ts.api.Post("/api/v1/sharing/"+r.ID+"/comments", bearer(otherToken), map[string]any{
		"text":   "Out of range",
		"rating": 9,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// The recipe owner may delete any comment.
	resp = ts.api.Delete("/api/v1/sharing/"+r.ID+"/comments/"+comments[0].ID, bearer(ownerToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Comment deleted", decode[any](t, resp.Body.Bytes()).Message)
}

func TestPublicFeed(t *testing.T) {
	ts := setupTestServer(t)
	adaToken, _ := ts.signup(t, "Ada", "ada@example.com")
	bobToken, _ := ts.signup(t, "Bob", "bob@example.com")

	ts.createRecipe(t, adaToken, "Chocolate Cake", "public")
	ts.createRecipe(t, adaToken, "Hidden Cake", "private")
	ts.createRecipe(t, bobToken, "Lemon Tart", "public")

	t.Run("anonymous sees every public recipe", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sharing/public")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		page := decode[service.FeedPage](t, resp.Body.Bytes()).Data
		assert.Equal(t, 2, page.Total)
		titles := make([]string, 0, len(page.Items))
		for _, c := range page.Items {
			titles = append(titles, c.Title)
		}
		assert.ElementsMatch(t, []string{"Chocolate Cake", "Lemon Tart"}, titles)
	})

	t.Run("own recipes are excluded", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sharing/public", bearer(adaToken))
		require.Equal(t, http.StatusOK, resp.Code)
		page := decode[service.FeedPage](t, resp.Body.Bytes()).Data
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Lemon Tart", page.Items[0].Title)
	})

	t.Run("search", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sharing/public?search=chocolate")
		require.Equal(t, http.StatusOK, resp.Code)
		page := decode[service.FeedPage](t, resp.Body.Bytes()).Data
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Chocolate Cake", page.Items[0].Title)
	})

	t.Run("paging", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sharing/public?limit=1&page=1")
		require.Equal(t, http.StatusOK, resp.Code)
		page := decode[service.FeedPage](t, resp.Body.Bytes()).Data
		assert.Len(t, page.Items, 1)
		assert.True(t, page.HasNext)
		assert.False(t, page.HasPrev)
	})

	t.Run("limit above maximum", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/sharing/public?limit=500")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
