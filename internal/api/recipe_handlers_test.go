package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func TestCreateRecipe_DefaultsToPublic(t *testing.T) {
	ts := setupTestServer(t)
	token, user := ts.signup(t, "Ada", "ada@example.com")

	r := ts.createRecipe(t, token, "Pancakes", "")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, user.ID, r.OwnerID)
	assert.Equal(t, domain.VisibilityPublic, r.Visibility)
	assert.Equal(t, domain.Category("Dessert"), r.Category)
}

func TestCreateRecipe_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/recipes", map[string]any{"title": "Toast"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateRecipe_InvalidCategory(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signup(t, "Ada", "ada@example.com")

	resp := ts.api.Post("/api/v1/recipes", bearer(token), map[string]any{
		"title":    "Toast",
		"category": "Elevenses",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp.Body.Bytes()).Error.Code)
}

func TestGetRecipe_Access(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")

	public := ts.createRecipe(t, ownerToken, "Public Pie", "public")
	private := ts.createRecipe(t, ownerToken, "Secret Stew", "private")

	t.Run("anonymous reads public", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/recipes/" + public.ID)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		view := decode[service.RecipeView](t, resp.Body.Bytes()).Data
		assert.Equal(t, "Public Pie", view.Title)
		assert.Equal(t, access.LevelPublicView, view.Access)
		assert.False(t, view.Permissions.CanEdit)
	})

	t.Run("stranger cannot read private", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/recipes/"+private.ID, bearer(otherToken))
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("anonymous cannot read private", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/recipes/" + private.ID)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("owner reads private", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/recipes/"+private.ID, bearer(ownerToken))
		require.Equal(t, http.StatusOK, resp.Code)
		view := decode[service.RecipeView](t, resp.Body.Bytes()).Data
		assert.Equal(t, access.LevelOwner, view.Access)
		assert.True(t, view.Permissions.CanEdit)
	})

	t.Run("missing recipe", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/recipes/rcp-missing", bearer(ownerToken))
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body.Bytes()).Error.Code)
	})
}

func TestGetRecipe_CountsViewsOfOthers(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	ts.api.Get("/api/v1/recipes/"+r.ID, bearer(ownerToken))
	ts.api.Get("/api/v1/recipes/"+r.ID, bearer(otherToken))
	ts.api.Get("/api/v1/recipes/" + r.ID)
	resp := ts.api.Get("/api/v1/recipes/"+r.ID, bearer(otherToken))
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, 3, decode[service.RecipeView](t, resp.Body.Bytes()).Data.Views)
}

func TestUpdateRecipe(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Put("/api/v1/recipes/"+r.ID, bearer(otherToken), map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Put("/api/v1/recipes/"+r.ID, bearer(ownerToken), map[string]any{
		"title":    "Fluffy Pancakes",
		"servings": 6,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[*domain.Recipe](t, resp.Body.Bytes()).Data
	assert.Equal(t, "Fluffy Pancakes", updated.Title)
	assert.Equal(t, 6, updated.Servings)
}

func TestDeleteRecipe(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	otherToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Delete("/api/v1/recipes/"+r.ID, bearer(otherToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Delete("/api/v1/recipes/"+r.ID, bearer(ownerToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Recipe deleted", decode[any](t, resp.Body.Bytes()).Message)

	resp = ts.api.Get("/api/v1/recipes/"+r.ID, bearer(ownerToken))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListMyRecipes_FiltersAndSorts(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signup(t, "Ada", "ada@example.com")
	ts.createRecipe(t, token, "Banana Bread", "public")
	ts.createRecipe(t, token, "Apple Crumble", "private")

	resp := ts.api.Get("/api/v1/recipes/mine?sort=title", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	cards := decode[[]service.RecipeCard](t, resp.Body.Bytes()).Data
	require.Len(t, cards, 2)
	assert.Equal(t, "Apple Crumble", cards[0].Title)

	resp = ts.api.Get("/api/v1/recipes/mine?visibility=private", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	cards = decode[[]service.RecipeCard](t, resp.Body.Bytes()).Data
	require.Len(t, cards, 1)
	assert.Equal(t, "Apple Crumble", cards[0].Title)
}

func TestToggleFavorite(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.signup(t, "Ada", "ada@example.com")
	fanToken, _ := ts.signup(t, "Bob", "bob@example.com")
	r := ts.createRecipe(t, ownerToken, "Pancakes", "public")

	resp := ts.api.Post("/api/v1/recipes/"+r.ID+"/favorite", bearer(fanToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	fav := decode[service.FavoriteResult](t, resp.Body.Bytes()).Data
	assert.True(t, fav.Favorited)
	assert.Equal(t, 1, fav.LikeCount)

	resp = ts.api.Get("/api/v1/recipes/favorites", bearer(fanToken))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]service.RecipeCard](t, resp.Body.Bytes()).Data, 1)

	resp = ts.api.Post("/api/v1/recipes/"+r.ID+"/favorite", bearer(fanToken))
	require.Equal(t, http.StatusOK, resp.Code)
	fav = decode[service.FavoriteResult](t, resp.Body.Bytes()).Data
	assert.False(t, fav.Favorited)
	assert.Equal(t, 0, fav.LikeCount)
}
