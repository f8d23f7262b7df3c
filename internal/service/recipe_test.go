package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/access"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/store"
)

func setupRecipeTest(t *testing.T) (*RecipeService, *store.Store) {
	t.Helper()
	s := setupStore(t)
	return NewRecipeService(s, s, NewEngagementService(s, s, nil), newValidator(), nil), s
}

func TestRecipe_CreateAppliesDefaults(t *testing.T) {
	svc, s := setupRecipeTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	owner.Preferences.DefaultCategory = "Dessert"
	owner.Preferences.DefaultServings = 6

	r, err := svc.Create(ctx, owner, CreateRecipeRequest{RecipeInput: RecipeInput{
		Title:       "Pie",
		Ingredients: []string{" apples ", "", "butter"},
		Tags:        []string{"Sweet Treats", "sweet treats"},
		Notes:       "<p>Serve <b>warm</b></p>",
	}})
	require.NoError(t, err)

	assert.Equal(t, domain.VisibilityPublic, r.Visibility)
	assert.Equal(t, domain.Category("Dessert"), r.Category)
	assert.Equal(t, 6, r.Servings)
	assert.Equal(t, []string{"apples", "butter"}, r.Ingredients)
	assert.Equal(t, []string{"sweet-treats"}, r.Tags)
	assert.Equal(t, "Serve **warm**", r.Notes)
	assert.Contains(t, reload(t, s, owner).Recipes, r.ID)
}

func TestRecipe_CreateValidation(t *testing.T) {
	svc, s := setupRecipeTest(t)
	owner := createTestUser(t, s, "owner@example.com")

	tests := []struct {
		name string
		req  CreateRecipeRequest
	}{
		{"missing title", CreateRecipeRequest{}},
		{"bad category", CreateRecipeRequest{RecipeInput: RecipeInput{Title: "x", Category: "Brunch"}}},
		{"rating too high", CreateRecipeRequest{RecipeInput: RecipeInput{Title: "x", Rating: 6}}},
		{"bad visibility", CreateRecipeRequest{RecipeInput: RecipeInput{Title: "x"}, Visibility: "friends"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tt.req)
			requireCode(t, err, domainerrors.CodeValidation)
		})
	}
}

func TestRecipe_GetResolvesAccessAndCountsViews(t *testing.T) {
	svc, s := setupRecipeTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	reader := createTestUser(t, s, "reader@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)
	_, err := s.MutateRecipe(ctx, r.ID, true, func(r *domain.Recipe) error {
		r.ShareWith("someone@example.com", "", domain.PermissionView, r.CreatedAt)
		return nil
	})
	require.NoError(t, err)

	view, err := svc.Get(ctx, reader, r.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelPublicView, view.Access)
	assert.True(t, view.Permissions.CanCopy)
	assert.False(t, view.Permissions.CanEdit)
	assert.Empty(t, view.SharedWith, "share list is owner-only")
	assert.Equal(t, owner.ID, view.Owner.ID)
	assert.Equal(t, 1, view.Views)

	ownView, err := svc.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, access.LevelOwner, ownView.Access)
	assert.Len(t, ownView.SharedWith, 1)
	assert.Equal(t, 1, ownView.Views, "owner views do not count")

	anon, err := svc.Get(ctx, nil, r.ID)
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)
	assert.Equal(t, 2, anon.Views, "anonymous views count")
}

func TestRecipe_GetPrivateDenied(t *testing.T) {
	svc, s := setupRecipeTest(t)
	owner := createTestUser(t, s, "owner@example.com")
	r := createTestRecipe(t, s, owner, "Secret", domain.VisibilityPrivate)

	_, err := svc.Get(context.Background(), nil, r.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = svc.Get(context.Background(), owner, "rcp-nope")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestRecipe_UpdateByEditor(t *testing.T) {
	svc, s := setupRecipeTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	editor := createTestUser(t, s, "editor@example.com")
	viewer := createTestUser(t, s, "viewer@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityShared)
	_, err := s.MutateRecipe(ctx, r.ID, true, func(r *domain.Recipe) error {
		r.ShareWith(editor.Email, editor.ID, domain.PermissionEdit, r.CreatedAt)
		r.ShareWith(viewer.Email, viewer.ID, domain.PermissionView, r.CreatedAt)
		return nil
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "Pie", Rating: 4}})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, updated.Rating, 0.001)

	updated, err = svc.Update(ctx, editor, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "Better Pie"}})
	require.NoError(t, err)
	assert.Equal(t, "Better Pie", updated.Title)
	assert.Equal(t, owner.ID, updated.OwnerID)
	assert.Len(t, updated.SharedWith, 2)
	assert.InDelta(t, 4.0, updated.Rating, 0.001, "omitted rating keeps the owner's")

	updated, err = svc.Update(ctx, editor, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "Better Pie", Rating: 1}})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, updated.Rating, 0.001, "editors cannot rate")

	public := domain.VisibilityPublic
	_, err = svc.Update(ctx, editor, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "x"}, Visibility: &public})
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = svc.Update(ctx, viewer, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "x"}})
	requireCode(t, err, domainerrors.CodeForbidden)

	private := domain.VisibilityPrivate
	updated, err = svc.Update(ctx, owner, r.ID, UpdateRecipeRequest{RecipeInput: RecipeInput{Title: "Mine"}, Visibility: &private})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPrivate, updated.Visibility)
	assert.Empty(t, updated.SharedWith)
}

func TestRecipe_DeleteCleansReferences(t *testing.T) {
	svc, s := setupRecipeTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	_, err := s.MutateUser(ctx, fan.ID, func(u *domain.User) error {
		domain.AddString(&u.Favorites, r.ID)
		u.Collections = append(u.Collections, domain.Collection{ID: "col-1", Name: "Best", RecipeIDs: []string{r.ID}})
		return nil
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, fan, r.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	require.NoError(t, svc.Delete(ctx, owner, r.ID))

	_, err = s.GetRecipe(ctx, r.ID)
	assert.True(t, store.IsNotFound(err))
	assert.NotContains(t, reload(t, s, owner).Recipes, r.ID)
	f := reload(t, s, fan)
	assert.Empty(t, f.Favorites)
	assert.Empty(t, f.Collections[0].RecipeIDs)
}

func TestRecipe_MineFiltersAndSorts(t *testing.T) {
	svc, s := setupRecipeTest(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")
	createTestRecipe(t, s, owner, "Banana Bread", domain.VisibilityPublic)
	createTestRecipe(t, s, owner, "Apple Pie", domain.VisibilityPrivate)
	createTestRecipe(t, s, other, "Cherry Tart", domain.VisibilityPublic)

	all, err := svc.Mine(ctx, owner, MineRequest{Sort: search.SortTitle})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Apple Pie", all[0].Title)
	assert.Equal(t, "Banana Bread", all[1].Title)

	private, err := svc.Mine(ctx, owner, MineRequest{RecipeFilter: RecipeFilter{Visibility: domain.VisibilityPrivate}})
	require.NoError(t, err)
	require.Len(t, private, 1)
	assert.Equal(t, "Apple Pie", private[0].Title)

	found, err := svc.Mine(ctx, owner, MineRequest{RecipeFilter: RecipeFilter{Search: "bread"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
}
