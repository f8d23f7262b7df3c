package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
)

func TestCollection_Lifecycle(t *testing.T) {
	s := setupStore(t)
	svc := NewCollectionService(s, s, newValidator(), nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	cook := createTestUser(t, s, "cook@example.com")
	mine := createTestRecipe(t, s, cook, "Pie", domain.VisibilityPrivate)
	theirs := createTestRecipe(t, s, owner, "Soup", domain.VisibilityPublic)

	c, err := svc.Create(ctx, cook, CollectionRequest{Name: "  Weeknight ", Description: "fast"})
	require.NoError(t, err)
	assert.Equal(t, "Weeknight", c.Name)
	assert.Empty(t, c.RecipeIDs)

	_, err = svc.Create(ctx, cook, CollectionRequest{Name: "weeknight"})
	requireCode(t, err, domainerrors.CodeAlreadyExists)

	_, err = svc.AddRecipe(ctx, cook, c.ID, mine.ID)
	require.NoError(t, err)
	updated, err := svc.AddRecipe(ctx, cook, c.ID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID, theirs.ID}, updated.RecipeIDs)

	_, err = svc.AddRecipe(ctx, cook, c.ID, theirs.ID)
	require.NoError(t, err)

	view, err := svc.Get(ctx, cook, c.ID)
	require.NoError(t, err)
	assert.Len(t, view.Recipes, 2)

	renamed, err := svc.Update(ctx, cook, c.ID, CollectionRequest{Name: "Quick", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "Quick", renamed.Name)
	assert.True(t, renamed.IsPublic)
	assert.Len(t, renamed.RecipeIDs, 2)

	removed, err := svc.RemoveRecipe(ctx, cook, c.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{theirs.ID}, removed.RecipeIDs)

	list, err := svc.List(ctx, cook)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, cook, c.ID))
	err = svc.Delete(ctx, cook, c.ID)
	requireCode(t, err, domainerrors.CodeNotFound)

	list, err = svc.List(ctx, cook)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollection_AddRequiresReadAccess(t *testing.T) {
	s := setupStore(t)
	svc := NewCollectionService(s, s, newValidator(), nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	cook := createTestUser(t, s, "cook@example.com")
	secret := createTestRecipe(t, s, owner, "Secret", domain.VisibilityPrivate)

	c, err := svc.Create(ctx, cook, CollectionRequest{Name: "Stolen"})
	require.NoError(t, err)

	_, err = svc.AddRecipe(ctx, cook, c.ID, secret.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = svc.AddRecipe(ctx, cook, "col-missing", secret.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = svc.Get(ctx, cook, "col-missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestCollection_GetHidesRecipesThatBecameUnreadable(t *testing.T) {
	s := setupStore(t)
	svc := NewCollectionService(s, s, newValidator(), nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	cook := createTestUser(t, s, "cook@example.com")
	r := createTestRecipe(t, s, owner, "Soup", domain.VisibilityPublic)

	c, err := svc.Create(ctx, cook, CollectionRequest{Name: "Soups"})
	require.NoError(t, err)
	_, err = svc.AddRecipe(ctx, cook, c.ID, r.ID)
	require.NoError(t, err)

	_, err = s.MutateRecipe(ctx, r.ID, true, func(r *domain.Recipe) error {
		r.SetVisibility(domain.VisibilityPrivate)
		return nil
	})
	require.NoError(t, err)

	view, err := svc.Get(ctx, cook, c.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Recipes)
	assert.Equal(t, []string{r.ID}, view.RecipeIDs)
}
