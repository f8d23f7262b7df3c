package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
)

func TestEngagement_ToggleFavoriteTwiceRestores(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	res, err := svc.ToggleFavorite(ctx, fan, r.ID)
	require.NoError(t, err)
	assert.True(t, res.Favorited)
	assert.Equal(t, 1, res.LikeCount)
	assert.Contains(t, reload(t, s, fan).Favorites, r.ID)
	assert.True(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID))

	res, err = svc.ToggleFavorite(ctx, fan, r.ID)
	require.NoError(t, err)
	assert.False(t, res.Favorited)
	assert.Zero(t, res.LikeCount)
	assert.Empty(t, reload(t, s, fan).Favorites)
	assert.False(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID))
}

func TestEngagement_FavoriteDeniedOnPrivate(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPrivate)

	_, err := svc.ToggleFavorite(context.Background(), fan, r.ID)
	requireCode(t, err, domainerrors.CodeForbidden)
}

func TestEngagement_FavoriteMirrorFailureIsRepairedOnRead(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	flaky := &flakyRecipes{Store: s, fail: true}
	res, err := NewEngagementService(s, flaky, nil).ToggleFavorite(ctx, fan, r.ID)
	require.NoError(t, err, "mirror failure is not an error")
	assert.True(t, res.Favorited)
	assert.Equal(t, 1, res.LikeCount)
	assert.False(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID))

	cards, err := NewEngagementService(s, s, nil).ListFavorites(ctx, fan)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.True(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID), "like restored by read repair")
}

func TestEngagement_UnfavoriteMirrorFailureIsRepairedOnRead(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	_, err := NewEngagementService(s, s, nil).ToggleFavorite(ctx, fan, r.ID)
	require.NoError(t, err)

	flaky := &flakyRecipes{Store: s, fail: true}
	res, err := NewEngagementService(s, flaky, nil).ToggleFavorite(ctx, reload(t, s, fan), r.ID)
	require.NoError(t, err, "mirror failure is not an error")
	assert.False(t, res.Favorited)
	assert.Zero(t, res.LikeCount)
	assert.Empty(t, reload(t, s, fan).Favorites)
	require.True(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID), "like left behind")

	recipes := NewRecipeService(s, s, NewEngagementService(s, s, nil), newValidator(), nil)
	view, err := recipes.Get(ctx, reload(t, s, fan), r.ID)
	require.NoError(t, err)
	assert.Zero(t, view.LikeCount)
	assert.False(t, view.IsFavorited)
	assert.False(t, reloadRecipe(t, s, r.ID).IsLikedBy(fan.ID), "like removed by read repair")
}

func TestEngagement_ReconcileLikeInSync(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	assert.False(t, svc.ReconcileLike(ctx, r, nil))
	assert.False(t, svc.ReconcileLike(ctx, r, fan))

	_, err := svc.ToggleFavorite(ctx, fan, r.ID)
	require.NoError(t, err)
	assert.False(t, svc.ReconcileLike(ctx, reloadRecipe(t, s, r.ID), reload(t, s, fan)))
}

func TestEngagement_ListFavoritesDropsDeletedAndHidesUnreadable(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	fan := createTestUser(t, s, "fan@example.com")
	keep := createTestRecipe(t, s, owner, "Keep", domain.VisibilityPublic)
	gone := createTestRecipe(t, s, owner, "Gone", domain.VisibilityPublic)
	hidden := createTestRecipe(t, s, owner, "Hidden", domain.VisibilityPublic)

	for _, r := range []*domain.Recipe{keep, gone, hidden} {
		_, err := svc.ToggleFavorite(ctx, fan, r.ID)
		require.NoError(t, err)
	}
	require.NoError(t, s.DeleteRecipe(ctx, gone.ID))
	_, err := s.MutateRecipe(ctx, hidden.ID, true, func(r *domain.Recipe) error {
		r.SetVisibility(domain.VisibilityPrivate)
		return nil
	})
	require.NoError(t, err)

	cards, err := svc.ListFavorites(ctx, fan)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, keep.ID, cards[0].ID)

	favorites := reload(t, s, fan).Favorites
	assert.NotContains(t, favorites, gone.ID)
	assert.Contains(t, favorites, hidden.ID, "unreadable favorites are kept")
}

func TestEngagement_RegisterView(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	reader := createTestUser(t, s, "reader@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)

	views, err := svc.RegisterView(ctx, r, owner)
	require.NoError(t, err)
	assert.Zero(t, views)

	views, err = svc.RegisterView(ctx, r, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, views, "anonymous fetches count")

	for range 2 {
		_, err = svc.RegisterView(ctx, r, reader)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, reloadRecipe(t, s, r.ID).Views)
}

func TestEngagement_CopyRecipe(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	reader := createTestUser(t, s, "reader@example.com")
	src := createTestRecipe(t, s, owner, "Pie", domain.VisibilityPublic)
	_, err := s.MutateRecipe(ctx, src.ID, false, func(r *domain.Recipe) error {
		r.Rating = 4
		return nil
	})
	require.NoError(t, err)

	fork, err := svc.CopyRecipe(ctx, reader, src.ID)
	require.NoError(t, err)

	assert.Equal(t, reader.ID, fork.OwnerID)
	assert.Equal(t, domain.VisibilityPrivate, fork.Visibility)
	assert.Zero(t, fork.Rating)
	assert.Equal(t, src.ID, fork.OriginalRecipeID)
	assert.Equal(t, owner.ID, fork.ForkedFromID)
	assert.Equal(t, "Pie (Copy)", fork.Title)

	assert.Equal(t, 1, reloadRecipe(t, s, src.ID).Copies)
	assert.Contains(t, reload(t, s, reader).Recipes, fork.ID)
}

func TestEngagement_CopyBlockedForViewShare(t *testing.T) {
	s := setupStore(t)
	svc := NewEngagementService(s, s, nil)
	ctx := context.Background()
	owner := createTestUser(t, s, "owner@example.com")
	viewer := createTestUser(t, s, "viewer@example.com")
	r := createTestRecipe(t, s, owner, "Pie", domain.VisibilityShared)
	_, err := s.MutateRecipe(ctx, r.ID, true, func(r *domain.Recipe) error {
		r.ShareWith(viewer.Email, viewer.ID, domain.PermissionView, r.CreatedAt)
		return nil
	})
	require.NoError(t, err)

	_, err = svc.CopyRecipe(ctx, viewer, r.ID)
	requireCode(t, err, domainerrors.CodeForbidden)
	assert.Zero(t, reloadRecipe(t, s, r.ID).Copies)
}
