package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/cache"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/store"
)

// setupDiscoveryTest wires an in-memory index, and a miniredis-backed feed
// cache when withCache is set, into the store's recipe indexers.
func setupDiscoveryTest(t *testing.T, withCache bool) (*DiscoveryService, *store.Store) {
	t.Helper()
	s := setupStore(t)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	index, err := search.NewSearchIndex(search.Options{Logger: quiet})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	s.AddRecipeIndexer(index)

	var pages PageCache
	if withCache {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		fc := cache.NewFeedCache(cache.NewRedisClient(config.RedisConfig{Addr: mr.Addr()}), time.Minute, quiet)
		t.Cleanup(func() { _ = fc.Close() })
		s.AddRecipeIndexer(fc)
		pages = fc
	}

	return NewDiscoveryService(s, s, index, pages, nil), s
}

func titles(cards []RecipeCard) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Title
	}
	return out
}

func TestDiscovery_PublicFeedExcludesPrivateAndOwn(t *testing.T) {
	svc, s := setupDiscoveryTest(t, false)
	ctx := context.Background()
	viewer := createTestUser(t, s, "viewer@example.com")
	cook := createTestUser(t, s, "cook@example.com")
	createTestRecipe(t, s, cook, "Carbonara", domain.VisibilityPublic)
	createTestRecipe(t, s, cook, "Curry", domain.VisibilityPublic)
	createTestRecipe(t, s, cook, "Secret", domain.VisibilityPrivate)
	createTestRecipe(t, s, cook, "Shared", domain.VisibilityShared)
	createTestRecipe(t, s, viewer, "My Own", domain.VisibilityPublic)

	page, err := svc.PublicFeed(ctx, viewer, FeedParams{Sort: search.SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carbonara", "Curry"}, titles(page.Items))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, store.DefaultPageLimit, page.Limit)
	assert.False(t, page.HasNext)

	anon, err := svc.PublicFeed(ctx, nil, FeedParams{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Carbonara", "Curry", "My Own"}, titles(anon.Items))
}

func TestDiscovery_PublicFeedFiltersAndPages(t *testing.T) {
	svc, s := setupDiscoveryTest(t, false)
	ctx := context.Background()
	cook := createTestUser(t, s, "cook@example.com")
	for _, title := range []string{"Apple Pie", "Banana Bread", "Cherry Tart"} {
		r := createTestRecipe(t, s, cook, title, domain.VisibilityPublic)
		_, err := s.MutateRecipe(ctx, r.ID, false, func(r *domain.Recipe) error {
			r.Category = "Dessert"
			return nil
		})
		require.NoError(t, err)
	}
	createTestRecipe(t, s, cook, "Tomato Soup", domain.VisibilityPublic)

	desserts, err := svc.PublicFeed(ctx, nil, FeedParams{
		PageParams: store.PageParams{Page: 2, Limit: 2},
		Category:   "Dessert",
		Sort:       search.SortTitle,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cherry Tart"}, titles(desserts.Items))
	assert.Equal(t, 3, desserts.Total)
	assert.Equal(t, 2, desserts.Pages)
	assert.True(t, desserts.HasPrev)
	assert.False(t, desserts.HasNext)

	bread, err := svc.PublicFeed(ctx, nil, FeedParams{Search: "bread"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana Bread"}, titles(bread.Items))

	_, err = svc.PublicFeed(ctx, nil, FeedParams{Sort: "random"})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = svc.PublicFeed(ctx, nil, FeedParams{Category: "Brunch"})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestDiscovery_CachedFeedIsInvalidatedByWrites(t *testing.T) {
	svc, s := setupDiscoveryTest(t, true)
	ctx := context.Background()
	cook := createTestUser(t, s, "cook@example.com")
	first := createTestRecipe(t, s, cook, "First", domain.VisibilityPublic)

	page, err := svc.PublicFeed(ctx, nil, FeedParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	cached, err := svc.PublicFeed(ctx, nil, FeedParams{})
	require.NoError(t, err)
	assert.Equal(t, titles(page.Items), titles(cached.Items))

	createTestRecipe(t, s, cook, "Second", domain.VisibilityPublic)
	page, err = svc.PublicFeed(ctx, nil, FeedParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	_, err = s.MutateRecipe(ctx, first.ID, true, func(r *domain.Recipe) error {
		r.SetVisibility(domain.VisibilityPrivate)
		return nil
	})
	require.NoError(t, err)
	page, err = svc.PublicFeed(ctx, nil, FeedParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Second"}, titles(page.Items))
}
