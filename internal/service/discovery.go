package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/store"
)

// DiscoveryService serves the public feed and recipe search. Queries run
// against the search index; rendered pages are cached.
type DiscoveryService struct {
	users    UserStore
	recipes  RecipeStore
	searcher RecipeSearcher
	cache    PageCache
	logger   *slog.Logger
}

// NewDiscoveryService creates a new discovery service. cache may be nil.
func NewDiscoveryService(users UserStore, recipes RecipeStore, searcher RecipeSearcher, cache PageCache, log *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		users:    users,
		recipes:  recipes,
		searcher: searcher,
		cache:    cache,
		logger:   logger.OrDiscard(log),
	}
}

// FeedParams filters and pages the public feed.
type FeedParams struct {
	store.PageParams
	Category domain.Category
	Region   domain.Region
	Search   string
	Sort     string
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	store.Page[RecipeCard]
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func (p FeedParams) cacheKey(viewerID string) string {
	return strings.Join([]string{
		"feed",
		viewerID,
		string(p.Category),
		string(p.Region),
		strings.ToLower(strings.TrimSpace(p.Search)),
		p.Sort,
		fmt.Sprint(p.Page),
		fmt.Sprint(p.Limit),
	}, "|")
}

// PublicFeed lists public recipes, excluding the viewer's own. viewer may
// be nil.
func (s *DiscoveryService) PublicFeed(ctx context.Context, viewer *domain.User, p FeedParams) (*FeedPage, error) {
	if !search.ValidSort(p.Sort) {
		return nil, domainerrors.ValidationWithDetails("invalid sort",
			map[string]string{"sort": "must be one of " + strings.Join(search.SortKeys, ", ")})
	}
	if !p.Category.IsValid() || !p.Region.IsValid() {
		return nil, domainerrors.Validation("invalid category or region")
	}
	p.Normalize(store.DefaultPageLimit, store.MaxPageLimit)

	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}

	key := p.cacheKey(viewerID)
	var cached FeedPage
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	res, err := s.searcher.Search(ctx, search.SearchParams{
		Query:          p.Search,
		Visibility:     string(domain.VisibilityPublic),
		ExcludeOwnerID: viewerID,
		Category:       string(p.Category),
		Region:         string(p.Region),
		Limit:          p.Limit,
		Offset:         p.Offset(),
		Sort:           p.Sort,
	})
	if err != nil {
		return nil, fmt.Errorf("search feed: %w", err)
	}

	recipes, err := s.recipes.GetRecipes(ctx, res.IDs)
	if err != nil {
		return nil, fmt.Errorf("load feed recipes: %w", err)
	}
	// The index can trail the store briefly; trust the document.
	visible := recipes[:0]
	for _, r := range recipes {
		if r.Visibility == domain.VisibilityPublic && !r.IsOwnedBy(viewerID) {
			visible = append(visible, r)
		}
	}
	cs, err := cards(ctx, s.users, visible)
	if err != nil {
		return nil, err
	}

	total := int(res.Total)
	page := &FeedPage{
		Page: store.Page[RecipeCard]{
			Items: cs,
			Total: total,
			Page:  p.Page,
			Limit: p.Limit,
			Pages: store.Pages(total, p.Limit),
		},
	}
	page.HasNext = page.Page.HasNext()
	page.HasPrev = page.Page.HasPrev()

	if s.cache != nil {
		s.cache.Set(ctx, key, page)
	}
	return page, nil
}
