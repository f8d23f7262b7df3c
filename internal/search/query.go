package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Sort keys accepted by Search. The leading "-" means descending.
const (
	SortNewest  = "-createdAt"
	SortOldest  = "createdAt"
	SortViews   = "-views"
	SortLikes   = "-likes"
	SortRating  = "-rating"
	SortTitle   = "title"
	SortTitleZA = "-title"
)

// SortKeys lists every accepted sort key.
var SortKeys = []string{SortNewest, SortOldest, SortViews, SortLikes, SortRating, SortTitle, SortTitleZA}

// SearchParams configures a recipe query.
type SearchParams struct {
	Query string // Free text over title, tags and ingredients

	// Filters
	Visibility     string // Exact visibility; empty means any
	OwnerID        string // Only recipes owned by this user
	ExcludeOwnerID string // Drop recipes owned by this user
	Category       string
	Region         string

	// Pagination
	Limit  int
	Offset int

	Sort string // One of SortKeys; empty means SortNewest
}

// SearchResult holds the ids of matching recipes in result order.
type SearchResult struct {
	IDs    []string `json:"ids"`
	Total  uint64   `json:"total"`
	TookMs int64    `json:"took_ms"`
}

// Search executes a recipe query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), limit, max(params.Offset, 0), false)
	searchRequest.SortBy(sortFields(params.Sort))

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		IDs:    make([]string, 0, len(searchResult.Hits)),
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
	}
	for _, hit := range searchResult.Hits {
		result.IDs = append(result.IDs, hit.ID)
	}
	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	must := []query.Query{}

	if q := strings.TrimSpace(params.Query); q != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		tagMatch := bleve.NewMatchQuery(q)
		tagMatch.SetField("tags")
		tagMatch.SetBoost(2.0)
		textQueries = append(textQueries, tagMatch)

		ingredientMatch := bleve.NewMatchQuery(q)
		ingredientMatch.SetField("ingredients")
		textQueries = append(textQueries, ingredientMatch)

		// Prefix query for partial words (minimum 2 chars)
		if len(q) >= 2 && !strings.Contains(q, " ") {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(q))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		must = append(must, bleve.NewDisjunctionQuery(textQueries...))
	}

	for field, value := range map[string]string{
		"visibility": params.Visibility,
		"owner_id":   params.OwnerID,
		"category":   params.Category,
		"region":     params.Region,
	} {
		if value == "" {
			continue
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		must = append(must, tq)
	}

	if len(must) == 0 {
		must = append(must, bleve.NewMatchAllQuery())
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)

	if params.ExcludeOwnerID != "" {
		tq := bleve.NewTermQuery(params.ExcludeOwnerID)
		tq.SetField("owner_id")
		bq.AddMustNot(tq)
	}

	return bq
}

// sortFields maps a sort key to Bleve sort fields. Ties break on newest
// first and then id so paging is stable.
func sortFields(sort string) []string {
	switch sort {
	case SortOldest:
		return []string{"created_at", "_id"}
	case SortViews:
		return []string{"-views", "-created_at", "_id"}
	case SortLikes:
		return []string{"-likes", "-created_at", "_id"}
	case SortRating:
		return []string{"-rating", "-created_at", "_id"}
	case SortTitle:
		return []string{"title_sort", "_id"}
	case SortTitleZA:
		return []string{"-title_sort", "_id"}
	default:
		return []string{"-created_at", "_id"}
	}
}

// ValidSort reports whether sort is empty or a known sort key.
func ValidSort(sort string) bool {
	if sort == "" {
		return true
	}
	for _, k := range SortKeys {
		if k == sort {
			return true
		}
	}
	return false
}
