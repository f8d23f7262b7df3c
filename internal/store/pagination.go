package store

// Default and maximum page sizes used when a caller omits or overshoots limit.
const (
	DefaultPageLimit = 12
	MaxPageLimit     = 50
)

// PageParams contains pagination request parameters.
type PageParams struct {
	Page  int // 1-based page number
	Limit int // Number of items per page
}

// Normalize clamps the parameters: page defaults to 1, limit to def and
// never exceeds max.
func (p *PageParams) Normalize(def, max int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
}

// Offset returns the index of the first item on the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page contains paginated data and metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.Pages }

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// Paginate slices items according to params. Params are expected to be
// normalized.
func Paginate[T any](items []T, params PageParams) Page[T] {
	total := len(items)
	page := Page[T]{
		Items: []T{},
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
		Pages: Pages(total, params.Limit),
	}

	start := params.Offset()
	if start >= total || start < 0 {
		return page
	}
	end := min(start+params.Limit, total)
	page.Items = items[start:end]
	return page
}

// Pages returns the number of pages needed for total items.
func Pages(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
