package api

import (
	"github.com/recipebook/recipebook-server/internal/store"
)

// PageQuery are the paging parameters of listing endpoints. Zero values
// fall back to each listing's defaults.
type PageQuery struct {
	Page  int `query:"page" minimum:"0" doc:"1-based page number"`
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Items per page"`
}

func (q PageQuery) params() store.PageParams {
	return store.PageParams{Page: q.Page, Limit: q.Limit}
}
