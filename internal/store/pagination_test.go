package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageParams_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageParams
		want PageParams
	}{
		{"defaults", PageParams{}, PageParams{Page: 1, Limit: 12}},
		{"negative page", PageParams{Page: -3, Limit: 5}, PageParams{Page: 1, Limit: 5}},
		{"limit capped", PageParams{Page: 2, Limit: 500}, PageParams{Page: 2, Limit: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize(DefaultPageLimit, MaxPageLimit)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page := Paginate(items, PageParams{Page: 2, Limit: 3})
	assert.Equal(t, []int{4, 5, 6}, page.Items)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.True(t, page.HasNext())
	assert.True(t, page.HasPrev())

	last := Paginate(items, PageParams{Page: 3, Limit: 3})
	assert.Equal(t, []int{7}, last.Items)
	assert.False(t, last.HasNext())

	beyond := Paginate(items, PageParams{Page: 9, Limit: 3})
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 10))
	assert.Equal(t, 1, Pages(10, 10))
	assert.Equal(t, 2, Pages(11, 10))
}
