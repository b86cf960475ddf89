package helpers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"volunteermatch/internal/domain"
)

// Listing query defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseListFilter reads cause, page and page_size from the query string. Missing or
// malformed numbers fall back to the defaults and page_size is capped at MaxPageSize.
func ParseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	return domain.ListFilter{
		Cause: strings.TrimSpace(q.Get("cause")),
		Pagination: domain.PaginationParams{
			Page:     positiveInt(q, "page", DefaultPage),
			PageSize: min(positiveInt(q, "page_size", DefaultPageSize), MaxPageSize),
		},
	}
}

func positiveInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// PaginationMeta describes the page returned in a list response.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta builds the metadata for a page of a list with total matching items.
func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return PaginationMeta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}
