// AngelaMos | 2026
// pagination.go

package core

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*PageSize far from overflowing into a negative
	// OFFSET.
	MaxPage = 10_000
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps Page to [1, MaxPage] and PageSize to [1, MaxPageSize],
// substituting DefaultPageSize for a missing size.
func (p *Pagination) Normalize() {
	switch {
	case p.Page < 1:
		p.Page = 1
	case p.Page > MaxPage:
		p.Page = MaxPage
	}

	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
}

func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationFromQuery reads page and page_size, ignoring values that do not
// parse, and returns them normalized.
func PaginationFromQuery(r *http.Request) Pagination {
	p := Pagination{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", DefaultPageSize),
	}
	p.Normalize()
	return p
}

func queryInt(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}

	return parsed
}
