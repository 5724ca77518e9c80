package shared

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NormalizePage applies defaults and clamps the limit.
func NormalizePage(page, limit int) Page {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// PageFromQuery reads page and limit query parameters. Unparseable values fall
// back to defaults.
func PageFromQuery(q url.Values) Page {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return NormalizePage(page, limit)
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(p Page, total int) Pagination {
	p = NormalizePage(p.Page, p.Limit)
	totalPages := int(math.Ceil(float64(total) / float64(p.Limit)))
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}
