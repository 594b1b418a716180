package pagination

import (
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

const (
	// DefaultPerPage is the page size used when a caller omits per_page.
	DefaultPerPage = 50
	// DefaultMaxPerPage caps per_page when no ceiling is configured.
	DefaultMaxPerPage = 200
)

// Params holds 1-indexed page inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Validate rejects out-of-range inputs before any storage scan runs.
func (p Params) Validate(maxPerPage int) error {
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPerPage
	}
	if p.Page < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "page must be >= 1").
			WithDetails(map[string]any{"page": p.Page})
	}
	if p.PerPage < 1 || p.PerPage > maxPerPage {
		return pkgerrors.New(pkgerrors.CodeValidation, "per_page out of range").
			WithDetails(map[string]any{"per_page": p.PerPage, "max": maxPerPage})
	}
	return nil
}

// Offset returns the number of rows preceding the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Page is a single slice of an ordered result set.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
}

// PageCount returns ceil(total/perPage), and 0 for an empty set.
func PageCount(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	per := int64(perPage)
	return int((total + per - 1) / per)
}

// NewPage assembles a Page from a fetched slice.
func NewPage[T any](items []T, total int64, params Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Total:       total,
		Pages:       PageCount(total, params.PerPage),
		CurrentPage: params.Page,
		PerPage:     params.PerPage,
	}
}

// Map converts the items of a page while keeping its counters.
func Map[T, U any](page Page[T], fn func(T) U) Page[U] {
	items := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, fn(item))
	}
	return Page[U]{
		Items:       items,
		Total:       page.Total,
		Pages:       page.Pages,
		CurrentPage: page.CurrentPage,
		PerPage:     page.PerPage,
	}
}
