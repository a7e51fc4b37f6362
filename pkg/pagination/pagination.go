// Package pagination pages and sorts in-memory result sets.
package pagination

import (
	"strings"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Pagination is a normalized page request.
type Pagination struct {
	Page    int
	PerPage int
}

// New clamps page to at least 1 and perPage to [1, 100], using 20 when
// perPage is unset.
func New(page, perPage int) Pagination {
	page = max(page, 1)
	switch {
	case perPage < 1:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset is the index of the first item on the page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// Result is one page of items plus the totals a client needs to walk the rest.
type Result[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// Paginate cuts the requested page out of items. A page past the end yields
// an empty, non-nil Data slice.
func Paginate[T any](items []T, p Pagination) Result[T] {
	n := len(items)
	lo := min(p.Offset(), n)
	hi := min(lo+p.PerPage, n)

	page := make([]T, hi-lo)
	copy(page, items[lo:hi])

	return Result[T]{
		Data:       page,
		Total:      int64(n),
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: (n + p.PerPage - 1) / p.PerPage,
	}
}

// SortOrder is the direction of one sort key.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Sort is one parsed sort key.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOption is an ordered list of sort keys restricted to a whitelist.
type SortOption struct {
	sorts   []Sort
	allowed map[string]string
}

// NewSortOption returns an empty SortOption. allowed maps the names a client
// may send to the keys the compare function understands.
func NewSortOption(allowed map[string]string) *SortOption {
	return &SortOption{allowed: allowed}
}

// Parse appends the keys in a comma separated list such as "-title,path".
// A leading '-' sorts descending and '+' is accepted for ascending. Names
// outside the whitelist are dropped.
func (s *SortOption) Parse(raw string) *SortOption {
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		order := SortAsc
		switch {
		case strings.HasPrefix(part, "-"):
			order, part = SortDesc, part[1:]
		case strings.HasPrefix(part, "+"):
			part = part[1:]
		}
		if key, ok := s.allowed[part]; ok && part != "" {
			s.sorts = append(s.sorts, Sort{Field: key, Order: order})
		}
	}
	return s
}

// Sorts returns the parsed keys in priority order.
func (s *SortOption) Sorts() []Sort { return s.sorts }

// IsEmpty reports whether no key survived parsing.
func (s *SortOption) IsEmpty() bool { return len(s.sorts) == 0 }

// Compare runs cmp for each key in order and returns the first non-zero
// result, negated for descending keys. A nil option compares everything equal.
func Compare[T any](s *SortOption, a, b T, cmp func(field string, a, b T) int) int {
	if s == nil {
		return 0
	}
	for _, k := range s.sorts {
		if c := cmp(k.Field, a, b); c != 0 {
			if k.Order == SortDesc {
				return -c
			}
			return c
		}
	}
	return 0
}
