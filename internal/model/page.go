package model

import (
	"math"
	"strings"
)

// SortOrder is the ordering applied to a time-ordered query.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*PageSize within 32 bits.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// ParseSortOrder parses "asc" or "desc", defaulting to descending.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OrderDesc, true
	case "asc":
		return OrderAsc, true
	case "desc":
		return OrderDesc, true
	default:
		return "", false
	}
}

// Pageable describes a 1-indexed page request.
type Pageable struct {
	Page     int
	PageSize int
	Order    SortOrder
}

// Normalized returns a copy with defaults applied.
func (p Pageable) Normalized() Pageable {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Order != OrderAsc {
		p.Order = OrderDesc
	}
	return p
}

// Offset returns the number of rows preceding the page.
func (p Pageable) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a query result.
type Page[T any] struct {
	Page          int   `json:"page"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Content       []T   `json:"content"`
}

// NewPage builds a page and computes the page count.
func NewPage[T any](p Pageable, total int64, content []T) *Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &Page[T]{
		Page:          p.Page,
		PageSize:      p.PageSize,
		TotalElements: total,
		TotalPages:    pages,
		Content:       content,
	}
}

// MapPage converts the content of a page, keeping its counters.
func MapPage[T, U any](in *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, len(in.Content))
	for i, v := range in.Content {
		out[i] = fn(v)
	}
	return &Page[U]{
		Page:          in.Page,
		PageSize:      in.PageSize,
		TotalElements: in.TotalElements,
		TotalPages:    in.TotalPages,
		Content:       out,
	}
}
