package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPage_TotalPages(t *testing.T) {
	p := Pageable{Page: 1, PageSize: 4}

	require.Equal(t, 3, NewPage(p, 9, []int{1, 2, 3, 4}).TotalPages)
	require.Equal(t, 2, NewPage(p, 8, []int{1, 2, 3, 4}).TotalPages)
	require.Equal(t, 0, NewPage[int](p, 0, nil).TotalPages)
	require.NotNil(t, NewPage[int](p, 0, nil).Content)
}

func TestPageable_Normalized(t *testing.T) {
	p := Pageable{}.Normalized()
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPageSize, p.PageSize)
	require.Equal(t, OrderDesc, p.Order)
	require.Equal(t, 0, p.Offset())

	p = Pageable{Page: 3, PageSize: 1000, Order: OrderAsc}.Normalized()
	require.Equal(t, MaxPageSize, p.PageSize)
	require.Equal(t, OrderAsc, p.Order)
	require.Equal(t, 200, p.Offset())

	p = Pageable{Page: math.MaxInt64/10 + 2, PageSize: 20}.Normalized()
	require.Equal(t, MaxPage, p.Page)
	require.Equal(t, (MaxPage-1)*20, p.Offset())
	require.Positive(t, p.Offset())
}

func TestParseSortOrder(t *testing.T) {
	o, ok := ParseSortOrder("ASC")
	require.True(t, ok)
	require.Equal(t, OrderAsc, o)

	o, ok = ParseSortOrder("")
	require.True(t, ok)
	require.Equal(t, OrderDesc, o)

	_, ok = ParseSortOrder("sideways")
	require.False(t, ok)
}

func TestMapPage(t *testing.T) {
	in := NewPage(Pageable{Page: 2, PageSize: 2}, 5, []int{3, 4})
	out := MapPage(in, func(v int) string { return string(rune('a' + v)) })

	require.Equal(t, []string{"d", "e"}, out.Content)
	require.Equal(t, 2, out.Page)
	require.Equal(t, 3, out.TotalPages)
	require.Equal(t, int64(5), out.TotalElements)
}
