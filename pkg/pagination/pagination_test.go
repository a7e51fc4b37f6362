package pagination

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		want          Pagination
	}{
		{"zero values", 0, 0, Pagination{Page: 1, PerPage: 20}},
		{"over limit", 3, 500, Pagination{Page: 3, PerPage: 100}},
		{"valid", 2, 10, Pagination{Page: 2, PerPage: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.page, tt.perPage))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	r := Paginate(items, New(2, 2))
	assert.Equal(t, []int{3, 4}, r.Data)
	assert.Equal(t, int64(5), r.Total)
	assert.Equal(t, 3, r.TotalPages)

	r = Paginate(items, New(3, 2))
	assert.Equal(t, []int{5}, r.Data)

	r = Paginate(items, New(9, 2))
	assert.Empty(t, r.Data)
	assert.NotNil(t, r.Data)
}

func TestSortOption_ParseAndCompare(t *testing.T) {
	s := NewSortOption(map[string]string{"title": "title", "path": "path"}).Parse("-title, path, bogus")
	require.Len(t, s.Sorts(), 2)
	assert.Equal(t, Sort{Field: "title", Order: SortDesc}, s.Sorts()[0])

	type item struct{ title, path string }
	cmp := func(field string, a, b item) int {
		if field == "title" {
			return strings.Compare(a.title, b.title)
		}
		return strings.Compare(a.path, b.path)
	}

	assert.Positive(t, Compare(s, item{"a", "x"}, item{"b", "x"}, cmp))
	assert.Negative(t, Compare(s, item{"a", "x"}, item{"a", "y"}, cmp))
	assert.Zero(t, Compare(NewSortOption(nil), item{"a", "x"}, item{"b", "y"}, cmp))
}
