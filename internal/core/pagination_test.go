// AngelaMos | 2026
// pagination_test.go

package core

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Normalize(t *testing.T) {
	cases := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{"zero", Pagination{}, Pagination{Page: 1, PageSize: DefaultPageSize}},
		{"negative", Pagination{Page: -4, PageSize: -1}, Pagination{Page: 1, PageSize: DefaultPageSize}},
		{"oversized page size", Pagination{Page: 3, PageSize: 500}, Pagination{Page: 3, PageSize: MaxPageSize}},
		{"huge page", Pagination{Page: math.MaxInt, PageSize: MaxPageSize}, Pagination{Page: MaxPage, PageSize: MaxPageSize}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.Normalize()
			assert.Equal(t, tc.want, p)
			assert.GreaterOrEqual(t, p.Offset(), 0)
		})
	}
}

func TestPaginationFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/?page="+strconv.Itoa(math.MaxInt)+"&page_size=50", nil)

	p := PaginationFromQuery(req)
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, (MaxPage-1)*50, p.Offset())

	req = httptest.NewRequest(http.MethodGet, "/?page=abc&page_size=", nil)
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, PaginationFromQuery(req))
}
