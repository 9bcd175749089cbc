package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&per_page=12", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 12, p.PerPage)
	assert.Equal(t, 24, p.Offset)
}

func TestFromRequest_Malformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=abc&per_page=-5", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}

func TestNew_ClampsPerPage(t *testing.T) {
	p := New(2, 1000)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, MaxPerPage, p.Offset)
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 5, New(2, 2))

	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)
	assert.Equal(t, []string{"a", "b"}, r.Items)
}

func TestNewResult_NilItemsBecomeEmpty(t *testing.T) {
	r := NewResult[int](nil, 0, New(1, 10))

	assert.NotNil(t, r.Items)
	assert.Equal(t, 0, r.TotalPages)
	assert.False(t, r.HasNext)
}

func TestSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	first := Slice(all, New(1, 2))
	assert.Equal(t, []int{1, 2}, first.Items)
	assert.Equal(t, 5, first.TotalCount)

	last := Slice(all, New(3, 2))
	assert.Equal(t, []int{5}, last.Items)
	assert.False(t, last.HasNext)

	beyond := Slice(all, New(9, 2))
	assert.Empty(t, beyond.Items)
}
