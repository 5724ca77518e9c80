package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageFromQueryDefaults(t *testing.T) {
	p := PageFromQuery(url.Values{})
	require.Equal(t, Page{Page: 1, Limit: 10}, p)
	require.Equal(t, 0, p.Offset())

	p = PageFromQuery(url.Values{"page": {"3"}, "limit": {"500"}})
	require.Equal(t, Page{Page: 3, Limit: MaxLimit}, p)
	require.Equal(t, 200, p.Offset())

	p = PageFromQuery(url.Values{"page": {"abc"}, "limit": {"-2"}})
	require.Equal(t, Page{Page: 1, Limit: 10}, p)
}

func TestNewPagination(t *testing.T) {
	meta := NewPagination(Page{Page: 2, Limit: 10}, 25)
	require.Equal(t, 3, meta.TotalPages)
	require.Equal(t, 25, meta.Total)

	meta = NewPagination(Page{}, 0)
	require.Equal(t, 0, meta.TotalPages)
	require.Equal(t, 1, meta.Page)
}

func TestErrorHelpersWrapSentinels(t *testing.T) {
	require.ErrorIs(t, NotFoundf("role %d", 4), ErrNotFound)
	require.ErrorIs(t, Conflictf("email %q", "a@b.c"), ErrConflict)
	err := Validationf("bad %s", "field")
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "bad field")
}
