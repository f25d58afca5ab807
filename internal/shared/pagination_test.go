package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPageRequestDefaults(t *testing.T) {
	p := NewPageRequest(0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPerPage, p.Limit)
	require.Equal(t, 0, p.Offset())
}

func TestNewPageRequestClampsLimit(t *testing.T) {
	p := NewPageRequest(2, 500)
	require.Equal(t, MaxPerPage, p.Limit)
	require.Equal(t, MaxPerPage, p.Offset())

	p = NewPageRequest(-3, -1)
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPerPage, p.Limit)
}

func TestPageFromQuery(t *testing.T) {
	v := url.Values{}
	v.Set("page", "2")
	v.Set("limit", "5")
	p := PageFromQuery(v)
	require.Equal(t, PageRequest{Page: 2, Limit: 5}, p)
	require.Equal(t, 5, p.Offset())

	p = PageFromQuery(url.Values{"page": {"junk"}})
	require.Equal(t, 1, p.Page)
}
