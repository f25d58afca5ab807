package shared

import (
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage is applied when the caller omits limit.
	DefaultPerPage = 20
	// MaxPerPage caps the page size regardless of what the caller asks for.
	MaxPerPage = 100
)

// PageRequest is a 1-indexed pagination cursor.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest normalizes raw page/limit values: page defaults to 1 and is
// never negative, limit is clamped to [1, MaxPerPage] with a default of
// DefaultPerPage.
func NewPageRequest(page, limit int) PageRequest {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPerPage
	}
	if limit > MaxPerPage {
		limit = MaxPerPage
	}
	return PageRequest{Page: page, Limit: limit}
}

// PageFromQuery reads page and limit query parameters, falling back to the
// defaults on anything unparsable.
func PageFromQuery(values url.Values) PageRequest {
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return NewPageRequest(page, limit)
}

// Offset translates the cursor to a SQL OFFSET.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
