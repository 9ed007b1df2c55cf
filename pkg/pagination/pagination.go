package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit/offset query parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Links are the previous/next page URLs of a listing; empty when there is
// no such page.
type Links struct {
	Prev  string
	Next  string
	Total int
	From  int
	To    int
}

// PageLinks builds Links for the listing at u, keeping every other query
// parameter (the active filters) intact.
func (p Params) PageLinks(u *url.URL, total int) Links {
	links := Links{Total: total}
	if total > 0 {
		links.From = p.Offset + 1
		links.To = p.Offset + p.Limit
		if links.To > total {
			links.To = total
		}
	}
	if p.HasPrevious() {
		links.Prev = pageURL(u, p.PreviousOffset(), p.Limit)
	}
	if p.HasNext(total) {
		links.Next = pageURL(u, p.NextOffset(), p.Limit)
	}
	return links
}

func pageURL(u *url.URL, offset, limit int) string {
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	if limit != DefaultLimit {
		q.Set("limit", strconv.Itoa(limit))
	} else {
		q.Del("limit")
	}
	if offset == 0 {
		q.Del("offset")
	}
	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return out.String()
}
