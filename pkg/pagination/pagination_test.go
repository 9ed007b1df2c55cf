package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string) Params {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "/?limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor(t, "/?limit=500"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	if p := paramsFor(t, "/?offset=-5"); p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := paramsFor(t, "/?limit=abc&offset=xyz")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults for invalid input, got %+v", p)
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasPrevious() || p.PreviousOffset() != 0 {
		t.Errorf("unexpected previous: %v %d", p.HasPrevious(), p.PreviousOffset())
	}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.HasNext(15) {
		t.Error("expected no next page at the end")
	}
	if !p.HasNext(16) {
		t.Error("expected a next page")
	}
}

func TestPageLinks_KeepsFilters(t *testing.T) {
	u, _ := url.Parse("/appointments?status=scheduled&offset=20")
	links := Params{Limit: DefaultLimit, Offset: 20}.PageLinks(u, 65)

	if links.Prev != "/appointments?status=scheduled" {
		t.Errorf("unexpected prev link: %s", links.Prev)
	}
	if links.Next != "/appointments?offset=40&status=scheduled" {
		t.Errorf("unexpected next link: %s", links.Next)
	}
	if links.From != 21 || links.To != 40 || links.Total != 65 {
		t.Errorf("unexpected range: %+v", links)
	}
}

func TestPageLinks_SinglePage(t *testing.T) {
	u, _ := url.Parse("/patients")
	links := Params{Limit: 50, Offset: 0}.PageLinks(u, 3)
	if links.Prev != "" || links.Next != "" {
		t.Errorf("expected no links, got %+v", links)
	}
	if links.From != 1 || links.To != 3 {
		t.Errorf("unexpected range: %+v", links)
	}

	empty := Params{Limit: 20}.PageLinks(u, 0)
	if empty.From != 0 || empty.To != 0 {
		t.Errorf("expected zero range for empty listing, got %+v", empty)
	}
}
