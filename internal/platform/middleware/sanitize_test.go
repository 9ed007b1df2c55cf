package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func sanitize(t *testing.T, req *http.Request, logger zerolog.Logger) error {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	return Sanitize(logger)(okHandler)(c)
}

func wantBadRequest(t *testing.T, err error) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSanitize_AllowsNormalRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients?q=N%C3%BA%C3%B1ez&page=2", nil)
	if err := sanitize(t, req, zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSanitize_PathTraversal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients/%2e%2e/etc", nil)
	wantBadRequest(t, sanitize(t, req, zerolog.Nop()))
}

func TestSanitize_NullByteInQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients?q=abc%00", nil)
	wantBadRequest(t, sanitize(t, req, zerolog.Nop()))
}

func TestSanitize_HeaderInjection(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header["X-Forwarded-Host"] = []string{"a\r\nSet-Cookie: x=1"}
	wantBadRequest(t, sanitize(t, req, zerolog.Nop()))
}

func TestSanitize_OversizedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("X-Long", strings.Repeat("a", maxHeaderValueSize+1))
	wantBadRequest(t, sanitize(t, req, zerolog.Nop()))
}

func TestSanitize_SQLPatternOnlyWarns(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/patients?q=x%27+UNION+SELECT+1", nil)
	if err := sanitize(t, req, zerolog.New(&buf)); err != nil {
		t.Fatalf("expected request to pass, got %v", err)
	}
	if !strings.Contains(buf.String(), "suspicious SQL pattern") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}
