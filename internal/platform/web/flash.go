package web

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const flashCookie = "consultorio_flash"

// Flash is a one-shot message carried across a redirect in a cookie.
type Flash struct {
	Kind    string
	Message string
}

func setFlash(c echo.Context, kind, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(kind + "|" + message))
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads the pending flash and expires its cookie.
func popFlash(c echo.Context) *Flash {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "|")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// Redirect answers a successful form post: 303 to url with a success flash.
func Redirect(c echo.Context, url, message string) error {
	if message != "" {
		setFlash(c, "success", message)
	}
	return c.Redirect(http.StatusSeeOther, url)
}

// RedirectError answers a failed post (a blocked delete, a refused status
// change) by going back to url with an error flash.
func RedirectError(c echo.Context, url, message string) error {
	setFlash(c, "error", message)
	return c.Redirect(http.StatusSeeOther, url)
}
