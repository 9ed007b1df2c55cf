package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists routes reachable without a session.
var publicPaths = map[string]bool{
	"/login":     true,
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// SessionSkipper returns true for requests whose route needs no session.
func SessionSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is reachable without a session.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
