package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/web"
)

type contextKey string

const TokenTypeKey contextKey = "token_type"

// TokenFingerprints reports the fingerprint of the current access token of
// a type.
type TokenFingerprints interface {
	Fingerprint(ctx context.Context, tokenType string) (string, error)
}

// RequireSession admits requests carrying a valid session cookie. HTML
// requests without one are redirected to /login; JSON requests get 401.
// With tokens set, a session opened before its access token was replaced
// is rejected too.
func RequireSession(s *Sessions, tokens TokenFingerprints) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if SessionSkipper(c) {
				return next(c)
			}

			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return unauthenticated(c)
			}
			claims, err := s.Parse(cookie.Value)
			if err != nil {
				s.End(c)
				return unauthenticated(c)
			}
			if tokens != nil {
				current, err := tokens.Fingerprint(c.Request().Context(), claims.TokenType)
				if err != nil && !errors.Is(err, db.ErrNotFound) {
					return err
				}
				if err != nil || current != claims.Fingerprint {
					zerolog.Ctx(c.Request().Context()).Info().
						Str("token_type", claims.TokenType).
						Msg("session ended by token rotation")
					s.End(c)
					return unauthenticated(c)
				}
			}

			c.Set("token_type", claims.TokenType)
			ctx := context.WithValue(c.Request().Context(), TokenTypeKey, claims.TokenType)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context) error {
	if web.WantsJSON(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Your session has expired. Please log in again.")
	}
	target := "/login"
	if c.Request().Method == http.MethodGet && c.Request().URL.Path != "/" {
		target += "?next=" + url.QueryEscape(c.Request().URL.RequestURI())
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// RequireTokenType admits sessions opened with one of types.
func RequireTokenType(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			current := TokenTypeFromContext(c.Request().Context())
			for _, t := range types {
				if current == t {
					return next(c)
				}
			}
			if len(types) == 1 && types[0] == TokenAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Only administrators can do this.")
			}
			return echo.NewHTTPError(http.StatusForbidden, "Your access token does not allow this action.")
		}
	}
}

func TokenTypeFromContext(ctx context.Context) string {
	t, _ := ctx.Value(TokenTypeKey).(string)
	return t
}

// IsAdmin reports whether the request runs under an administrator session.
func IsAdmin(c echo.Context) bool {
	return TokenTypeFromContext(c.Request().Context()) == TokenAdmin
}
