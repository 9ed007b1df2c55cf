package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/platform/web"
)

// Recovery turns a handler panic into a 500. The panic is logged on the
// request logger when Logger already attached one, so it carries the
// request_id.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				l := &logger
				if reqLogger := zerolog.Ctx(c.Request().Context()); reqLogger.GetLevel() != zerolog.Disabled {
					l = reqLogger
				}
				l.Error().
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, web.MsgInternal)
			}()
			return next(c)
		}
	}
}
