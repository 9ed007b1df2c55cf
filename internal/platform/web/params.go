package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ParamID parses the path parameter name as a UUID. A malformed id cannot
// name any record, so it is answered with 404.
func ParamID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, MsgNotFound)
	}
	return id, nil
}

// Bind decodes a submitted form into dst.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission.").SetInternal(err)
	}
	return nil
}

// QueryDate reads an optional YYYY-MM-DD query parameter. Malformed values
// are ignored so a bad bookmark still lists something.
func QueryDate(c echo.Context, name string) *time.Time {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}

// QueryUUID reads an optional UUID query parameter, ignoring bad values.
func QueryUUID(c echo.Context, name string) *uuid.UUID {
	id, err := uuid.Parse(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &id
}
