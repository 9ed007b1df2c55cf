package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
)

const (
	MsgForeignKey = "Cannot delete: this record has associated records."
	MsgNotFound   = "The requested record was not found."
	MsgInternal   = "Something went wrong. Please try again."
)

// entityLabels names tables in messages.
var entityLabels = map[string]string{
	"patient":                     "patient",
	"doctor":                      "doctor",
	"appointment":                 "appointment",
	"consulting_room":             "consulting room",
	"appointment_type":            "appointment type",
	"insurance_company":           "insurance company",
	"institution":                 "institution",
	"invoice":                     "invoice",
	"payment":                     "payment",
	"doctor_unavailable_day":      "unavailable day",
	"institution_unavailable_day": "unavailable day",
}

// constraintMessages overrides the generic duplicate message for composite
// unique keys.
var constraintMessages = map[string]string{
	"doctor_unavailable_day_doctor_id_date_key":           "This doctor is already marked as unavailable on that date.",
	"institution_unavailable_day_institution_id_date_key": "This institution is already marked as unavailable on that date.",
}

// DuplicateMessage renders "A <entity> with this <field> already exists."
func DuplicateMessage(ce *db.ConstraintError) string {
	if msg, ok := constraintMessages[ce.Constraint]; ok {
		return msg
	}
	entity, ok := entityLabels[ce.Table]
	if !ok {
		entity = strings.ReplaceAll(ce.Table, "_", " ")
	}
	if entity == "" {
		entity = "record"
	}
	field := strings.ReplaceAll(ce.Column, "_", " ")
	if field == "" {
		field = "value"
	}
	article := "A"
	if strings.ContainsRune("aeiou", rune(entity[0])) {
		article = "An"
	}
	return fmt.Sprintf("%s %s with this %s already exists.", article, entity, field)
}

// FormError returns the message to show on a re-rendered form for errors the
// user can fix: validation failures and constraint violations.
func FormError(err error) (int, string, bool) {
	if ve, ok := domain.AsValidation(err); ok {
		return http.StatusUnprocessableEntity, ve.Message, true
	}
	var ce *db.ConstraintError
	if errors.As(err, &ce) {
		if errors.Is(ce.Kind, db.ErrDuplicate) {
			return http.StatusConflict, DuplicateMessage(ce), true
		}
		return http.StatusConflict, MsgForeignKey, true
	}
	return 0, "", false
}

// ErrorMessage maps any handler error to a status and a message safe to
// show.
func ErrorMessage(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, "The page you requested does not exist."
		case http.StatusMethodNotAllowed:
			return he.Code, "This action is not available here."
		}
		if he.Code >= 500 && he.Code != http.StatusGatewayTimeout {
			return he.Code, MsgInternal
		}
		if msg, ok := he.Message.(string); ok && msg != "" {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	if status, msg, ok := FormError(err); ok {
		return status, msg
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The request took too long. Please try again."
	}
	return http.StatusInternalServerError, MsgInternal
}

// WantsJSON reports whether the client should get JSON rather than a page.
func WantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/health") {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}

// HTTPErrorHandler renders errors as an HTML page or a JSON body. Server-side
// failures are logged through the request logger.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := ErrorMessage(err)
	if status >= 500 {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).
			Str("path", c.Request().URL.Path).
			Int("status", status).
			Msg("request failed")
	}

	var werr error
	switch {
	case c.Request().Method == http.MethodHead:
		werr = c.NoContent(status)
	case WantsJSON(c):
		werr = c.JSON(status, map[string]string{"error": msg})
	default:
		werr = c.Render(status, "error", &Page{Title: http.StatusText(status), Error: msg, Status: status})
	}
	if werr != nil {
		_ = c.String(status, msg)
	}
}
