package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/platform/auth"
)

// AuditEntry describes one state-changing request.
type AuditEntry struct {
	TokenType  string
	Action     string // create, update, delete or the trailing verb (attend, cancel...)
	Entity     string
	EntityID   string
	Method     string
	Path       string
	Route      string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every mutating request (anything but GET, HEAD and OPTIONS) with
// the session's token type once the handler has run. Public paths such as
// /login are skipped so access tokens never reach the audit trail.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isMutating(req.Method) || auth.IsPublicPath(req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				TokenType:  auth.TokenTypeFromContext(req.Context()),
				Method:     req.Method,
				Path:       req.URL.Path,
				Route:      c.Path(),
				IPAddress:  c.RealIP(),
				StatusCode: statusOf(c, err),
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			entry.Entity, entry.EntityID, entry.Action = describeRoute(c.Path(), c.Param("id"))

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if entry.StatusCode >= 400 {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("token_type", entry.TokenType).
				Str("action", entry.Action).
				Str("entity", entry.Entity).
				Str("entity_id", entry.EntityID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("audit")

			return err
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// describeRoute derives entity and action from the registered route pattern:
//
//	/patients            -> patients, create
//	/patients/:id        -> patients, update
//	/patients/:id/delete -> patients, delete
//	/appointments/:id/attend -> appointments, attend
func describeRoute(route, id string) (entity, entityID, action string) {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", id, "unknown"
	}
	entity = parts[0]
	entityID = id

	switch {
	case len(parts) == 1:
		action = "create"
	case len(parts) == 2 && strings.HasPrefix(parts[1], ":"):
		action = "update"
	default:
		last := parts[len(parts)-1]
		if strings.HasPrefix(last, ":") {
			action = "update"
		} else {
			action = last
		}
	}
	return entity, entityID, action
}
