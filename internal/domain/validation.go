// Package domain holds what the clinic entities share: the validation error
// shown back on forms and the parsers that turn submitted strings into typed
// values.
package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"

	"github.com/consultorio/consultorio/internal/platform/db"
)

// DateLayout and ClockLayout are the wire formats of date and time inputs.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ValidationError carries one human-readable message for the form that
// produced it.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AsValidation reports whether err is (or wraps) a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func Required(value, label string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", Invalid("%s is required.", label)
	}
	return v, nil
}

func ParseDate(value, label string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, Invalid("%s is required.", label)
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, Invalid("%s must be a date (YYYY-MM-DD).", label)
	}
	return t, nil
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(value, label string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value, label)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseClock validates an "HH:MM" time of day and returns it normalised
// (zero padded, seconds dropped).
func ParseClock(value, label string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", Invalid("%s is required.", label)
	}
	for _, layout := range []string{ClockLayout, "15:04:05", "3:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", Invalid("%s must be a time (HH:MM).", label)
}

func ParseOptionalClock(value, label string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return ParseClock(value, label)
}

func ParseUUID(value, label string) (uuid.UUID, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return uuid.Nil, Invalid("%s is required.", label)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, Invalid("%s is not valid.", label)
	}
	return id, nil
}

// ParseOptionalUUID returns nil for an empty value, the select's "none" choice.
func ParseOptionalUUID(value, label string) (*uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := ParseUUID(value, label)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseAmount parses a money amount that must be greater than zero. Both "."
// and "," are accepted as the decimal separator.
// maxAmount is the first value NUMERIC(12,2) columns cannot hold.
var maxAmount = decimal.New(1, 10)

func ParseAmount(value, label string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, Invalid("%s is required.", label)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return decimal.Zero, Invalid("%s must be a number.", label)
	}
	if !d.IsPositive() {
		return decimal.Zero, Invalid("%s must be greater than zero.", label)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, Invalid("%s can have at most two decimals.", label)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, Invalid("%s must be less than 10000000000.", label)
	}
	return d, nil
}

// ParsePositiveInt parses a whole number greater than zero.
func ParsePositiveInt(value, label string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, Invalid("%s is required.", label)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, Invalid("%s must be a whole number greater than zero.", label)
	}
	return n, nil
}

// ParseBool reads a checkbox value.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// NormalizePhone validates a phone number for region (ISO 3166 alpha-2, used
// when the number has no country prefix) and returns it in E.164. Empty stays
// empty.
func NormalizePhone(value, region, label string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(v, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", Invalid("%s is not a valid phone number.", label)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeEmail validates a bare e-mail address. Empty stays empty.
func NormalizeEmail(value, label string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", Invalid("%s is not a valid e-mail address.", label)
	}
	return strings.ToLower(addr.Address), nil
}

// Optional trims value and returns nil when nothing is left.
func Optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MissingReference turns a foreign-key violation raised while saving into a
// message saying what was referenced; other errors pass through. Deletes
// keep the raw error so the "associated records" message applies.
func MissingReference(err error, what string) error {
	if errors.Is(err, db.ErrForeignKey) {
		return Invalid("The selected %s no longer exists.", what)
	}
	return err
}
