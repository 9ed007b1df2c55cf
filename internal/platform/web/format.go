package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Display formats shared by the list and detail pages.
const (
	DateFormat     = "02/01/2006"
	DateTimeFormat = "02/01/2006 15:04"
)

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}

func OptDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Date(*t)
}

func OptDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(DateTimeFormat)
}

// ISODate formats t for a date input.
func ISODate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func OptID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Money renders an amount with two decimals behind the currency symbol.
func Money(symbol string, d decimal.Decimal) string {
	if symbol == "" {
		return d.StringFixed(2)
	}
	return symbol + " " + d.StringFixed(2)
}
