package domain

import (
	"strings"
	"unicode/utf8"
)

// Search gates shared by every quick search.
const (
	SearchMinLength         = 2
	DocumentSearchMinLength = 1
	SearchLimit             = 10
)

// SearchTerm trims q and reports whether it is long enough to run. Short
// queries return an empty result without reaching the store.
func SearchTerm(q string, minLength int) (string, bool) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minLength {
		return "", false
	}
	return q, true
}
