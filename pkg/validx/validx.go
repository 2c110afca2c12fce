// Package validx holds the input validators used before anything is written
// to the user store. Validators never panic and never stop at the first
// problem: callers run every check and hand the results to Join.
package validx

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ErrInvalid is matched by every error produced in this package.
var ErrInvalid = errors.New("validx: invalid input")

const (
	MaxEmailLength    = 254
	MaxBioLength      = 500
	MaxLocationLength = 100
	MaxTags           = 20
	MaxTagLength      = 30
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+@[A-Za-z0-9_.\-]+\.[A-Za-z]{2,4}$`)

// FieldError describes a single rejected field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s, %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// Errors is an aggregate of field errors in the order they were checked.
type Errors []*FieldError

func (es Errors) Error() string {
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (es Errors) Is(target error) bool { return target == ErrInvalid }

// Fields returns the names of the rejected fields.
func (es Errors) Fields() []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Field)
	}
	return out
}

// Join collects the non-nil results of a set of checks. It returns nil when
// every check passed.
func Join(errs ...error) error {
	var out Errors
	for _, err := range errs {
		if err == nil {
			continue
		}

		var fe *FieldError
		var agg Errors
		switch {
		case errors.As(err, &agg):
			out = append(out, agg...)
		case errors.As(err, &fe):
			out = append(out, fe)
		default:
			out = append(out, &FieldError{Field: "input", Reason: err.Error()})
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func fail(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// String checks the rune length of value against [min, max]. With asciiOnly
// set, anything outside [A-Za-z0-9] is rejected, including whitespace.
func String(field, value string, min, max int, asciiOnly bool) error {
	if asciiOnly && !isAlphanumeric(value) {
		return fail(field, "contains characters other than A-Z, a-z and 0-9")
	}

	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return fail(field, "minimum length %d, maximum length %d", min, max)
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Email checks the local@domain.tld shape with a 2-4 letter TLD.
func Email(field, value string) error {
	if len(value) > MaxEmailLength || !emailPattern.MatchString(value) {
		return fail(field, "not a valid email address")
	}
	return nil
}

// Date accepts an empty value or a year-month-day triple that names a real
// calendar day. 2021-02-30 is rejected rather than rolled over to March.
func Date(field, value string) error {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return fail(field, "invalid date form")
	}

	nums := make([]int, 3)
	for i, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return fail(field, "invalid date form")
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return fail(field, "invalid date form")
		}
		nums[i] = n
	}

	year, month, day := nums[0], nums[1], nums[2]
	if year > 9999 || month > 12 {
		return fail(field, "invalid date form")
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return fail(field, "invalid date form")
	}
	return nil
}

// Bio accepts an empty value or up to MaxBioLength printable runes.
func Bio(field, value string) error {
	if value == "" {
		return nil
	}

	if utf8.RuneCountInString(value) > MaxBioLength {
		return fail(field, "maximum length %d", MaxBioLength)
	}

	for _, r := range value {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			continue
		}
		return fail(field, "contains unprintable characters")
	}
	return nil
}

// Location accepts letters, spaces and the punctuation found in place names.
func Location(field, value string) error {
	if value == "" {
		return nil
	}

	if utf8.RuneCountInString(value) > MaxLocationLength {
		return fail(field, "maximum length %d", MaxLocationLength)
	}

	for _, r := range value {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '\'' || r == '.' {
			continue
		}
		return fail(field, "may only contain letters, spaces and - ' .")
	}
	return nil
}

// Tags bounds the number of tags and the length of each one.
func Tags(field string, tags []string) error {
	if len(tags) > MaxTags {
		return fail(field, "at most %d tags", MaxTags)
	}

	for _, tag := range tags {
		n := utf8.RuneCountInString(tag)
		if n < 1 || n > MaxTagLength {
			return fail(field, "each tag must be 1 to %d characters", MaxTagLength)
		}
	}
	return nil
}

// Match is the password confirmation check.
func Match(field, value, confirmation string) error {
	if value != confirmation {
		return fail(field, "passwords do not match")
	}
	return nil
}

// OneOf rejects values outside allowed. An empty value is accepted so unset
// enums pass through.
func OneOf(field, value string, allowed ...string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fail(field, "must be one of %s", strings.Join(allowed, ", "))
}
