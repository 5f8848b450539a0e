package normalize

import (
	"strings"
	"time"
)

// Date layouts found in clinical notes.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// Layouts accepted on the claim form.
var claimDateFormats = []string{
	"01 02 2006",
	"01/02/2006",
	"01-02-2006",
}

// ParseDate attempts to parse a date string in multiple common formats.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, fmt := range dateFormats {
		if t, err := time.Parse(fmt, s); err == nil {
			return &t
		}
	}
	return nil
}

// ToISODate converts any recognized date to YYYY-MM-DD. Unparseable input
// yields "".
func ToISODate(s string) string {
	t := ParseDate(s)
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ToClaimDate converts a YYYY-MM-DD date to the form's "MM DD YYYY".
// Anything else is returned unchanged so the validator can report it.
func ToClaimDate(iso string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format("01 02 2006")
}

// ParseClaimDate parses a form date in "MM DD YYYY", "MM/DD/YYYY" or
// "MM-DD-YYYY" layout.
func ParseClaimDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, fmt := range claimDateFormats {
		if t, err := time.Parse(fmt, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
