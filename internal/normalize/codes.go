package normalize

import (
	"regexp"
	"strings"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonICDChars     = regexp.MustCompile(`[^A-Za-z0-9.]`)
)

// NormalizeCode trims whitespace, uppercases, and strips non-alphanumeric characters.
// Returns "" if nothing is left.
func NormalizeCode(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// NormalizeICD10 uppercases an ICD-10 code and strips everything except
// letters, digits and the decimal point.
func NormalizeICD10(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	return nonICDChars.ReplaceAllString(strings.ToUpper(s), "")
}

// SplitModifier splits "99213-25" into base code and modifier. Codes without
// a hyphen come back unchanged with an empty modifier.
func SplitModifier(v string) (code, modifier string) {
	s := strings.TrimSpace(v)
	code, modifier, _ = strings.Cut(s, "-")
	return NormalizeCode(code), NormalizeCode(modifier)
}

// BaseCode returns the procedure code with any modifier removed.
func BaseCode(v string) string {
	code, _ := SplitModifier(v)
	return code
}
