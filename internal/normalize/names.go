package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace and trims the input.
func CleanText(v string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(v, " "))
}

// NormalizeName lowercases, collapses whitespace, and trims the input.
func NormalizeName(v string) string {
	return strings.ToLower(CleanText(v))
}

// NormalizeSex maps free-form sex values onto M, F or U. Empty input stays
// empty; anything unrecognized becomes U.
func NormalizeSex(v string) string {
	switch NormalizeName(v) {
	case "":
		return ""
	case "m", "male", "man":
		return "M"
	case "f", "female", "woman":
		return "F"
	}
	return "U"
}

// Subscriber relationships recognized on item 6.
const (
	RelationshipSelf   = "self"
	RelationshipSpouse = "spouse"
	RelationshipChild  = "child"
	RelationshipOther  = "other"
)

// NormalizeRelationship maps a subscriber relationship onto self, spouse,
// child or other. Empty input means self.
func NormalizeRelationship(v string) string {
	switch s := NormalizeName(v); s {
	case "", RelationshipSelf:
		return RelationshipSelf
	case RelationshipSpouse, RelationshipChild:
		return s
	}
	return RelationshipOther
}
