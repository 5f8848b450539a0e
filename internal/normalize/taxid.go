package normalize

import "strings"

// Tax ID kinds for item 25.
const (
	TaxIDSSN = "SSN"
	TaxIDEIN = "EIN"
)

// TaxIDType infers SSN or EIN from the hyphen layout: two hyphens read as an
// SSN (123-45-6789), anything else as an EIN.
func TaxIDType(id string) string {
	if strings.Count(id, "-") == 2 {
		return TaxIDSSN
	}
	return TaxIDEIN
}

// TaxIDDigits strips hyphens and surrounding space.
func TaxIDDigits(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}
