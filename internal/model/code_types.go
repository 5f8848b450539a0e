package model

import "regexp"

// CodeType represents one of the supported code systems a suggestion can carry.
type CodeType struct {
	Name    string // e.g. "CPT"
	Column  string // report column counting codes of this type
	Pattern *regexp.Regexp
}

var (
	icd10Pattern = regexp.MustCompile(`^[A-Z]\d{2}(\.\d{1,4})?$`)
	cptPattern   = regexp.MustCompile(`^\d{5}$`)
	hcpcsPattern = regexp.MustCompile(`^[A-Z]\d{4}$`)
)

// Canonical code type names.
const (
	CodeTypeICD10 = "ICD-10"
	CodeTypeCPT   = "CPT"
	CodeTypeHCPCS = "HCPCS"
)

// AllCodeTypes lists the supported code types in canonical order.
var AllCodeTypes = []CodeType{
	{Name: CodeTypeICD10, Column: "icd10_codes", Pattern: icd10Pattern},
	{Name: CodeTypeCPT, Column: "cpt_codes", Pattern: cptPattern},
	{Name: CodeTypeHCPCS, Column: "hcpcs_codes", Pattern: hcpcsPattern},
}

// CodeTypeColumns returns just the column names for all code types.
func CodeTypeColumns() []string {
	cols := make([]string, len(AllCodeTypes))
	for i, ct := range AllCodeTypes {
		cols[i] = ct.Column
	}
	return cols
}

// CodeTypeByName returns the CodeType for the given name, or ok=false.
func CodeTypeByName(name string) (CodeType, bool) {
	for _, ct := range AllCodeTypes {
		if ct.Name == name {
			return ct, true
		}
	}
	return CodeType{}, false
}

// ClassifyProcedure reports whether code is a CPT or HCPCS Level II code.
// Returns "" when the code matches neither shape.
func ClassifyProcedure(code string) string {
	switch {
	case cptPattern.MatchString(code):
		return CodeTypeCPT
	case hcpcsPattern.MatchString(code):
		return CodeTypeHCPCS
	}
	return ""
}

// IsICD10 reports whether code has the ICD-10-CM shape: letter, two digits,
// optional decimal subdivision of one to four digits.
func IsICD10(code string) bool {
	return icd10Pattern.MatchString(code)
}

// IsProcedureCode reports whether code is 5 digits or a letter plus 4 digits.
func IsProcedureCode(code string) bool {
	return ClassifyProcedure(code) != ""
}
