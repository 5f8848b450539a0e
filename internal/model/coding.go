package model

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Severity grades a coding mismatch or a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// MaxDiagnosisLetters is the number of diagnosis slots (A through L) on the form.
const MaxDiagnosisLetters = 12

// DiagnosisLetter returns the slot letter for a zero-based position, or ""
// when the position is outside A..L.
func DiagnosisLetter(i int) string {
	if i < 0 || i >= MaxDiagnosisLetters {
		return ""
	}
	return string(rune('A' + i))
}

// IsDiagnosisLetter reports whether s is a single letter in A..L.
func IsDiagnosisLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'L'
}

// SuggestionMetadata carries the procedure-line details that travel with a
// suggestion from extraction to the claim.
type SuggestionMetadata struct {
	Modifier         string   `json:"modifier,omitempty"`
	Charge           *float64 `json:"charge,omitempty"`
	Units            int      `json:"units,omitempty"`
	DateOfService    string   `json:"date_of_service,omitempty"`
	PlaceOfService   string   `json:"place_of_service,omitempty"`
	ExplicitPointers []string `json:"explicit_pointers,omitempty"`

	// DiagnosisPointers is only written by the back-fill pass.
	DiagnosisPointers []string `json:"diagnosis_pointers,omitempty"`
}

// CodeSuggestion is a diagnosis or procedure code proposed for the claim.
type CodeSuggestion struct {
	Code        string             `json:"code"`
	CodeType    string             `json:"code_type"`
	Description string             `json:"description,omitempty"`
	Rationale   string             `json:"rationale,omitempty"`
	Confidence  float64            `json:"confidence"`
	SourceText  string             `json:"source_text,omitempty"`
	Metadata    SuggestionMetadata `json:"metadata"`
}

// Mismatch types.
const (
	MismatchMissingDiagnosis          = "missing_diagnosis"
	MismatchDiagnosisWithoutProcedure = "diagnosis_without_procedure"
	MismatchDuplicateCode             = "duplicate_code"
)

// CodeMismatch is a consistency finding about the suggested code set.
type CodeMismatch struct {
	MismatchType  string   `json:"mismatch_type"`
	Severity      Severity `json:"severity"`
	Message       string   `json:"message"`
	AffectedCodes []string `json:"affected_codes"`
	Suggestion    string   `json:"suggestion,omitempty"`
}

// LetterAssignment binds a diagnosis code to its slot letter.
type LetterAssignment struct {
	Code   string
	Letter string
}

// DiagnosisLetters is the ordered code→letter table. Order is assignment
// order, which is also A..L order.
type DiagnosisLetters []LetterAssignment

// Letter returns the letter assigned to code.
func (d DiagnosisLetters) Letter(code string) (string, bool) {
	for _, a := range d {
		if a.Code == code {
			return a.Letter, true
		}
	}
	return "", false
}

// Code returns the diagnosis code holding letter.
func (d DiagnosisLetters) Code(letter string) (string, bool) {
	for _, a := range d {
		if a.Letter == letter {
			return a.Code, true
		}
	}
	return "", false
}

// Map returns the table as a plain map.
func (d DiagnosisLetters) Map() map[string]string {
	m := make(map[string]string, len(d))
	for _, a := range d {
		m[a.Code] = a.Letter
	}
	return m
}

// MarshalJSON encodes the table as a JSON object in assignment order.
func (d DiagnosisLetters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Code)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Letter)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CodingMetadata summarizes a coding run.
type CodingMetadata struct {
	TotalDiagnoses  int    `json:"total_diagnoses"`
	TotalProcedures int    `json:"total_procedures"`
	ErrorCount      int    `json:"error_count"`
	WarningCount    int    `json:"warning_count"`
	InfoCount       int    `json:"info_count"`
	ModelStatus     string `json:"model_status"`
}

// CodingResult is the Coding Assembler's output.
type CodingResult struct {
	Diagnoses             []CodeSuggestion    `json:"diagnoses"`
	Procedures            []CodeSuggestion    `json:"procedures"`
	Mismatches            []CodeMismatch      `json:"mismatches"`
	DiagnosisProcedureMap map[string][]string `json:"diagnosis_procedure_map"`
	DiagnosisLetters      DiagnosisLetters    `json:"diagnosis_letters"`
	OverallConfidence     float64             `json:"overall_confidence"`
	Metadata              CodingMetadata      `json:"metadata"`
}
