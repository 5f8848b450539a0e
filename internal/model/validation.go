package model

// ValidationMessage is one finding against a claim.
type ValidationMessage struct {
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	RuleID     string   `json:"rule_id"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ValidationResult is an append-only list of findings. Valid turns false with
// the first error and stays false.
type ValidationResult struct {
	Valid         bool                `json:"valid"`
	Messages      []ValidationMessage `json:"messages"`
	ErrorsCount   int                 `json:"errors_count"`
	WarningsCount int                 `json:"warnings_count"`
	InfoCount     int                 `json:"info_count"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true, Messages: []ValidationMessage{}}
}

// Add appends msg and updates the counts.
func (r *ValidationResult) Add(msg ValidationMessage) {
	r.Messages = append(r.Messages, msg)
	switch msg.Severity {
	case SeverityError:
		r.ErrorsCount++
		r.Valid = false
	case SeverityWarning:
		r.WarningsCount++
	case SeverityInfo:
		r.InfoCount++
	}
}

// Errors returns only the error-severity findings.
func (r *ValidationResult) Errors() []ValidationMessage {
	var out []ValidationMessage
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}

// HasRule reports whether any finding carries ruleID.
func (r *ValidationResult) HasRule(ruleID string) bool {
	for _, m := range r.Messages {
		if m.RuleID == ruleID {
			return true
		}
	}
	return false
}
