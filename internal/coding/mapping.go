package coding

import (
	"fmt"
	"sort"

	"github.com/gyeh/claimforge/internal/model"
)

// AssignLetters gives the first twelve distinct diagnoses the letters A..L in
// order. Later diagnoses get no letter.
func AssignLetters(dx []model.CodeSuggestion) model.DiagnosisLetters {
	letters := make(model.DiagnosisLetters, 0, min(len(dx), model.MaxDiagnosisLetters))
	seen := make(map[string]bool)
	for _, d := range dx {
		if len(letters) == model.MaxDiagnosisLetters {
			break
		}
		if seen[d.Code] {
			continue
		}
		seen[d.Code] = true
		letters = append(letters, model.LetterAssignment{Code: d.Code, Letter: model.DiagnosisLetter(len(letters))})
	}
	return letters
}

// MapDiagnosesToProcedures links each procedure to the diagnoses its explicit
// pointer letters name, or to the first diagnosis when it has none. Every
// diagnosis appears as a key, with an empty list when nothing links to it.
func MapDiagnosesToProcedures(dx, procs []model.CodeSuggestion, letters model.DiagnosisLetters) map[string][]string {
	m := make(map[string][]string, len(dx))
	for _, d := range dx {
		m[d.Code] = []string{}
	}
	for _, p := range procs {
		var targets []string
		if len(p.Metadata.ExplicitPointers) > 0 {
			for _, l := range p.Metadata.ExplicitPointers {
				if code, ok := letters.Code(l); ok {
					targets = append(targets, code)
				}
			}
		} else if len(dx) > 0 {
			targets = []string{dx[0].Code}
		}
		for _, code := range targets {
			if !contains(m[code], p.Code) {
				m[code] = append(m[code], p.Code)
			}
		}
	}
	return m
}

// BackfillPointers rewrites each procedure's metadata.diagnosis_pointers as
// the sorted letters of the diagnoses linked to it. Running it again gives
// the same result.
func BackfillPointers(r *model.CodingResult) {
	for i := range r.Procedures {
		p := &r.Procedures[i]
		var letters []string
		for _, a := range r.DiagnosisLetters {
			if contains(r.DiagnosisProcedureMap[a.Code], p.Code) && !contains(letters, a.Letter) {
				letters = append(letters, a.Letter)
			}
		}
		sort.Strings(letters)
		p.Metadata.DiagnosisPointers = letters
	}
}

// DetectMismatches reports procedures with no linked diagnosis (warning),
// diagnoses with no linked procedure (info) and repeated diagnosis codes
// (error).
func DetectMismatches(r *model.CodingResult) []model.CodeMismatch {
	out := []model.CodeMismatch{}

	linked := make(map[string]bool)
	for _, procs := range r.DiagnosisProcedureMap {
		for _, p := range procs {
			linked[p] = true
		}
	}
	for _, p := range r.Procedures {
		if linked[p.Code] {
			continue
		}
		out = append(out, model.CodeMismatch{
			MismatchType:  model.MismatchMissingDiagnosis,
			Severity:      model.SeverityWarning,
			Message:       fmt.Sprintf("Procedure %s has no supporting diagnosis", p.Code),
			AffectedCodes: []string{p.Code},
			Suggestion:    "Add a diagnosis that establishes medical necessity for this procedure",
		})
	}

	for _, d := range r.Diagnoses {
		if len(r.DiagnosisProcedureMap[d.Code]) > 0 {
			continue
		}
		out = append(out, model.CodeMismatch{
			MismatchType:  model.MismatchDiagnosisWithoutProcedure,
			Severity:      model.SeverityInfo,
			Message:       fmt.Sprintf("Diagnosis %s is not linked to any procedure", d.Code),
			AffectedCodes: []string{d.Code},
			Suggestion:    "Link a procedure if one was performed for this condition",
		})
	}

	counts := make(map[string]int)
	var order []string
	for _, d := range r.Diagnoses {
		if counts[d.Code] == 0 {
			order = append(order, d.Code)
		}
		counts[d.Code]++
	}
	for _, code := range order {
		if counts[code] < 2 {
			continue
		}
		out = append(out, model.CodeMismatch{
			MismatchType:  model.MismatchDuplicateCode,
			Severity:      model.SeverityError,
			Message:       fmt.Sprintf("Diagnosis %s appears %d times", code, counts[code]),
			AffectedCodes: []string{code},
			Suggestion:    "Remove the duplicate diagnosis entries",
		})
	}
	return out
}
