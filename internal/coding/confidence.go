package coding

import (
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

// Confidence scores a coding result:
//
//	clamp(0, 1, 0.6*avg(dx) + 0.3*avg(proc) + 0.1*extraction - penalty)
//	penalty = min(0.4, 0.15*errors + 0.05*warnings)
//
// The extraction term is dropped when extraction is nil.
func Confidence(r *model.CodingResult, extraction *float64) float64 {
	score := 0.6*average(r.Diagnoses) + 0.3*average(r.Procedures)
	if extraction != nil {
		score += 0.1 * *extraction
	}
	var errs, warns int
	for _, m := range r.Mismatches {
		switch m.Severity {
		case model.SeverityError:
			errs++
		case model.SeverityWarning:
			warns++
		}
	}
	penalty := min(0.4, 0.15*float64(errs)+0.05*float64(warns))
	return normalize.Clamp(score-penalty, 0, 1)
}

func average(s []model.CodeSuggestion) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, c := range s {
		sum += c.Confidence
	}
	return sum / float64(len(s))
}
