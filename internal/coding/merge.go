package coding

import (
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

// Rationale recorded for codes that came from the document itself.
const (
	rationaleDocument   = "Stated in document text"
	rationaleExtraction = "Identified during document extraction"
)

// FromDiagnoses converts extracted diagnoses to suggestions, deduplicating by
// code. A duplicate replaces the kept entry when it has higher confidence, or
// equal confidence and the only description. The first position is kept.
func FromDiagnoses(dx []model.DiagnosisCode) []model.CodeSuggestion {
	out := make([]model.CodeSuggestion, 0, len(dx))
	index := make(map[string]int)
	for _, d := range dx {
		code := normalize.NormalizeICD10(d.Code)
		if code == "" {
			continue
		}
		s := model.CodeSuggestion{
			Code:        code,
			CodeType:    model.CodeTypeICD10,
			Description: d.Description,
			Rationale:   rationaleExtraction,
			Confidence:  normalize.Clamp(d.Confidence, 0, 1),
			SourceText:  d.SourceSpan,
		}
		if s.SourceText != "" {
			s.Rationale = rationaleDocument
		}
		i, seen := index[code]
		if !seen {
			index[code] = len(out)
			out = append(out, s)
			continue
		}
		kept := out[i]
		if s.Confidence > kept.Confidence ||
			(s.Confidence == kept.Confidence && kept.Description == "" && s.Description != "") {
			out[i] = s
		}
	}
	return out
}

// MergeDiagnoses adds model suggestions to the extracted list. Unknown codes
// need at least minConfidence. A known code may take a higher model
// confidence and its description; its rationale changes only when no source
// text backs it. Extracted order comes first, then model additions.
func MergeDiagnoses(existing, suggested []model.CodeSuggestion, minConfidence float64) []model.CodeSuggestion {
	out := append([]model.CodeSuggestion(nil), existing...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Code] = i
	}
	for _, s := range suggested {
		i, ok := index[s.Code]
		if !ok {
			if s.Confidence >= minConfidence {
				index[s.Code] = len(out)
				out = append(out, s)
			}
			continue
		}
		kept := &out[i]
		if s.Confidence <= kept.Confidence {
			continue
		}
		kept.Confidence = s.Confidence
		if s.Description != "" {
			kept.Description = s.Description
		}
		if kept.SourceText == "" && s.Rationale != "" {
			kept.Rationale = s.Rationale
		}
	}
	if out == nil {
		out = []model.CodeSuggestion{}
	}
	return out
}

// FromProcedures converts extracted procedures to suggestions, carrying line
// details and any explicit pointer letters in metadata.
func FromProcedures(procs []model.ProcedureCode) []model.CodeSuggestion {
	out := make([]model.CodeSuggestion, 0, len(procs))
	for _, p := range procs {
		code, mod := normalize.SplitModifier(p.Code)
		if code == "" {
			continue
		}
		if p.Modifier != "" {
			mod = normalize.NormalizeCode(p.Modifier)
		}
		ct := model.ClassifyProcedure(code)
		if ct == "" {
			ct = model.CodeTypeCPT
		}
		var ptrs []string
		for _, l := range p.DiagnosisPointers {
			if model.IsDiagnosisLetter(l) && !contains(ptrs, l) {
				ptrs = append(ptrs, l)
			}
		}
		rationale := rationaleExtraction
		if p.SourceSpan != "" {
			rationale = rationaleDocument
		}
		out = append(out, model.CodeSuggestion{
			Code:        code,
			CodeType:    ct,
			Description: p.Description,
			Rationale:   rationale,
			Confidence:  normalize.Clamp(p.Confidence, 0, 1),
			SourceText:  p.SourceSpan,
			Metadata: model.SuggestionMetadata{
				Modifier:         mod,
				Charge:           p.Charge,
				Units:            p.Units,
				DateOfService:    p.DateOfService,
				PlaceOfService:   p.PlaceOfService,
				ExplicitPointers: ptrs,
			},
		})
	}
	return out
}

// MergeProcedures uses the extracted procedures when there are any and
// otherwise the model suggestions of at least minConfidence. The result is
// deduplicated by base code, keeping the earliest entry.
func MergeProcedures(existing, suggested []model.CodeSuggestion, minConfidence float64) []model.CodeSuggestion {
	candidates := existing
	if len(existing) == 0 {
		candidates = nil
		for _, s := range suggested {
			if s.Confidence >= minConfidence {
				candidates = append(candidates, s)
			}
		}
	}
	out := make([]model.CodeSuggestion, 0, len(candidates))
	seen := make(map[string]bool)
	for _, s := range candidates {
		base := normalize.BaseCode(s.Code)
		if seen[base] {
			continue
		}
		seen[base] = true
		s.Code = base
		out = append(out, s)
	}
	return out
}
