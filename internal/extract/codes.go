package extract

import (
	"regexp"
	"strings"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

// Confidence assigned to codes found by pattern.
const patternCodeConfidence = 0.7

// Characters allowed after the ICD-10 decimal point.
const maxICDSubdivision = 4

var (
	icdRe = regexp.MustCompile(`\b([A-Z]\d{2}(?:\.[0-9A-Za-z]+)?)\b`)

	procLineStartRe = regexp.MustCompile(`^[ \t]*(?:[-*•][ \t]*|\d{1,2}[.)][ \t]*)?(?:(?i:cpt|hcpcs|procedure|code)[ \t]*(?i:code)?[ \t]*[:#]?[ \t]*)?([A-Z]\d{4}|\d{5})(?:-([A-Z0-9]{2}))?\b`)
	procLabeledRe   = regexp.MustCompile(`\b(?i:cpt|hcpcs)(?:[ \t]+(?i:code))?[ \t]*[:#]?[ \t]*([A-Z]\d{4}|\d{5})(?:-([A-Z0-9]{2}))?\b`)

	lineAmountRe   = regexp.MustCompile(`\$[ \t]*(\d[\d,]*(?:\.\d{1,2})?)`)
	trailAmountRe  = regexp.MustCompile(`[ \t]*\$?[ \t]*\d[\d,]*\.\d{2}[ \t]*$`)
	unitsRe        = regexp.MustCompile(`(?i)\b(?:units?|qty|quantity)[ \t]*:?[ \t]*(\d{1,3})\b|(?:^|[\s(])[xX][ \t]?(\d{1,2})\b`)
	pointerRe      = regexp.MustCompile(`(?i)\b(?:(?:dx|diagnosis)[ \t]*)?pointers?[ \t]*:?[ \t]*([A-L](?:[ \t]*,?[ \t]*[A-L]){0,3})\b|\bdx[ \t]*:[ \t]*([A-L](?:[ \t]*,?[ \t]*[A-L]){0,3})\b`)
	modifierRe     = regexp.MustCompile(`(?i)\b(?:modifier[ \t]*:?|mod[ \t]*:)[ \t]*([A-Z0-9]{2})\b`)
	descLeadTrimRe = regexp.MustCompile(`^[\s:\-–—,]+`)
)

// extractDiagnoses finds ICD-10 shaped codes anywhere in the text. Repeated
// codes keep their first occurrence; a later mention can only supply a
// missing description. A subdivision is taken whole: tokens with more than
// four characters after the dot are skipped, and shorter ones that are not
// all digits (S72.001A) are kept for the validator to report.
func extractDiagnoses(text string) []model.DiagnosisCode {
	var out []model.DiagnosisCode
	index := make(map[string]int)
	for _, line := range strings.Split(text, "\n") {
		for _, idx := range icdRe.FindAllStringSubmatchIndex(line, -1) {
			code := strings.ToUpper(line[idx[2]:idx[3]])
			if _, sub, ok := strings.Cut(code, "."); ok && len(sub) > maxICDSubdivision {
				continue
			}
			desc := description(line[idx[1]:])
			if i, ok := index[code]; ok {
				if out[i].Description == "" {
					out[i].Description = desc
				}
				continue
			}
			index[code] = len(out)
			out = append(out, model.DiagnosisCode{
				Code:        code,
				Description: desc,
				Confidence:  patternCodeConfidence,
				SourceSpan:  strings.TrimSpace(line),
			})
		}
	}
	return out
}

type procMatch struct {
	code, modifier string
	rest           string
	line           string
}

func procedureMatches(line string) []procMatch {
	var out []procMatch
	seen := make(map[int]bool)
	if idx := procLineStartRe.FindStringSubmatchIndex(line); idx != nil {
		pm := procMatch{code: line[idx[2]:idx[3]], rest: line[idx[1]:], line: line}
		if idx[4] >= 0 {
			pm.modifier = line[idx[4]:idx[5]]
		}
		seen[idx[2]] = true
		out = append(out, pm)
	}
	for _, idx := range procLabeledRe.FindAllStringSubmatchIndex(line, -1) {
		if seen[idx[2]] {
			continue
		}
		pm := procMatch{code: line[idx[2]:idx[3]], rest: line[idx[1]:], line: line}
		if idx[4] >= 0 {
			pm.modifier = line[idx[4]:idx[5]]
		}
		out = append(out, pm)
	}
	return out
}

// extractProcedures finds CPT/HCPCS codes at list positions or after a
// CPT/HCPCS label. Entries are keyed by code plus modifier; the first
// occurrence wins and later ones only fill gaps.
func extractProcedures(text string) []model.ProcedureCode {
	var out []model.ProcedureCode
	index := make(map[string]int)
	for _, line := range strings.Split(text, "\n") {
		for _, pm := range procedureMatches(line) {
			p := model.ProcedureCode{
				Code:        pm.code,
				Modifier:    pm.modifier,
				Description: description(trailAmountRe.ReplaceAllString(pm.rest, "")),
				Confidence:  patternCodeConfidence,
				SourceSpan:  strings.TrimSpace(pm.line),
			}
			if p.Modifier == "" {
				p.Modifier = strings.ToUpper(firstMatch(modifierRe, pm.rest))
			}
			if v := normalize.ParseAmount(firstMatch(lineAmountRe, pm.rest)); v != nil {
				p.Charge = v
			}
			p.Units = parseUnits(pm.rest)
			p.DiagnosisPointers = parsePointers(pm.rest)

			key := p.Key()
			if i, ok := index[key]; ok {
				fillProcedure(&out[i], p)
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	for i := range out {
		if out[i].Charge == nil {
			out[i].Charge = lookupCharge(text, out[i].Code)
		}
	}
	return out
}

func fillProcedure(dst *model.ProcedureCode, src model.ProcedureCode) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Charge == nil {
		dst.Charge = src.Charge
	}
	if dst.Units == 0 {
		dst.Units = src.Units
	}
	if len(dst.DiagnosisPointers) == 0 {
		dst.DiagnosisPointers = src.DiagnosisPointers
	}
}

// lookupCharge finds "code: $amount" anywhere in the text.
func lookupCharge(text, code string) *float64 {
	re := regexp.MustCompile(`(?:^|\D)` + regexp.QuoteMeta(code) + `(?:-[A-Z0-9]{2})?[ \t]*[:\-–][ \t]*\$[ \t]*(\d[\d,]*(?:\.\d{1,2})?)`)
	return normalize.ParseAmount(firstMatch(re, text))
}

func parseUnits(rest string) int {
	m := unitsRe.FindStringSubmatch(rest)
	if m == nil {
		return 0
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func parsePointers(rest string) []string {
	m := pointerRe.FindStringSubmatch(rest)
	if m == nil {
		return nil
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	var out []string
	seen := make(map[string]bool)
	for _, r := range strings.ToUpper(s) {
		letter := string(r)
		if model.IsDiagnosisLetter(letter) && !seen[letter] {
			seen[letter] = true
			out = append(out, letter)
		}
	}
	return out
}

// description returns the text following a code on its line, or "" when the
// remainder is only an amount.
func description(rest string) string {
	d := normalize.CleanText(descLeadTrimRe.ReplaceAllString(rest, ""))
	if d == "" || strings.HasPrefix(d, "$") || (d[0] >= '0' && d[0] <= '9') {
		return ""
	}
	return d
}
