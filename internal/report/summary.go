package report

import (
	"sort"

	"github.com/gyeh/claimforge/internal/model"
)

// Summary aggregates the rows of a report.
type Summary struct {
	Documents        int
	Valid            int
	Invalid          int
	Failed           int
	Errors           int
	Warnings         int
	TotalChargeCents int64
	AvgCoding        float64
	AvgExtraction    float64
	CodesByType      map[string]int
	ModelStatus      map[string]int
	TopDiagnoses     []Count
}

// Count is a value with its frequency.
type Count struct {
	Value string
	N     int
}

// Summarize aggregates rows. Failed rows count toward Documents and Failed
// only.
func Summarize(rows []model.ReportRow, topN int) Summary {
	s := Summary{
		Documents:   len(rows),
		CodesByType: make(map[string]int),
		ModelStatus: make(map[string]int),
	}
	dx := make(map[string]int)
	processed := 0
	for i := range rows {
		r := &rows[i]
		if r.Failure != nil {
			s.Failed++
			continue
		}
		processed++
		if r.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		s.Errors += int(r.Errors)
		s.Warnings += int(r.Warnings)
		s.TotalChargeCents += r.TotalChargeCents
		s.AvgCoding += r.CodingConfidence
		s.AvgExtraction += r.ExtractionConfidence
		for name, n := range r.CodeCounts() {
			s.CodesByType[name] += int(n)
		}
		s.ModelStatus[r.ModelStatus]++
		if r.PrimaryDiagnosis != nil {
			dx[*r.PrimaryDiagnosis]++
		}
	}
	if processed > 0 {
		s.AvgCoding /= float64(processed)
		s.AvgExtraction /= float64(processed)
	}

	for v, n := range dx {
		s.TopDiagnoses = append(s.TopDiagnoses, Count{Value: v, N: n})
	}
	sort.Slice(s.TopDiagnoses, func(i, j int) bool {
		a, b := s.TopDiagnoses[i], s.TopDiagnoses[j]
		if a.N != b.N {
			return a.N > b.N
		}
		return a.Value < b.Value
	})
	if topN >= 0 && len(s.TopDiagnoses) > topN {
		s.TopDiagnoses = s.TopDiagnoses[:topN]
	}
	return s
}
