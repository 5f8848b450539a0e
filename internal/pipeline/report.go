package pipeline

import (
	"strings"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

// ReportRows converts batch items to report rows tagged with batchID.
func ReportRows(batchID string, items []BatchItem) []model.ReportRow {
	rows := make([]model.ReportRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, ReportRow(batchID, it))
	}
	return rows
}

// ReportRow flattens one batch item. Failed items carry only the path and
// the failure text.
func ReportRow(batchID string, it BatchItem) model.ReportRow {
	row := model.ReportRow{BatchID: batchID, DocumentPath: it.Path}
	if it.Err != nil || it.Result == nil {
		msg := "no result"
		if it.Err != nil {
			msg = it.Err.Error()
		}
		row.Failure = &msg
		row.ModelStatus = model.ModelStatusDisabled
		return row
	}

	res := it.Result
	s := res.Summary
	row.RunID = s.RunID
	row.DocumentSHA256 = s.DocumentSHA256
	row.ICD10Codes = int32(s.CodesByType[model.CodeTypeICD10])
	row.CPTCodes = int32(s.CodesByType[model.CodeTypeCPT])
	row.HCPCSCodes = int32(s.CodesByType[model.CodeTypeHCPCS])
	row.ServiceLines = int32(s.ServiceLines)
	row.TotalChargeCents = s.TotalChargeCents
	row.ExtractionConfidence = s.ExtractionConfidence
	row.CodingConfidence = s.CodingConfidence
	row.Valid = s.Valid
	row.Errors = int32(s.Errors)
	row.Warnings = int32(s.Warnings)
	row.Infos = int32(s.Infos)
	row.ModelStatus = s.ModelStatus
	row.DurationMillis = s.DurationTotal.Milliseconds()

	if c := res.Claim; c != nil {
		name := strings.TrimSpace(strings.Join([]string{c.PatientLastName, c.PatientFirstName}, ", "))
		name = strings.Trim(name, ", ")
		row.PatientName = normalize.OptStr(name)
		row.PrimaryDiagnosis = normalize.OptStr(c.DiagnosisA)
	}
	return row
}
