package model

// ReportRow mirrors the Parquet schema of the batch report: one row per
// processed document.
type ReportRow struct {
	BatchID              string  `parquet:"batch_id"`
	RunID                string  `parquet:"run_id"`
	DocumentPath         string  `parquet:"document_path"`
	DocumentSHA256       string  `parquet:"document_sha256"`
	PatientName          *string `parquet:"patient_name,optional"`
	PrimaryDiagnosis     *string `parquet:"primary_diagnosis,optional"`
	ICD10Codes           int32   `parquet:"icd10_codes"`
	CPTCodes             int32   `parquet:"cpt_codes"`
	HCPCSCodes           int32   `parquet:"hcpcs_codes"`
	ServiceLines         int32   `parquet:"service_lines"`
	TotalChargeCents     int64   `parquet:"total_charge_cents"`
	ExtractionConfidence float64 `parquet:"extraction_confidence"`
	CodingConfidence     float64 `parquet:"coding_confidence"`
	Valid                bool    `parquet:"valid"`
	Errors               int32   `parquet:"errors"`
	Warnings             int32   `parquet:"warnings"`
	Infos                int32   `parquet:"infos"`
	ModelStatus          string  `parquet:"model_status"`
	Failure              *string `parquet:"failure,optional"`
	DurationMillis       int64   `parquet:"duration_ms"`
}

// CodeCounts returns the per-code-type counts keyed by code type name.
func (r *ReportRow) CodeCounts() map[string]int32 {
	return map[string]int32{
		CodeTypeICD10: r.ICD10Codes,
		CodeTypeCPT:   r.CPTCodes,
		CodeTypeHCPCS: r.HCPCSCodes,
	}
}
