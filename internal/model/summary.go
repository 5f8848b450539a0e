package model

import "time"

// RunSummary captures metrics from a single document run.
type RunSummary struct {
	DocumentPath         string
	DocumentSHA256       string
	RunID                string
	Diagnoses            int
	Procedures           int
	ServiceLines         int
	TotalChargeCents     int64
	ExtractionConfidence float64
	CodingConfidence     float64
	Valid                bool
	Errors               int
	Warnings             int
	Infos                int
	ModelStatus          string
	CodesByType          map[string]int
	DurationExtract      time.Duration
	DurationCoding       time.Duration
	DurationClaim        time.Duration
	DurationValidate     time.Duration
	DurationTotal        time.Duration
}
