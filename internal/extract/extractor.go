// Package extract turns clinical document text into typed billing entities.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
	"github.com/gyeh/claimforge/internal/prompts"
)

// Extractor combines pattern extraction with an optional model pass.
type Extractor struct {
	client   modelclient.Client
	useModel bool
	timeout  time.Duration
	log      zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// WithModelEnhancement sets the default for Extract.
func WithModelEnhancement(enabled bool) Option {
	return func(e *Extractor) { e.useModel = enabled }
}

// WithTimeout bounds the model call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// New returns an Extractor. A nil client disables model enhancement.
func New(client modelclient.Client, opts ...Option) *Extractor {
	e := &Extractor{
		client:   client,
		useModel: client != nil,
		timeout:  60 * time.Second,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs extraction with the configured model setting.
func (e *Extractor) Extract(ctx context.Context, text string) *model.ExtractedData {
	return e.ExtractWith(ctx, text, e.useModel)
}

// ExtractWith runs extraction, asking the model only when useModel is set
// and a client is present. It never fails: missing data stays unset.
func (e *Extractor) ExtractWith(ctx context.Context, text string, useModel bool) *model.ExtractedData {
	out := &model.ExtractedData{
		Diagnoses:  []model.DiagnosisCode{},
		Procedures: []model.ProcedureCode{},
		Metadata: map[string]string{
			model.MetaExtractionMethod: "rules",
			model.MetaModelStatus:      model.ModelStatusDisabled,
		},
	}
	if strings.TrimSpace(text) == "" {
		return out
	}

	patient := extractPatient(text)
	insurance := extractInsurance(text)
	provider := extractProvider(text)
	diagnoses := extractDiagnoses(text)
	procedures := extractProcedures(text)
	out.Dates = extractDates(text)
	out.Amounts = extractAmounts(text)
	if pos := firstMatch(placeOfServiceRe, text); pos != "" {
		out.Metadata[model.MetaPlaceOfService] = pos
	}

	if useModel && e.client != nil {
		resp, err := e.requestModel(ctx, text)
		if err != nil {
			e.log.Warn().Err(err).Msg("model extraction failed, using pattern results only")
			out.Metadata[model.MetaModelStatus] = model.ModelStatusFailed
		} else {
			filled := mergeFields(&patient, modelclient.Object(resp, "patient"), patientPolicy)
			filled += mergeFields(&insurance, modelclient.Object(resp, "insurance"), insurancePolicy)
			filled += mergeFields(&provider, modelclient.Object(resp, "provider"), providerPolicy)

			extraDx := unionDiagnoses(diagnoses, modelDiagnoses(resp))
			diagnoses = append(diagnoses, extraDx...)
			var extraProc []model.ProcedureCode
			if len(procedures) == 0 {
				extraProc = modelProcedures(resp)
				procedures = extraProc
			}

			out.Metadata[model.MetaExtractionMethod] = "hybrid"
			out.Metadata[model.MetaModelStatus] = model.ModelStatusOK
			e.log.Debug().
				Int("fields_filled", filled).
				Int("model_diagnoses", len(extraDx)).
				Int("model_procedures", len(extraProc)).
				Msg("merged model extraction")
		}
	}

	if !patient.IsZero() {
		out.Patient = &patient
	}
	if !insurance.IsZero() {
		out.Insurance = &insurance
	}
	if !provider.IsZero() {
		out.Provider = &provider
	}
	out.Diagnoses = append(out.Diagnoses, diagnoses...)
	out.Procedures = append(out.Procedures, procedures...)
	out.ExtractionConfidence = Confidence(out)
	return out
}

// unionDiagnoses returns the entries of extra whose code is not in base.
func unionDiagnoses(base, extra []model.DiagnosisCode) []model.DiagnosisCode {
	seen := make(map[string]bool, len(base))
	for _, d := range base {
		seen[d.Code] = true
	}
	var out []model.DiagnosisCode
	for _, d := range extra {
		if seen[d.Code] {
			continue
		}
		seen[d.Code] = true
		out = append(out, d)
	}
	return out
}

func (e *Extractor) requestModel(ctx context.Context, text string) (map[string]any, error) {
	prompt, err := prompts.ExtractDocument(text)
	if err != nil {
		return nil, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.client.StructuredCompletion(ctx, prompt, prompts.ExtractionSchema)
}

// Confidence scores an extraction: the filled share of the six fields a
// claim cannot go without, plus codes found/5 capped at 0.2, capped at 1.
func Confidence(d *model.ExtractedData) float64 {
	critical := []string{}
	if d.Patient != nil {
		critical = append(critical, d.Patient.FirstName, d.Patient.LastName, d.Patient.DOB)
	}
	if d.Insurance != nil {
		critical = append(critical, d.Insurance.InsuranceName, d.Insurance.PolicyNumber)
	}
	if d.Provider != nil {
		critical = append(critical, d.Provider.ProviderNPI)
	}
	filled := 0
	for _, v := range critical {
		if v != "" {
			filled++
		}
	}
	score := float64(filled) / 6
	score += min(0.2, float64(len(d.Diagnoses)+len(d.Procedures))/5)
	return min(score, 1.0)
}
