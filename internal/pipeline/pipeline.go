// Package pipeline runs a document through extraction, coding, claim
// building and validation.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimforge/internal/claim"
	"github.com/gyeh/claimforge/internal/coding"
	"github.com/gyeh/claimforge/internal/config"
	"github.com/gyeh/claimforge/internal/document"
	"github.com/gyeh/claimforge/internal/extract"
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
	"github.com/gyeh/claimforge/internal/normalize"
	"github.com/gyeh/claimforge/internal/validate"
)

// Stage names reported in StageError.
const (
	StageDocument = "document"
	StageClaim    = "claim"
)

// StageError wraps an error with the stage where it occurred.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline holds the stage components. It is safe for concurrent use.
type Pipeline struct {
	parser    document.Parser
	extractor *extract.Extractor
	assembler *coding.Assembler
	builder   *claim.Builder
	validator *validate.Validator
	log       zerolog.Logger
}

// New wires the stages from cfg. client may be nil, which disables model
// enhancement regardless of cfg.
func New(cfg *config.Config, client modelclient.Client, log zerolog.Logger) *Pipeline {
	useModel := cfg.Model.Enabled && client != nil
	return &Pipeline{
		parser: document.TextParser{},
		extractor: extract.New(client,
			extract.WithLogger(log.With().Str("stage", "extract").Logger()),
			extract.WithModelEnhancement(useModel),
			extract.WithTimeout(cfg.Model.Timeout),
		),
		assembler: coding.New(client,
			coding.WithLogger(log.With().Str("stage", "coding").Logger()),
			coding.WithModelSuggestions(useModel),
			coding.WithTimeout(cfg.Model.Timeout),
			coding.WithMinModelConfidence(cfg.Coding.MinModelConfidence),
		),
		builder: claim.New(
			claim.WithLogger(log.With().Str("stage", "claim").Logger()),
			claim.WithDefaultPlaceOfService(cfg.Claim.DefaultPlaceOfService),
		),
		validator: validate.New(),
		log:       log,
	}
}

// NewModelClient returns an Ollama client for cfg, or nil when the model is
// disabled.
func NewModelClient(cfg *config.Config, log zerolog.Logger) modelclient.Client {
	if !cfg.Model.Enabled {
		return nil
	}
	return modelclient.NewOllama(modelclient.Config{
		BaseURL:         cfg.Model.BaseURL,
		Model:           cfg.Model.Name,
		Timeout:         cfg.Model.Timeout,
		Temperature:     cfg.Model.Temperature,
		MaxTokens:       cfg.Model.MaxTokens,
		BreakerFailures: cfg.Model.BreakerFailures,
		BreakerCooldown: cfg.Model.BreakerCooldown,
	}, log.With().Str("component", "ollama").Logger())
}

// CheckModel pings client when it supports it. An unreachable server is
// logged and nil is returned so the run continues on patterns alone.
func CheckModel(ctx context.Context, client modelclient.Client, timeout time.Duration, log zerolog.Logger) modelclient.Client {
	p, ok := client.(modelclient.Pinger)
	if !ok {
		return client
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("model server unavailable, continuing with pattern extraction only")
		return nil
	}
	return client
}

// Result is everything produced for one document.
type Result struct {
	RunID      uuid.UUID               `json:"run_id"`
	Document   *document.Document      `json:"document"`
	Extracted  *model.ExtractedData    `json:"extracted"`
	Coding     *model.CodingResult     `json:"coding"`
	Claim      *model.Claim            `json:"claim"`
	Validation *model.ValidationResult `json:"validation"`
	Summary    model.RunSummary        `json:"-"`
}

// RunFile parses path and runs it.
func (p *Pipeline) RunFile(ctx context.Context, path string, overrides ...claim.Override) (*Result, error) {
	doc, err := p.parser.Parse(ctx, path)
	if err != nil {
		return nil, &StageError{Stage: StageDocument, Err: err}
	}
	return p.Run(ctx, doc, overrides...)
}

// Run executes extract → code → build → validate for one document. Sparse
// or empty text still yields a full result; the only errors come from claim
// overrides.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document, overrides ...claim.Override) (*Result, error) {
	totalStart := time.Now()
	runID := uuid.New()
	log := p.log.With().
		Str("run_id", runID.String()).
		Str("document", filepath.Base(doc.Path)).
		Logger()

	// Stage 1: Extract
	start := time.Now()
	extracted := p.extractor.Extract(ctx, doc.Text)
	durExtract := time.Since(start)

	// Stage 2: Code
	start = time.Now()
	extConf := extracted.ExtractionConfidence
	cr := p.assembler.SuggestCodes(ctx, doc.Text, extracted.Diagnoses, extracted.Procedures, &extConf)
	durCoding := time.Since(start)

	// Stage 3: Build
	start = time.Now()
	c, err := p.builder.Build(extracted, cr, overrides...)
	if err != nil {
		return nil, &StageError{Stage: StageClaim, Err: err}
	}
	durClaim := time.Since(start)

	// Stage 4: Validate
	start = time.Now()
	vr := p.validator.Validate(c)
	durValidate := time.Since(start)

	res := &Result{
		RunID:      runID,
		Document:   doc,
		Extracted:  extracted,
		Coding:     cr,
		Claim:      c,
		Validation: vr,
	}
	res.Summary = model.RunSummary{
		DocumentPath:         doc.Path,
		DocumentSHA256:       doc.SHA256,
		RunID:                runID.String(),
		Diagnoses:            len(cr.Diagnoses),
		Procedures:           len(cr.Procedures),
		ServiceLines:         len(c.ServiceLines),
		TotalChargeCents:     *normalize.DollarsToCents(&c.TotalCharge),
		ExtractionConfidence: extracted.ExtractionConfidence,
		CodingConfidence:     cr.OverallConfidence,
		Valid:                vr.Valid,
		Errors:               vr.ErrorsCount,
		Warnings:             vr.WarningsCount,
		Infos:                vr.InfoCount,
		ModelStatus:          modelStatus(extracted, cr),
		CodesByType:          codesByType(cr),
		DurationExtract:      durExtract,
		DurationCoding:       durCoding,
		DurationClaim:        durClaim,
		DurationValidate:     durValidate,
		DurationTotal:        time.Since(totalStart),
	}

	log.Info().
		Int("diagnoses", res.Summary.Diagnoses).
		Int("procedures", res.Summary.Procedures).
		Int("service_lines", res.Summary.ServiceLines).
		Bool("valid", vr.Valid).
		Int("errors", vr.ErrorsCount).
		Int("warnings", vr.WarningsCount).
		Float64("coding_confidence", cr.OverallConfidence).
		Str("total_duration", res.Summary.DurationTotal.String()).
		Msg("document processed")

	return res, nil
}

// modelStatus reports failed if either stage's model call failed, ok if
// either succeeded, and disabled otherwise.
func modelStatus(d *model.ExtractedData, cr *model.CodingResult) string {
	ext := d.Metadata[model.MetaModelStatus]
	cod := cr.Metadata.ModelStatus
	switch {
	case ext == model.ModelStatusFailed || cod == model.ModelStatusFailed:
		return model.ModelStatusFailed
	case ext == model.ModelStatusOK || cod == model.ModelStatusOK:
		return model.ModelStatusOK
	}
	return model.ModelStatusDisabled
}

func codesByType(cr *model.CodingResult) map[string]int {
	out := make(map[string]int, len(model.AllCodeTypes))
	for _, ct := range model.AllCodeTypes {
		out[ct.Name] = 0
	}
	for _, s := range cr.Diagnoses {
		out[s.CodeType]++
	}
	for _, s := range cr.Procedures {
		out[s.CodeType]++
	}
	return out
}
