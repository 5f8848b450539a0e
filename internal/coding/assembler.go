// Package coding merges diagnosis and procedure code suggestions into the
// set a claim is built from.
package coding

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
	"github.com/gyeh/claimforge/internal/normalize"
	"github.com/gyeh/claimforge/internal/prompts"
)

// DefaultMinModelConfidence is the lowest confidence at which a model-only
// code is accepted.
const DefaultMinModelConfidence = 0.6

// Assembler produces a CodingResult from extracted codes and an optional
// model suggestion pass.
type Assembler struct {
	client        modelclient.Client
	useModel      bool
	timeout       time.Duration
	minConfidence float64
	log           zerolog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Assembler) { a.log = log }
}

// WithModelSuggestions toggles the model pass.
func WithModelSuggestions(enabled bool) Option {
	return func(a *Assembler) { a.useModel = enabled }
}

// WithTimeout bounds the model call.
func WithTimeout(d time.Duration) Option {
	return func(a *Assembler) { a.timeout = d }
}

// WithMinModelConfidence sets the acceptance threshold for model-only codes.
func WithMinModelConfidence(c float64) Option {
	return func(a *Assembler) { a.minConfidence = c }
}

// New returns an Assembler. A nil client disables model suggestions.
func New(client modelclient.Client, opts ...Option) *Assembler {
	a := &Assembler{
		client:        client,
		useModel:      client != nil,
		timeout:       60 * time.Second,
		minConfidence: DefaultMinModelConfidence,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SuggestCodes merges existing codes with model suggestions, assigns
// diagnosis letters, links procedures to diagnoses, back-fills pointers,
// reports mismatches and scores the result.
func (a *Assembler) SuggestCodes(ctx context.Context, notes string, existingDx []model.DiagnosisCode, existingProc []model.ProcedureCode, extractionConfidence *float64) *model.CodingResult {
	status := model.ModelStatusDisabled
	var sugg modelSuggestions
	if a.useModel && a.client != nil && strings.TrimSpace(notes) != "" {
		var err error
		sugg, err = a.requestModel(ctx, notes)
		if err != nil {
			a.log.Warn().Err(err).Msg("model code suggestion failed, using extracted codes only")
			status = model.ModelStatusFailed
		} else {
			status = model.ModelStatusOK
		}
	}

	diagnoses := MergeDiagnoses(FromDiagnoses(existingDx), sugg.diagnoses, a.minConfidence)
	procedures := MergeProcedures(FromProcedures(existingProc), sugg.procedures, a.minConfidence)
	letters := AssignLetters(diagnoses)
	sugg.resolvePointers(procedures, letters)

	result := &model.CodingResult{
		Diagnoses:             diagnoses,
		Procedures:            procedures,
		DiagnosisLetters:      letters,
		DiagnosisProcedureMap: MapDiagnosesToProcedures(diagnoses, procedures, letters),
	}
	BackfillPointers(result)
	result.Mismatches = DetectMismatches(result)
	result.OverallConfidence = Confidence(result, extractionConfidence)
	result.Metadata = metadata(result, status)

	a.log.Debug().
		Int("diagnoses", len(diagnoses)).
		Int("procedures", len(procedures)).
		Int("mismatches", len(result.Mismatches)).
		Float64("confidence", result.OverallConfidence).
		Msg("coding assembled")
	return result
}

func metadata(r *model.CodingResult, status string) model.CodingMetadata {
	md := model.CodingMetadata{
		TotalDiagnoses:  len(r.Diagnoses),
		TotalProcedures: len(r.Procedures),
		ModelStatus:     status,
	}
	for _, m := range r.Mismatches {
		switch m.Severity {
		case model.SeverityError:
			md.ErrorCount++
		case model.SeverityWarning:
			md.WarningCount++
		case model.SeverityInfo:
			md.InfoCount++
		}
	}
	return md
}

// modelSuggestions holds the model's answer. pointerCodes maps a procedure
// code to the diagnosis codes the model linked it to.
type modelSuggestions struct {
	diagnoses    []model.CodeSuggestion
	procedures   []model.CodeSuggestion
	pointerCodes map[string][]string
}

func (a *Assembler) requestModel(ctx context.Context, notes string) (modelSuggestions, error) {
	prompt, err := prompts.CodeMapping(notes)
	if err != nil {
		return modelSuggestions{}, err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	resp, err := a.client.StructuredCompletion(ctx, prompt, prompts.CodingSchema)
	if err != nil {
		return modelSuggestions{}, err
	}
	return parseSuggestions(resp), nil
}

func suggestionConfidence(m map[string]any) float64 {
	c, ok := modelclient.Float(m, "confidence")
	if !ok {
		return 0.8
	}
	return normalize.Clamp(c, 0, 1)
}

func parseSuggestions(resp map[string]any) modelSuggestions {
	out := modelSuggestions{pointerCodes: make(map[string][]string)}
	var modelDx []string
	for _, d := range modelclient.Objects(resp, "diagnoses") {
		code := normalize.NormalizeICD10(modelclient.String(d, "code"))
		if !model.IsICD10(code) {
			continue
		}
		modelDx = append(modelDx, code)
		out.diagnoses = append(out.diagnoses, model.CodeSuggestion{
			Code:        code,
			CodeType:    model.CodeTypeICD10,
			Description: normalize.CleanText(modelclient.String(d, "description")),
			Rationale:   normalize.CleanText(modelclient.String(d, "rationale")),
			Confidence:  suggestionConfidence(d),
		})
	}
	for _, p := range modelclient.Objects(resp, "procedures") {
		code, mod := normalize.SplitModifier(modelclient.String(p, "code"))
		ct := model.ClassifyProcedure(code)
		if ct == "" {
			continue
		}
		if mod == "" {
			mod = normalize.NormalizeCode(modelclient.String(p, "modifier"))
		}
		for _, l := range modelclient.Strings(p, "diagnosis_pointers") {
			l = strings.ToUpper(l)
			if !model.IsDiagnosisLetter(l) {
				continue
			}
			if i := int(l[0] - 'A'); i < len(modelDx) {
				out.pointerCodes[code] = append(out.pointerCodes[code], modelDx[i])
			}
		}
		out.procedures = append(out.procedures, model.CodeSuggestion{
			Code:        code,
			CodeType:    ct,
			Description: normalize.CleanText(modelclient.String(p, "description")),
			Rationale:   normalize.CleanText(modelclient.String(p, "rationale")),
			Confidence:  suggestionConfidence(p),
			Metadata:    model.SuggestionMetadata{Modifier: mod},
		})
	}
	return out
}

// resolvePointers turns the model's diagnosis links into explicit pointer
// letters on model-sourced procedures, using the final letter table.
func (s modelSuggestions) resolvePointers(procs []model.CodeSuggestion, letters model.DiagnosisLetters) {
	if len(s.pointerCodes) == 0 {
		return
	}
	for i := range procs {
		p := &procs[i]
		if len(p.Metadata.ExplicitPointers) > 0 || p.SourceText != "" {
			continue
		}
		for _, code := range s.pointerCodes[p.Code] {
			if l, ok := letters.Letter(code); ok && !contains(p.Metadata.ExplicitPointers, l) {
				p.Metadata.ExplicitPointers = append(p.Metadata.ExplicitPointers, l)
			}
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
