package coding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
)

func staticClient(resp map[string]any, err error) (modelclient.Client, *int) {
	calls := 0
	return modelclient.ClientFunc(func(ctx context.Context, prompt string, schema modelclient.Schema) (map[string]any, error) {
		calls++
		return resp, err
	}), &calls
}

func dx(code string, conf float64) model.DiagnosisCode {
	return model.DiagnosisCode{Code: code, Confidence: conf, SourceSpan: code}
}

func proc(code string, conf float64, pointers ...string) model.ProcedureCode {
	return model.ProcedureCode{Code: code, Confidence: conf, DiagnosisPointers: pointers, SourceSpan: code}
}

func floatPtr(v float64) *float64 { return &v }

func TestSuggestCodes_LettersInOrder(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "",
		[]model.DiagnosisCode{dx("J20.9", 0.9), dx("I10", 0.8)}, nil, nil)

	want := model.DiagnosisLetters{{Code: "J20.9", Letter: "A"}, {Code: "I10", Letter: "B"}}
	if !reflect.DeepEqual(r.DiagnosisLetters, want) {
		t.Errorf("letters = %+v, want %+v", r.DiagnosisLetters, want)
	}
	if r.Metadata.ModelStatus != model.ModelStatusDisabled {
		t.Errorf("model status = %q", r.Metadata.ModelStatus)
	}
}

func TestSuggestCodes_DefaultMapsToFirstDiagnosis(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "",
		[]model.DiagnosisCode{dx("J20.9", 0.9), dx("I10", 0.8)},
		[]model.ProcedureCode{proc("99213", 0.9)}, nil)

	want := map[string][]string{"J20.9": {"99213"}, "I10": {}}
	if !reflect.DeepEqual(r.DiagnosisProcedureMap, want) {
		t.Errorf("map = %v, want %v", r.DiagnosisProcedureMap, want)
	}
	if len(r.Mismatches) != 1 {
		t.Fatalf("mismatches = %+v", r.Mismatches)
	}
	m := r.Mismatches[0]
	if m.Severity != model.SeverityInfo || m.MismatchType != model.MismatchDiagnosisWithoutProcedure || m.AffectedCodes[0] != "I10" {
		t.Errorf("mismatch = %+v", m)
	}
	if got := r.Procedures[0].Metadata.DiagnosisPointers; !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("pointers = %v", got)
	}
}

func TestSuggestCodes_ExplicitPointers(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "",
		[]model.DiagnosisCode{dx("J20.9", 0.9), dx("I10", 0.8), dx("R05.9", 0.8)},
		[]model.ProcedureCode{proc("99213", 0.9, "C", "B"), proc("94010", 0.9)}, nil)

	if got := r.DiagnosisProcedureMap["I10"]; !reflect.DeepEqual(got, []string{"99213"}) {
		t.Errorf("I10 -> %v", got)
	}
	if got := r.DiagnosisProcedureMap["R05.9"]; !reflect.DeepEqual(got, []string{"99213"}) {
		t.Errorf("R05.9 -> %v", got)
	}
	if got := r.DiagnosisProcedureMap["J20.9"]; !reflect.DeepEqual(got, []string{"94010"}) {
		t.Errorf("J20.9 -> %v", got)
	}
	if got := r.Procedures[0].Metadata.DiagnosisPointers; !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("back-filled pointers = %v, want sorted [B C]", got)
	}
	if got := r.Procedures[0].Metadata.ExplicitPointers; !reflect.DeepEqual(got, []string{"C", "B"}) {
		t.Errorf("explicit pointers changed: %v", got)
	}
	if len(r.Mismatches) != 0 {
		t.Errorf("mismatches = %+v", r.Mismatches)
	}
}

func TestSuggestCodes_UnresolvedPointerLeavesProcedureUnlinked(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "",
		[]model.DiagnosisCode{dx("J20.9", 0.9)},
		[]model.ProcedureCode{proc("99213", 0.9, "D")}, nil)

	if r.Procedures[0].Metadata.DiagnosisPointers != nil {
		t.Errorf("pointers = %v, want nil", r.Procedures[0].Metadata.DiagnosisPointers)
	}
	var warn bool
	for _, m := range r.Mismatches {
		if m.MismatchType == model.MismatchMissingDiagnosis && m.Severity == model.SeverityWarning {
			warn = true
		}
	}
	if !warn {
		t.Errorf("expected missing_diagnosis warning, got %+v", r.Mismatches)
	}
}

func TestSuggestCodes_NoDiagnoses(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "", nil,
		[]model.ProcedureCode{proc("99213", 0.9)}, nil)

	if len(r.DiagnosisLetters) != 0 || len(r.DiagnosisProcedureMap) != 0 {
		t.Errorf("unexpected letters/map: %+v %+v", r.DiagnosisLetters, r.DiagnosisProcedureMap)
	}
	if len(r.Mismatches) != 1 || r.Mismatches[0].MismatchType != model.MismatchMissingDiagnosis {
		t.Errorf("mismatches = %+v", r.Mismatches)
	}
}

func TestSuggestCodes_AtMostTwelveLetters(t *testing.T) {
	var codes []model.DiagnosisCode
	for i := 0; i < 15; i++ {
		codes = append(codes, dx(fmt.Sprintf("R%02d.0", 10+i), 0.8))
	}
	r := New(nil).SuggestCodes(context.Background(), "", codes, nil, nil)

	if len(r.Diagnoses) != 15 {
		t.Errorf("diagnoses = %d, want 15", len(r.Diagnoses))
	}
	if len(r.DiagnosisLetters) != model.MaxDiagnosisLetters {
		t.Fatalf("letters = %d, want 12", len(r.DiagnosisLetters))
	}
	if last := r.DiagnosisLetters[11]; last.Code != "R21.0" || last.Letter != "L" {
		t.Errorf("last letter = %+v", last)
	}
	if _, ok := r.DiagnosisLetters.Letter("R22.0"); ok {
		t.Error("13th diagnosis must not get a letter")
	}
}

func TestSuggestCodes_DeduplicatesDiagnoses(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "", []model.DiagnosisCode{
		{Code: "J20.9", Confidence: 0.7},
		{Code: "I10", Confidence: 0.8},
		{Code: "j20.9", Confidence: 0.9, Description: "Acute bronchitis"},
		{Code: "I10", Confidence: 0.8, Description: "Hypertension"},
	}, nil, nil)

	if len(r.Diagnoses) != 2 {
		t.Fatalf("diagnoses = %+v", r.Diagnoses)
	}
	if r.Diagnoses[0].Code != "J20.9" || r.Diagnoses[0].Confidence != 0.9 {
		t.Errorf("higher confidence should win: %+v", r.Diagnoses[0])
	}
	if r.Diagnoses[1].Description != "Hypertension" {
		t.Errorf("tie should prefer description: %+v", r.Diagnoses[1])
	}
	for _, m := range r.Mismatches {
		if m.MismatchType == model.MismatchDuplicateCode {
			t.Errorf("unexpected duplicate mismatch: %+v", m)
		}
	}
}

func TestSuggestCodes_ModelSuggestions(t *testing.T) {
	client, calls := staticClient(map[string]any{
		"diagnoses": []any{
			map[string]any{"code": "J20.9", "description": "Acute bronchitis, unspecified", "rationale": "model", "confidence": 0.95},
			map[string]any{"code": "r05.9", "description": "Cough", "rationale": "cough noted", "confidence": 0.7},
			map[string]any{"code": "E11.9", "confidence": 0.4},
			map[string]any{"code": "nonsense"},
		},
		"procedures": []any{
			map[string]any{"code": "99214", "confidence": 0.9},
		},
	}, nil)
	a := New(client)
	r := a.SuggestCodes(context.Background(), "notes",
		[]model.DiagnosisCode{dx("J20.9", 0.9)},
		[]model.ProcedureCode{proc("99213", 0.9)}, nil)

	if *calls != 1 {
		t.Errorf("calls = %d", *calls)
	}
	if r.Metadata.ModelStatus != model.ModelStatusOK {
		t.Errorf("model status = %q", r.Metadata.ModelStatus)
	}
	if len(r.Diagnoses) != 2 || r.Diagnoses[1].Code != "R05.9" {
		t.Fatalf("diagnoses = %+v", r.Diagnoses)
	}
	first := r.Diagnoses[0]
	if first.Confidence != 0.95 || first.Description != "Acute bronchitis, unspecified" {
		t.Errorf("model should upgrade confidence and description: %+v", first)
	}
	if first.Rationale != rationaleDocument {
		t.Errorf("source-backed rationale replaced: %q", first.Rationale)
	}
	if len(r.Procedures) != 1 || r.Procedures[0].Code != "99213" {
		t.Errorf("model procedures must be suppressed when extracted ones exist: %+v", r.Procedures)
	}
}

func TestSuggestCodes_ModelRationaleFillsUnbackedEntry(t *testing.T) {
	client, _ := staticClient(map[string]any{
		"diagnoses": []any{
			map[string]any{"code": "I10", "rationale": "BP 160/100 documented", "confidence": 0.9},
		},
	}, nil)
	r := New(client).SuggestCodes(context.Background(), "notes",
		[]model.DiagnosisCode{{Code: "I10", Confidence: 0.8}}, nil, nil)

	if r.Diagnoses[0].Rationale != "BP 160/100 documented" {
		t.Errorf("rationale = %q", r.Diagnoses[0].Rationale)
	}
}

func TestSuggestCodes_ModelProceduresWithPointers(t *testing.T) {
	client, _ := staticClient(map[string]any{
		"diagnoses": []any{
			map[string]any{"code": "I10", "confidence": 0.9},
			map[string]any{"code": "R05.9", "confidence": 0.9},
		},
		"procedures": []any{
			map[string]any{"code": "94010", "diagnosis_pointers": []any{"B"}, "confidence": 0.85},
			map[string]any{"code": "99213-25", "confidence": 0.8},
			map[string]any{"code": "99215", "confidence": 0.3},
		},
	}, nil)
	r := New(client).SuggestCodes(context.Background(), "notes",
		[]model.DiagnosisCode{dx("J20.9", 0.9)}, nil, nil)

	if len(r.Procedures) != 2 {
		t.Fatalf("procedures = %+v", r.Procedures)
	}
	if r.Procedures[1].Code != "99213" || r.Procedures[1].Metadata.Modifier != "25" {
		t.Errorf("second procedure = %+v", r.Procedures[1])
	}
	// model letter B is R05.9, which is C after the extracted J20.9
	if got := r.Procedures[0].Metadata.DiagnosisPointers; !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("pointers = %v, want [C]", got)
	}
	if got := r.Procedures[1].Metadata.DiagnosisPointers; !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("pointers = %v, want [A]", got)
	}
}

func TestSuggestCodes_ModelFailureIsSoft(t *testing.T) {
	client, _ := staticClient(nil, errors.New("connection refused"))
	r := New(client).SuggestCodes(context.Background(), "notes",
		[]model.DiagnosisCode{dx("J20.9", 0.9)}, nil, nil)

	if r.Metadata.ModelStatus != model.ModelStatusFailed {
		t.Errorf("model status = %q", r.Metadata.ModelStatus)
	}
	if len(r.Diagnoses) != 1 {
		t.Errorf("diagnoses = %+v", r.Diagnoses)
	}
}

func TestSuggestCodes_MinModelConfidence(t *testing.T) {
	client, _ := staticClient(map[string]any{
		"diagnoses": []any{map[string]any{"code": "R05.9", "confidence": 0.5}},
	}, nil)
	r := New(client, WithMinModelConfidence(0.4)).SuggestCodes(context.Background(), "notes", nil, nil, nil)
	if len(r.Diagnoses) != 1 {
		t.Errorf("diagnoses = %+v", r.Diagnoses)
	}

	r = New(client).SuggestCodes(context.Background(), "notes", nil, nil, nil)
	if len(r.Diagnoses) != 0 {
		t.Errorf("default threshold should reject 0.5: %+v", r.Diagnoses)
	}
}

func TestMergeProcedures_DedupByBaseCode(t *testing.T) {
	got := MergeProcedures(FromProcedures([]model.ProcedureCode{
		{Code: "99214", Modifier: "25", Confidence: 0.9},
		{Code: "99214", Confidence: 0.9, Description: "later"},
		{Code: "94010", Confidence: 0.9},
	}), nil, DefaultMinModelConfidence)

	if len(got) != 2 || got[0].Code != "99214" || got[0].Metadata.Modifier != "25" || got[1].Code != "94010" {
		t.Errorf("procedures = %+v", got)
	}
}

func TestBackfillPointers_Idempotent(t *testing.T) {
	r := New(nil).SuggestCodes(context.Background(), "",
		[]model.DiagnosisCode{dx("J20.9", 0.9), dx("I10", 0.8)},
		[]model.ProcedureCode{proc("99213", 0.9, "B", "A")}, nil)

	before := append([]string(nil), r.Procedures[0].Metadata.DiagnosisPointers...)
	BackfillPointers(r)
	BackfillPointers(r)
	if !reflect.DeepEqual(r.Procedures[0].Metadata.DiagnosisPointers, before) {
		t.Errorf("pointers changed: %v -> %v", before, r.Procedures[0].Metadata.DiagnosisPointers)
	}
	if !reflect.DeepEqual(before, []string{"A", "B"}) {
		t.Errorf("pointers = %v", before)
	}
}

func TestDetectMismatches_Duplicate(t *testing.T) {
	r := &model.CodingResult{
		Diagnoses: []model.CodeSuggestion{{Code: "I10"}, {Code: "I10"}},
		DiagnosisProcedureMap: map[string][]string{
			"I10": {"99213"},
		},
		Procedures: []model.CodeSuggestion{{Code: "99213"}},
	}
	got := DetectMismatches(r)
	if len(got) != 1 || got[0].Severity != model.SeverityError || got[0].MismatchType != model.MismatchDuplicateCode {
		t.Errorf("mismatches = %+v", got)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		r    *model.CodingResult
		ext  *float64
		want float64
	}{
		{"empty", &model.CodingResult{}, nil, 0},
		{
			"no penalty",
			&model.CodingResult{
				Diagnoses:  []model.CodeSuggestion{{Confidence: 0.9}, {Confidence: 0.7}},
				Procedures: []model.CodeSuggestion{{Confidence: 0.9}},
			},
			floatPtr(1.0),
			0.6*0.8 + 0.3*0.9 + 0.1,
		},
		{
			"extraction omitted",
			&model.CodingResult{Diagnoses: []model.CodeSuggestion{{Confidence: 1}}},
			nil,
			0.6,
		},
		{
			"warning penalty",
			&model.CodingResult{
				Diagnoses:  []model.CodeSuggestion{{Confidence: 1}},
				Procedures: []model.CodeSuggestion{{Confidence: 1}},
				Mismatches: []model.CodeMismatch{{Severity: model.SeverityWarning}, {Severity: model.SeverityInfo}},
			},
			nil,
			0.85,
		},
		{
			"penalty capped",
			&model.CodingResult{
				Diagnoses:  []model.CodeSuggestion{{Confidence: 1}},
				Procedures: []model.CodeSuggestion{{Confidence: 1}},
				Mismatches: []model.CodeMismatch{
					{Severity: model.SeverityError}, {Severity: model.SeverityError},
					{Severity: model.SeverityError}, {Severity: model.SeverityError},
				},
			},
			floatPtr(1),
			0.6,
		},
		{
			"floored at zero",
			&model.CodingResult{
				Diagnoses:  []model.CodeSuggestion{{Confidence: 0.1}},
				Mismatches: []model.CodeMismatch{{Severity: model.SeverityError}},
			},
			nil,
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.r, tt.ext)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Confidence %v out of range", got)
			}
		})
	}
}
