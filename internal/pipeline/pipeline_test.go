package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimforge/internal/claim"
	"github.com/gyeh/claimforge/internal/config"
	"github.com/gyeh/claimforge/internal/document"
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
)

const samplePath = "../../testdata/sample_record.txt"

func newPipeline(t *testing.T, client modelclient.Client) *Pipeline {
	t.Helper()
	cfg := config.Default()
	cfg.Model.Enabled = client != nil
	return New(&cfg, client, zerolog.Nop())
}

func TestRun_SampleRecord(t *testing.T) {
	res, err := newPipeline(t, nil).RunFile(context.Background(), samplePath)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}

	c := res.Claim
	if c.PatientLastName != "Doe" || c.PatientDOB != "01 15 1980" {
		t.Errorf("patient = %q %q", c.PatientLastName, c.PatientDOB)
	}
	if len(c.ServiceLines) != 2 || c.TotalCharge != 235 {
		t.Errorf("lines = %d total = %v", len(c.ServiceLines), c.TotalCharge)
	}
	if c.DiagnosisA == "" {
		t.Error("primary diagnosis missing")
	}

	s := res.Summary
	if s.RunID != res.RunID.String() || s.DocumentSHA256 != res.Document.SHA256 {
		t.Errorf("summary ids = %+v", s)
	}
	if s.TotalChargeCents != 23500 || s.ServiceLines != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.CodesByType[model.CodeTypeCPT] != 2 {
		t.Errorf("cpt count = %d", s.CodesByType[model.CodeTypeCPT])
	}
	if s.ModelStatus != model.ModelStatusDisabled {
		t.Errorf("model status = %q", s.ModelStatus)
	}
	if s.Valid != res.Validation.Valid || s.Errors != res.Validation.ErrorsCount {
		t.Errorf("summary validity disagrees with validation")
	}
}

func TestRun_EmptyDocumentStillProducesRecords(t *testing.T) {
	res, err := newPipeline(t, nil).Run(context.Background(), document.FromText("empty.txt", ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Extracted == nil || res.Coding == nil || res.Claim == nil || res.Validation == nil {
		t.Fatalf("missing records: %+v", res)
	}
	if res.Validation.Valid {
		t.Error("empty document must not validate")
	}
	for _, id := range []string{"NUCC-2-REQ", "NUCC-21-REQ", "NUCC-24-REQ", "NUCC-33a-REQ"} {
		if !res.Validation.HasRule(id) {
			t.Errorf("missing %s", id)
		}
	}
}

func TestRun_OverrideErrorIsStageError(t *testing.T) {
	_, err := newPipeline(t, nil).Run(context.Background(), document.FromText("note.txt", ""),
		claim.WithTotalCharge(-1))
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageClaim {
		t.Errorf("err = %v, want claim StageError", err)
	}
}

func TestRun_OverrideWins(t *testing.T) {
	res, err := newPipeline(t, nil).RunFile(context.Background(), samplePath,
		claim.WithBillingProviderNPI("123"))
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if !res.Validation.HasRule("NUCC-33a-FMT") {
		t.Errorf("expected NUCC-33a-FMT, got %+v", res.Validation.Messages)
	}
}

func TestRunFile_DocumentError(t *testing.T) {
	_, err := newPipeline(t, nil).RunFile(context.Background(), "scan.pdf")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageDocument {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, document.ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestRun_ModelFailureIsSoft(t *testing.T) {
	var calls atomic.Int32
	client := modelclient.ClientFunc(func(ctx context.Context, prompt string, schema modelclient.Schema) (map[string]any, error) {
		calls.Add(1)
		return nil, errors.New("model down")
	})
	res, err := newPipeline(t, client).RunFile(context.Background(), samplePath)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("model calls = %d, want one per stage", calls.Load())
	}
	if res.Summary.ModelStatus != model.ModelStatusFailed {
		t.Errorf("model status = %q", res.Summary.ModelStatus)
	}
	if len(res.Claim.ServiceLines) != 2 {
		t.Errorf("pattern results lost: %d lines", len(res.Claim.ServiceLines))
	}
}

func TestRunBatch(t *testing.T) {
	sample, err := os.ReadFile(samplePath)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.md"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, sample, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	items, summary, err := newPipeline(t, nil).RunBatch(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(items) != len(paths) {
		t.Fatalf("items = %d", len(items))
	}
	for i, it := range items {
		if it.Path != paths[i] {
			t.Errorf("item %d path = %s, want input order", i, it.Path)
		}
	}
	if items[4].Err == nil || items[4].Result != nil {
		t.Errorf("missing file should fail: %+v", items[4])
	}
	if summary.Documents != 5 || summary.Failed != 1 || summary.Valid+summary.Invalid != 4 {
		t.Errorf("summary = %+v", summary)
	}

	seen := make(map[string]bool)
	for _, it := range items[:4] {
		if seen[it.Result.RunID.String()] {
			t.Error("run ids must be unique")
		}
		seen[it.Result.RunID.String()] = true
	}

	rows := ReportRows(summary.BatchID.String(), items)
	if rows[0].PatientName == nil || *rows[0].PatientName != "Doe, John" {
		t.Errorf("patient name = %v", rows[0].PatientName)
	}
	if rows[0].TotalChargeCents != 23500 || rows[0].CPTCodes != 2 || rows[0].Failure != nil {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[4].Failure == nil || rows[4].RunID != "" {
		t.Errorf("failed row = %+v", rows[4])
	}
}

func TestRunBatch_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := modelclient.ClientFunc(func(ctx context.Context, prompt string, schema modelclient.Schema) (map[string]any, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return map[string]any{}, nil
	})
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, samplePath)
	}
	_, summary, err := newPipeline(t, client).RunBatch(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
	if summary.Failed != 0 {
		t.Errorf("failed = %d", summary.Failed)
	}
}

func TestRunBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newPipeline(t, nil).RunBatch(ctx, []string{samplePath, samplePath}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckModel(t *testing.T) {
	var status atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Model.Enabled = true
	cfg.Model.BaseURL = server.URL
	client := NewModelClient(&cfg, zerolog.Nop())

	status.Store(http.StatusOK)
	if got := CheckModel(context.Background(), client, time.Second, zerolog.Nop()); got != client {
		t.Errorf("reachable server: got %v, want the client back", got)
	}

	status.Store(http.StatusServiceUnavailable)
	if got := CheckModel(context.Background(), client, time.Second, zerolog.Nop()); got != nil {
		t.Errorf("unreachable server: got %v, want nil", got)
	}

	fake := modelclient.ClientFunc(func(ctx context.Context, prompt string, schema modelclient.Schema) (map[string]any, error) {
		return nil, nil
	})
	if got := CheckModel(context.Background(), fake, time.Second, zerolog.Nop()); got == nil {
		t.Error("client without ping should pass through")
	}
	if got := CheckModel(context.Background(), nil, time.Second, zerolog.Nop()); got != nil {
		t.Errorf("nil client: got %v", got)
	}
}
