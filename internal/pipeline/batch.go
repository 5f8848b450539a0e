package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome for one file of a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Path   string
	Result *Result
	Err    error
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	BatchID   uuid.UUID
	Documents int
	Valid     int
	Invalid   int
	Failed    int
	Duration  time.Duration
}

// RunBatch processes paths with at most workers documents in flight. A
// failing document is recorded in its item and does not stop the batch.
// Items come back in input order. The returned error is non-nil only when
// ctx is canceled.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, workers int) ([]BatchItem, BatchSummary, error) {
	start := time.Now()
	summary := BatchSummary{BatchID: uuid.New(), Documents: len(paths)}
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(paths))
	var valid, invalid, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		items[i].Path = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.RunFile(gctx, path)
			if err != nil {
				p.log.Warn().Err(err).Str("file", path).Msg("document failed")
				items[i].Err = err
				failed.Add(1)
				return nil
			}
			items[i].Result = res
			if res.Validation.Valid {
				valid.Add(1)
			} else {
				invalid.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	summary.Valid = int(valid.Load())
	summary.Invalid = int(invalid.Load())
	summary.Failed = int(failed.Load())
	summary.Duration = time.Since(start)

	p.log.Info().
		Str("batch_id", summary.BatchID.String()).
		Int("documents", summary.Documents).
		Int("valid", summary.Valid).
		Int("invalid", summary.Invalid).
		Int("failed", summary.Failed).
		Str("total_duration", summary.Duration.String()).
		Msg("batch complete")

	return items, summary, err
}
