package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimforge/internal/document"
	"github.com/gyeh/claimforge/internal/exitcode"
	"github.com/gyeh/claimforge/internal/logging"
	"github.com/gyeh/claimforge/internal/pipeline"
	"github.com/gyeh/claimforge/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process every document in a directory and write a Parquet report",
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&cfg.Dir, "dir", "", "Directory of .txt/.md documents (required)")
	f.StringVar(&cfg.OutPath, "out", "claims-report.parquet", "Report output path")
	f.IntVar(&cfg.Batch.Workers, "workers", cfg.Batch.Workers, "Documents processed concurrently")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.ValidateDir(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	paths, err := document.Discover(cfg.Dir)
	if err != nil {
		log.Error().Err(err).Msg("list documents")
		os.Exit(exitcode.DocumentError)
	}
	if len(paths) == 0 {
		log.Error().Str("dir", cfg.Dir).Msg("no supported documents found")
		os.Exit(exitcode.DocumentError)
	}

	client := pipeline.CheckModel(ctx, pipeline.NewModelClient(&cfg, log), cfg.Model.Timeout, log)
	p := pipeline.New(&cfg, client, log)
	items, summary, err := p.RunBatch(ctx, paths, cfg.Batch.Workers)
	if err != nil {
		log.Error().Err(err).Msg("batch aborted")
		os.Exit(exitcode.PipelineError)
	}

	rows := pipeline.ReportRows(summary.BatchID.String(), items)
	if err := report.Write(cfg.OutPath, rows); err != nil {
		log.Error().Err(err).Msg("write report")
		os.Exit(exitcode.ReportError)
	}

	fmt.Printf("Batch complete: %d documents, %d valid, %d invalid, %d failed (%.1fs) → %s\n",
		summary.Documents, summary.Valid, summary.Invalid, summary.Failed,
		summary.Duration.Seconds(), cfg.OutPath)

	if summary.Failed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
