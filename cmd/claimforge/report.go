package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimforge/internal/exitcode"
	"github.com/gyeh/claimforge/internal/logging"
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
	"github.com/gyeh/claimforge/internal/report"
)

var reportTop int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a batch Parquet report",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to a batch report (required)")
	f.IntVar(&reportTop, "top", 5, "Number of primary diagnoses to list")
	_ = reportCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.ValidateFile(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	sha, err := normalize.FileHash(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		os.Exit(exitcode.ReportError)
	}

	reader, err := report.Open(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open report")
		os.Exit(exitcode.ReportError)
	}
	defer reader.Close()

	rows, err := reader.ReadAll()
	if err != nil {
		log.Error().Err(err).Msg("failed to read report rows")
		os.Exit(exitcode.ReportError)
	}
	s := report.Summarize(rows, reportTop)

	batch := ""
	if len(rows) > 0 {
		batch = rows[0].BatchID
	}

	fmt.Println("=== claimforge report ===")
	fmt.Printf("File:       %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:    %s\n", sha)
	fmt.Printf("Batch:      %s\n", batch)
	fmt.Printf("Documents:  %d (%d valid, %d invalid, %d failed)\n", s.Documents, s.Valid, s.Invalid, s.Failed)
	fmt.Printf("Findings:   %d errors, %d warnings\n", s.Errors, s.Warnings)
	fmt.Printf("Charges:    $%.2f\n", normalize.CentsToDollars(s.TotalChargeCents))
	fmt.Printf("Confidence: extraction %.2f, coding %.2f (mean)\n", s.AvgExtraction, s.AvgCoding)
	fmt.Println()
	fmt.Println("Code distribution:")
	for _, ct := range model.AllCodeTypes {
		fmt.Printf("  %-10s %d\n", ct.Name, s.CodesByType[ct.Name])
	}
	fmt.Println()
	fmt.Println("Model status:")
	for _, st := range []string{model.ModelStatusOK, model.ModelStatusFailed, model.ModelStatusDisabled} {
		if n := s.ModelStatus[st]; n > 0 {
			fmt.Printf("  %-10s %d\n", st, n)
		}
	}
	if len(s.TopDiagnoses) > 0 {
		fmt.Println()
		fmt.Println("Top primary diagnoses:")
		for _, c := range s.TopDiagnoses {
			fmt.Printf("  %-10s %d\n", c.Value, c.N)
		}
	}
	return nil
}
