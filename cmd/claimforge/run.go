package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gyeh/claimforge/internal/claim"
	"github.com/gyeh/claimforge/internal/exitcode"
	"github.com/gyeh/claimforge/internal/logging"
	"github.com/gyeh/claimforge/internal/pipeline"
)

var (
	runBillingNPI string
	runAccount    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one clinical document into a validated claim",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to a .txt or .md clinical document (required)")
	f.StringVar(&cfg.OutPath, "out", "", "Write the JSON result here instead of stdout")
	f.StringVar(&runBillingNPI, "billing-npi", "", "Override billing provider NPI (item 33a)")
	f.StringVar(&runAccount, "account", "", "Patient account number (item 26)")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.ValidateFile(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var overrides []claim.Override
	if runBillingNPI != "" {
		overrides = append(overrides, claim.WithBillingProviderNPI(runBillingNPI))
	}
	if runAccount != "" {
		overrides = append(overrides, claim.WithPatientAccountNumber(runAccount))
	}

	client := pipeline.CheckModel(ctx, pipeline.NewModelClient(&cfg, log), cfg.Model.Timeout, log)
	p := pipeline.New(&cfg, client, log)
	res, err := p.RunFile(ctx, cfg.FilePath, overrides...)
	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			log.Error().Err(se.Err).Str("stage", se.Stage).Msg("run failed")
			if se.Stage == pipeline.StageDocument {
				os.Exit(exitcode.DocumentError)
			}
		} else {
			log.Error().Err(err).Msg("run failed")
		}
		os.Exit(exitcode.PipelineError)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("encode result")
		os.Exit(exitcode.PipelineError)
	}
	if cfg.OutPath != "" {
		if err := os.WriteFile(cfg.OutPath, append(out, '\n'), 0o644); err != nil {
			log.Error().Err(err).Msg("write result")
			os.Exit(exitcode.ReportError)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (valid=%t, %d errors, %d warnings)\n",
			cfg.OutPath, res.Validation.Valid, res.Validation.ErrorsCount, res.Validation.WarningsCount)
	} else {
		fmt.Println(string(out))
	}

	if !res.Validation.Valid {
		os.Exit(exitcode.ValidationError)
	}
	return nil
}
