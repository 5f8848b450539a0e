package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gyeh/claimforge/internal/exitcode"
	"github.com/gyeh/claimforge/internal/logging"
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/validate"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a CMS-1500 claim JSON file",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to claim JSON (a claim object or a run result) (required)")
	f.BoolVar(&validateJSON, "json", false, "Print the validation result as JSON")
	_ = validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}

// claimFile accepts either a bare claim or the output of the run command.
type claimFile struct {
	Claim *model.Claim `json:"claim"`
}

func readClaim(path string) (*model.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claim: %w", err)
	}
	var wrapped claimFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Claim != nil {
		return wrapped.Claim, nil
	}
	var c model.Claim
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	return &c, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.ValidateFile(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	c, err := readClaim(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("load claim")
		os.Exit(exitcode.DocumentError)
	}

	res := validate.New().Validate(c)
	if validateJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("encode result")
			os.Exit(exitcode.PipelineError)
		}
		fmt.Println(string(out))
	} else {
		for _, m := range res.Messages {
			fmt.Printf("%-7s %-6s %-18s %s\n", m.Severity, m.Field, m.RuleID, m.Message)
			if m.Suggestion != "" {
				fmt.Printf("%34s→ %s\n", "", m.Suggestion)
			}
		}
		fmt.Printf("\nvalid=%t errors=%d warnings=%d info=%d\n",
			res.Valid, res.ErrorsCount, res.WarningsCount, res.InfoCount)
	}

	if !res.Valid {
		os.Exit(exitcode.ValidationError)
	}
	return nil
}
