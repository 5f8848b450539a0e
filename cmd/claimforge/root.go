package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimforge/internal/config"
)

var cfg = config.Default()

// flagsOverridingFile are re-applied after --config is loaded so that an
// explicit flag beats the file.
var flagsOverridingFile = []string{"log-format", "log-level", "model", "model-url", "model-name", "model-timeout"}

var rootCmd = &cobra.Command{
	Use:   "claimforge",
	Short: "Clinical documentation → CMS-1500 claim builder",
	Long: "Extracts patient, insurance, provider and code data from clinical notes, " +
		"assembles ICD-10/CPT coding, builds a CMS-1500 claim and validates it against NUCC/CMS rules.",
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.ConfigPath, "config", os.Getenv("CLAIMFORGE_CONFIG"), "YAML config file (or set CLAIMFORGE_CONFIG)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.BoolVar(&cfg.Model.Enabled, "model", cfg.Model.Enabled, "Enhance extraction and coding with the generative model")
	pf.StringVar(&cfg.Model.BaseURL, "model-url", envOr("CLAIMFORGE_MODEL_URL", cfg.Model.BaseURL), "Ollama base URL (or set CLAIMFORGE_MODEL_URL)")
	pf.StringVar(&cfg.Model.Name, "model-name", cfg.Model.Name, "Model name")
	pf.DurationVar(&cfg.Model.Timeout, "model-timeout", cfg.Model.Timeout, "Timeout for each model call")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfg.ConfigPath == "" {
		return cfg.Validate()
	}
	explicit := make(map[string]string)
	for _, name := range flagsOverridingFile {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			explicit[name] = f.Value.String()
		}
	}
	if err := cfg.LoadFromFile(cfg.ConfigPath); err != nil {
		return err
	}
	for name, v := range explicit {
		if err := cmd.Flags().Set(name, v); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
