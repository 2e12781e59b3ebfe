package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/medigen/catalyst/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose    bool
	configPath string
	overrides  config.Overrides
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "medigen",
		Short: "AI-assisted medical image analysis",
		Long: `MediGen Catalyst analyzes medical images with a vision-capable LLM.

Upload images, get a structured diagnostic report for each one, export it as
PDF and ask follow-up questions grounded in the analysis.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if opts.verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.overrides.Provider, "provider", "", "LLM provider (gemini, genai, openai, ollama)")
	flags.StringVar(&opts.overrides.Model, "model", "", "Model name")
	flags.StringVar(&opts.overrides.PromptVariant, "prompt-variant", "", "Analysis prompt (standard, enhanced)")
	flags.StringVar(&opts.overrides.ExportDir, "export-dir", "", "Directory for exported PDF reports")
	flags.StringVar(&opts.overrides.AssetsDir, "assets-dir", "", "Directory holding the logo and workflow diagram")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))

	return cmd
}

// loadConfig resolves the configuration and the credential. A missing
// credential is fatal so no model call can ever run without one.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ResolveCredential(config.TerminalPrompter(os.Stderr)); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded", "provider", cfg.Provider, "model", cfg.Model, "prompt_variant", cfg.PromptVariant, "export_dir", cfg.ExportDir)
	return cfg, nil
}
