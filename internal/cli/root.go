// Package cli implements the command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var (
	// Global flags
	configPath   string
	logLevelFlag string
	noColor      bool

	// Resolved values
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "erdep",
	Short: "erdep - entity reference dependency index",
	Long: `erdep keeps an index of which entities reference which, answers
"what depends on this entity?" and optionally cascades deletes to
dependents through a deferred work queue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
			ui.DisableColor()
		}

		switch cmd.Name() {
		case "init", "completion", "help", "version":
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Fix the config file or run 'erdep init'")
		}
		if logLevelFlag != "" {
			cfg.Log.Level = logLevelFlag
		}
		logger, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: os.Stderr})
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: erdep.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override [log] level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	return cfg
}

// openApp opens the database named by the config and wires every component.
// Callers must Close the returned App.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DatabaseDSN(), err)
	}
	return a, nil
}
