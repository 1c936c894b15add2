package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/koizuka/keiba-scraper/job"
	"github.com/koizuka/keiba-scraper/logging"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "sirescrape",
	Short:         "sirescrape collects sire statistics from netkeiba into a CSV or XLSX file.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.Init(os.Stderr, level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "sirescrape.json5", "Job configuration file (JSON5). Built-in defaults are used when it is missing.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error.")
}

func loadConfig() (job.Config, error) {
	cfg, err := job.LoadConfig(configFile)
	if err != nil {
		return cfg, fmt.Errorf("couldn't load %v: %w", configFile, err)
	}
	return cfg, nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("sirescrape failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
