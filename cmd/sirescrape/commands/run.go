package commands

import (
	"fmt"
	"log/slog"

	scraper "github.com/koizuka/keiba-scraper"
	"github.com/koizuka/keiba-scraper/job"
	"github.com/koizuka/keiba-scraper/metrics"
	"github.com/spf13/cobra"
)

var runFlags struct {
	outputDir   string
	format      string
	baseURL     string
	encoding    string
	showBrowser bool
	metricsFile string
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.outputDir, "out", "", "Output directory (overrides output_dir).")
	f.StringVar(&runFlags.format, "format", "", "Export format: csv or xlsx (overrides format).")
	f.StringVar(&runFlags.baseURL, "base-url", "", "Prefix of every record path (overrides base_url).")
	f.StringVar(&runFlags.encoding, "encoding", "", "Input file encoding, e.g. shift_jis or utf-8 (overrides input_encoding).")
	f.BoolVar(&runFlags.showBrowser, "show-browser", false, "Run the browser with a window.")
	f.StringVar(&runFlags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile at the end.")
	rootCmd.AddCommand(runCmd)
}

func applyRunFlags(cfg *job.Config) error {
	return cfg.Override(job.Config{
		OutputDir:     runFlags.outputDir,
		Format:        runFlags.format,
		BaseURL:       runFlags.baseURL,
		InputEncoding: runFlags.encoding,
		MetricsFile:   runFlags.metricsFile,
		Browser:       job.BrowserConfig{ShowWindow: runFlags.showBrowser},
	})
}

var runCmd = &cobra.Command{
	Use:   "run <input.csv>",
	Short: "Scrapes every record of the input list and writes a timestamped export.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyRunFlags(&cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		session := cfg.NewSession("sirescrape", scraper.SlogLogger{Logger: slog.Default(), Level: slog.LevelDebug})
		j := job.New(session, cfg, slog.Default())
		j.Metrics = metrics.New()

		filename, err := j.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filename)
		return nil
	},
}
