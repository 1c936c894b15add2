// Package job runs a scrape over an input list: one page per record, a fixed
// list of fields per page, one export row per record.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	scraper "github.com/koizuka/keiba-scraper"
	"github.com/koizuka/keiba-scraper/metrics"
)

// Browser is the part of scraper.Session a job drives.
type Browser interface {
	Init(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	ElementExists(ctx context.Context, selector string) (bool, error)
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	ExtractOne(ctx context.Context, selector string, property string) (string, error)
	WaitFixed(ctx context.Context, d time.Duration) error
	Close() error
}

var _ Browser = (*scraper.Session)(nil)

type Job struct {
	Browser Browser
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Recorder // optional
	Now     func() time.Time
	RunID   string
}

func New(browser Browser, cfg Config, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		Browser: browser,
		Config:  cfg,
		Logger:  logger,
		Now:     time.Now,
		RunID:   uuid.NewString(),
	}
}

func (job *Job) log() *slog.Logger {
	return job.Logger.With("run_id", job.RunID)
}

// Run reads inputFile, scrapes every record and writes the export into the
// configured output directory. It returns the export file path.
func (job *Job) Run(ctx context.Context, inputFile string) (string, error) {
	log := job.log()
	start := job.Now()

	format, err := ParseFormat(job.Config.Format)
	if err != nil {
		return "", err
	}

	records, err := ReadInputFile(inputFile, job.Config.InputOptions())
	if err != nil {
		return "", err
	}
	log.Info("scraping", "input", inputFile, "records", len(records))

	if err := job.Browser.Init(ctx); err != nil {
		return "", err
	}
	defer func() {
		if err := job.Browser.Close(); err != nil {
			log.Warn("couldn't close browser", "error", err)
		}
	}()

	export, err := job.Scrape(ctx, records)
	if err != nil {
		return "", err
	}

	filename, err := WriteFile(job.Config.OutputDir, start, format, export)
	if err != nil {
		return "", err
	}
	log.Info("export written", "file", filename, "rows", len(export.Rows), "elapsed", job.Now().Sub(start).String())

	if job.Metrics != nil && job.Config.MetricsFile != "" {
		if err := job.Metrics.WriteTextfile(job.Config.MetricsFile); err != nil {
			log.Warn("couldn't write metrics", "file", job.Config.MetricsFile, "error", err)
		}
	}
	return filename, nil
}

// Scrape processes records in order on an initialized browser. Per-record and
// per-field failures are logged and skipped; only session-level failures and
// cancellation abort.
func (job *Job) Scrape(ctx context.Context, records []InputRecord) (Export, error) {
	rows := make([]ResultRow, 0, len(records))
	for i, record := range records {
		row, err := job.scrapeRecord(ctx, record)
		if err != nil {
			return Export{}, fmt.Errorf("record #%d %q: %w", i+1, record.Name, err)
		}
		rows = append(rows, row)
	}
	job.Metrics.Rows(len(rows))
	return Export{Header: job.Config.Header(), Rows: rows}, nil
}

func (job *Job) scrapeRecord(ctx context.Context, record InputRecord) (ResultRow, error) {
	log := job.log().With("record", record.Name)
	row := ResultRow{record.Name}

	url := job.Config.BaseURL + record.Path
	log.Info("goto", "url", url)

	started := job.Now()
	if err := job.Browser.Navigate(ctx, url); err != nil {
		if abort(ctx, err) {
			return nil, err
		}
		log.Error("navigation failed, skipping fields", "url", url, "error", err)
		job.Metrics.Record(metrics.RecordNavigationError)
		return row, nil
	}
	job.Metrics.Navigation(job.Now().Sub(started))

	for _, field := range job.Config.Fields {
		value, ok, err := job.extractField(ctx, field)
		if err != nil {
			if abort(ctx, err) {
				return nil, err
			}
			log.Warn("field skipped", "field", field.Header, "error", err)
			job.Metrics.Field(field.Header, metrics.FieldError)
			continue
		}
		if !ok {
			job.Metrics.Field(field.Header, metrics.FieldSkipped)
			continue
		}
		if value == "" {
			job.Metrics.Field(field.Header, metrics.FieldEmpty)
		} else {
			row = append(row, value)
			job.Metrics.Field(field.Header, metrics.FieldOK)
		}

		if err := job.Browser.WaitFixed(ctx, job.Config.pause()); err != nil {
			return nil, err
		}
	}

	job.Metrics.Record(metrics.RecordOK)
	log.Debug("row collected", "values", len(row)-1)
	return row, nil
}

// extractField reads one field. ok is false when the page lacks the marker.
func (job *Job) extractField(ctx context.Context, field ExtractionTarget) (string, bool, error) {
	marker := job.Config.Marker
	present, err := job.Browser.ElementExists(ctx, marker)
	if err != nil {
		return "", false, err
	}
	if !present {
		return "", false, nil
	}
	if err := job.Browser.WaitForElement(ctx, marker, job.Config.markerTimeout()); err != nil {
		return "", false, err
	}
	value, err := job.Browser.ExtractOne(ctx, field.Selector, field.Property)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(value), true, nil
}

// abort reports whether err ends the whole run.
func abort(ctx context.Context, err error) bool {
	return ctx.Err() != nil || scraper.IsFatal(err)
}
