// Package metrics records the progress of a scrape run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RecordOK              = "ok"
	RecordNavigationError = "navigation_error"

	FieldOK      = "ok"
	FieldEmpty   = "empty"
	FieldError   = "error"
	FieldSkipped = "skipped"
)

// Recorder owns a private registry so that several runs in one process do
// not collide.
type Recorder struct {
	Registry           *prometheus.Registry
	RecordsTotal       *prometheus.CounterVec
	FieldsTotal        *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	LastRunRows        prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sirescrape_records_total",
				Help: "Input records processed.",
			},
			[]string{"result"},
		),
		FieldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sirescrape_fields_total",
				Help: "Field extractions by outcome.",
			},
			[]string{"field", "result"},
		),
		NavigationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sirescrape_navigation_duration_seconds",
				Help:    "Time until a record page settled.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
		),
		LastRunRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sirescrape_last_run_rows",
				Help: "Rows written by the last run.",
			},
		),
	}
	r.Registry.MustRegister(r.RecordsTotal, r.FieldsTotal, r.NavigationDuration, r.LastRunRows)
	return r
}

func (r *Recorder) Record(result string) {
	if r == nil {
		return
	}
	r.RecordsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) Field(field, result string) {
	if r == nil {
		return
	}
	r.FieldsTotal.WithLabelValues(field, result).Inc()
}

func (r *Recorder) Navigation(d time.Duration) {
	if r == nil {
		return
	}
	r.NavigationDuration.Observe(d.Seconds())
}

func (r *Recorder) Rows(n int) {
	if r == nil {
		return
	}
	r.LastRunRows.Set(float64(n))
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector.
func (r *Recorder) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, r.Registry)
}
