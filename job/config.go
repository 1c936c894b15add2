package job

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	scraper "github.com/koizuka/keiba-scraper"
	"github.com/titanous/json5"
)

// Config describes one scrape job. The zero values of the duration fields
// mean the defaults of DefaultConfig.
type Config struct {
	BaseURL         string             `json:"base_url"`
	Marker          string             `json:"marker"` // element that signals the data table has rendered
	MarkerTimeoutMs int                `json:"marker_timeout_ms"`
	PauseMs         int                `json:"pause_ms"` // pause after each extracted field
	NameHeader      string             `json:"name_header"`
	Fields          []ExtractionTarget `json:"fields"`
	InputEncoding   string             `json:"input_encoding"`
	SkipLines       int                `json:"skip_lines"`
	OutputDir       string             `json:"output_dir"`
	Format          string             `json:"format"`
	MetricsFile     string             `json:"metrics_file"` // Prometheus textfile written at the end, optional
	Browser         BrowserConfig      `json:"browser"`
}

type BrowserConfig struct {
	ShowWindow          bool     `json:"show_window"`
	ExecPath            string   `json:"exec_path"`
	Candidates          []string `json:"candidates"`
	UserAgent           string   `json:"user_agent"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	WaitTimeoutMs       int      `json:"wait_timeout_ms"`
	CookieFile          string   `json:"cookie_file"`
	SaveToFile          bool     `json:"save_to_file"`
	SessionDir          string   `json:"session_dir"`
}

// DefaultConfig is the netkeiba sire statistics job.
func DefaultConfig() Config {
	return Config{
		BaseURL:         SireBaseURL,
		Marker:          SireMarker,
		MarkerTimeoutMs: 1000,
		PauseMs:         100,
		NameHeader:      NameHeader,
		Fields:          SireFields(),
		InputEncoding:   "shift_jis",
		SkipLines:       1,
		OutputDir:       "output",
		Format:          string(FormatCSV),
		Browser: BrowserConfig{
			NavigationTimeoutMs: int(scraper.DefaultNavigationTimeout / time.Millisecond),
			WaitTimeoutMs:       int(scraper.DefaultWaitTimeout / time.Millisecond),
			SessionDir:          "session",
		},
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// decodeOver decodes a JSON5 document over cfg. Keys present in data
// replace the current values, including explicit false and 0; absent keys
// keep them. A fields list replaces the current list as a whole.
func decodeOver(cfg *Config, data []byte) error {
	fields := cfg.Fields
	cfg.Fields = nil
	if err := json5.Unmarshal(data, cfg); err != nil {
		cfg.Fields = fields
		return err
	}
	if cfg.Fields == nil {
		cfg.Fields = fields
	}
	return nil
}

// LoadConfig reads a JSON5 job file over the defaults, then
// <name>.local.<ext> over the result. A missing file is not an error.
func LoadConfig(name string) (Config, error) {
	out := DefaultConfig()

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := decodeOver(&out, defaultFile); err != nil {
			return out, fmt.Errorf("%v: %w", name, err)
		}
	}

	prefix, ext := splitExt(filepath.Base(name))
	localFilepath := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		if err := decodeOver(&out, localFile); err != nil {
			return out, fmt.Errorf("%v: %w", localFilepath, err)
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
	}

	return out, out.Validate()
}

// Override merges the non-zero values of override into cfg. Zero values
// mean "not set" and never replace anything.
func (cfg *Config) Override(override Config) error {
	return mergo.Merge(cfg, override, mergo.WithOverride)
}

func (cfg Config) Validate() error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is empty")
	}
	if cfg.Marker == "" {
		return fmt.Errorf("marker is empty")
	}
	for i, f := range cfg.Fields {
		if f.Header == "" || f.Selector == "" || f.Property == "" {
			return fmt.Errorf("fields[%d]: header, selector and property are required", i)
		}
	}
	if _, err := ParseFormat(cfg.Format); err != nil {
		return err
	}
	return nil
}

func (cfg Config) markerTimeout() time.Duration {
	return time.Duration(cfg.MarkerTimeoutMs) * time.Millisecond
}

func (cfg Config) pause() time.Duration {
	return time.Duration(cfg.PauseMs) * time.Millisecond
}

func (cfg Config) InputOptions() InputOptions {
	opt := DefaultInputOptions()
	opt.Encoding = scraper.CharsetEncoding(cfg.InputEncoding)
	opt.SkipLines = cfg.SkipLines
	return opt
}

func (cfg Config) Header() []string {
	return Header(cfg.NameHeader, cfg.Fields)
}

// NewSession returns a browser session configured from cfg.Browser.
func (cfg Config) NewSession(name string, log scraper.Logger) *scraper.Session {
	b := cfg.Browser
	session := scraper.NewSession(name, log)
	session.Headless = !b.ShowWindow
	session.ExecPath = b.ExecPath
	if len(b.Candidates) > 0 {
		session.BrowserCandidates = b.Candidates
	}
	if b.UserAgent != "" {
		session.UserAgent = b.UserAgent
	}
	if b.NavigationTimeoutMs > 0 {
		session.NavigationTimeout = time.Duration(b.NavigationTimeoutMs) * time.Millisecond
	}
	if b.WaitTimeoutMs > 0 {
		session.WaitTimeout = time.Duration(b.WaitTimeoutMs) * time.Millisecond
	}
	session.CookieFile = b.CookieFile
	session.SaveToFile = b.SaveToFile
	if b.SessionDir != "" {
		session.FilePrefix = b.SessionDir + string(filepath.Separator)
	}
	return session
}
