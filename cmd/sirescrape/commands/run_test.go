package commands

import (
	"testing"

	"github.com/koizuka/keiba-scraper/job"
	"github.com/stretchr/testify/assert"
)

func TestApplyRunFlags(t *testing.T) {
	saved := runFlags
	t.Cleanup(func() { runFlags = saved })

	cfg := job.DefaultConfig()
	runFlags.format = "xlsx"
	runFlags.outputDir = "/tmp/sire"
	runFlags.showBrowser = true
	assert.NoError(t, applyRunFlags(&cfg))

	assert.Equal(t, "xlsx", cfg.Format)
	assert.Equal(t, "/tmp/sire", cfg.OutputDir)
	assert.True(t, cfg.Browser.ShowWindow)
	// unset flags keep the file values
	assert.Equal(t, job.SireBaseURL, cfg.BaseURL)
	assert.Equal(t, "shift_jis", cfg.InputEncoding)
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["probe"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, runCmd.Flags().Lookup("metrics-file"))
}
