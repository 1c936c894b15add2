package scraper

import (
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// getCICompatibleChromeOptions returns the extra browser flags tests need in CI.
// This function is intended for use in tests only.
func getCICompatibleChromeOptions() []chromedp.ExecAllocatorOption {
	options := []chromedp.ExecAllocatorOption{}

	// Add CI-specific options when running in CI environment
	if os.Getenv("CI") == "true" {
		options = append(options,
			chromedp.Flag("disable-default-apps", true),
			chromedp.Flag("disable-web-security", true),
		)
	}

	return options
}

// getCIMinTimeout raises timeout to 90 seconds in CI, where the browser starts slowly.
// A zero timeout stays zero.
func getCIMinTimeout(timeout time.Duration) time.Duration {
	const ciMin = 90 * time.Second
	if timeout == 0 || os.Getenv("CI") != "true" {
		return timeout
	}
	if timeout < ciMin {
		return ciMin
	}
	return timeout
}
