package scraper

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/chromedp/chromedp"
)

const (
	UserAgent_chrome98 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"
	UserAgent_default  = UserAgent_chrome98
)

// DefaultBrowserCandidates returns the install locations probed for goos,
// system-wide paths first and then paths under the user's home directory.
func DefaultBrowserCandidates(goos, home string) []string {
	switch goos {
	case "windows":
		candidates := []string{
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		}
		if home != "" {
			candidates = append(candidates, home+`\AppData\Local\Google\Chrome\Application\chrome.exe`)
		}
		return candidates
	case "darwin":
		candidates := []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
		if home != "" {
			candidates = append(candidates, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"))
		}
		return candidates
	default:
		candidates := []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/headless-shell/headless-shell",
		}
		if home != "" {
			candidates = append(candidates, filepath.Join(home, ".local/bin/google-chrome"))
		}
		return candidates
	}
}

// defaultBrowserCandidates is DefaultBrowserCandidates for the running platform.
func defaultBrowserCandidates() []string {
	home, _ := os.UserHomeDir()
	return DefaultBrowserCandidates(runtime.GOOS, home)
}

// FindBrowser returns the first candidate for which exists reports true.
func FindBrowser(candidates []string, exists func(string) bool) (string, error) {
	for _, candidate := range candidates {
		if candidate != "" && exists(candidate) {
			return candidate, nil
		}
	}
	return "", BrowserLaunchError{Candidates: candidates, Err: ErrNoBrowser}
}

// ResolveBrowser returns ExecPath when set, otherwise the first existing
// BrowserCandidates entry. Init launches the path it returns.
func (session *Session) ResolveBrowser() (string, error) {
	if session.ExecPath != "" {
		return session.ExecPath, nil
	}
	exists := session.exists
	if exists == nil {
		exists = FileExists
	}
	return FindBrowser(session.BrowserCandidates, exists)
}

// FileExists reports whether name is an existing regular file.
func FileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

// allocatorOptions is the fixed launch flag set. The sandbox flags are off so
// the browser also runs inside containers.
func (session *Session) allocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	userAgent := session.UserAgent
	if userAgent == "" {
		userAgent = UserAgent_default
	}

	options := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(execPath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(userAgent),
	}
	if session.Headless {
		options = append(options, chromedp.Headless)
	}
	if session.UserDataDir != "" {
		options = append(options, chromedp.UserDataDir(session.UserDataDir))
	}
	return append(options, session.ExtraFlags...)
}
