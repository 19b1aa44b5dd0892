// Package playwright runs browser tests through playwright-go. Each test gets its own browser
// context and page, started on first use and closed when the test ends.
package playwright

import (
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/config"
)

// Section is the config section read by LoadConfig.
const Section = "Playwright"

// Browser names a Playwright browser engine.
type Browser string

const (
	Chromium Browser = "chromium"
	Firefox  Browser = "firefox"
	WebKit   Browser = "webkit"
)

const DefaultTimeout = 30 * time.Second

// Config holds the Playwright section settings.
type Config struct {
	Browser  Browser
	Headless bool
	// Timeout is the default for actions and navigation in the test's browser context.
	Timeout time.Duration
	BaseURL string
	// SlowMo delays every Playwright operation, for watching a headed run.
	SlowMo time.Duration
}

func DefaultConfig() Config {
	return Config{Browser: Chromium, Headless: true, Timeout: DefaultTimeout}
}

// LoadConfig reads the Playwright section. Headless is true unless set to "false".
func LoadConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Browser = ParseBrowser(cfg.SectionValue(Section, "Browser", string(Chromium)))
	c.Headless = !strings.EqualFold(strings.TrimSpace(cfg.SectionValue(Section, "Headless", "true")), "false")
	c.Timeout = cfg.Millis(Section, "Timeout", DefaultTimeout)
	c.BaseURL = cfg.SectionValue(Section, "BaseUrl", "")
	c.SlowMo = cfg.Millis(Section, "SlowMo", 0)
	return c
}

// ParseBrowser accepts the engine names plus the common browser names that map onto them
// ("chrome" and "edge" run on Chromium, "safari" on WebKit). Anything else is Chromium.
func ParseBrowser(s string) Browser {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "firefox":
		return Firefox
	case "webkit", "safari":
		return WebKit
	default:
		return Chromium
	}
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
