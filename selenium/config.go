// Package selenium runs browser tests through the W3C WebDriver protocol, against a local
// driver executable or a remote grid, with one lazily started session per test.
package selenium

import (
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/config"
)

// Section is the config section read by LoadConfig.
const Section = "Selenium"

// Browser names a browser a session can be started for.
type Browser string

const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
)

// DefaultTimeout applies when the Timeout setting is missing or not a number.
const DefaultTimeout = 30 * time.Second

// Config holds the Selenium section settings.
type Config struct {
	Browser  Browser
	Headless bool
	// Timeout is used for page loads and while waiting for a local driver to start.
	Timeout time.Duration
	BaseURL string
	// GridURL is a remote WebDriver endpoint. When empty, a local driver executable is started.
	GridURL string
	// DriverPath overrides the local driver executable, which is otherwise looked up on PATH.
	DriverPath string
}

// DefaultConfig is the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Browser: Chrome, Headless: true, Timeout: DefaultTimeout}
}

// LoadConfig reads the Selenium section. An unknown browser name falls back to chrome;
// Headless is true unless set to "false".
func LoadConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Browser = ParseBrowser(cfg.SectionValue(Section, "Browser", string(Chrome)))
	c.Headless = !strings.EqualFold(strings.TrimSpace(cfg.SectionValue(Section, "Headless", "true")), "false")
	c.Timeout = cfg.Millis(Section, "Timeout", DefaultTimeout)
	c.BaseURL = cfg.SectionValue(Section, "BaseUrl", "")
	c.GridURL = cfg.SectionValue(Section, "GridUrl", "")
	c.DriverPath = cfg.SectionValue(Section, "DriverPath", "")
	return c
}

// ParseBrowser is case-insensitive and returns Chrome for anything it does not recognize.
func ParseBrowser(s string) Browser {
	switch Browser(strings.ToLower(strings.TrimSpace(s))) {
	case Firefox:
		return Firefox
	case Edge:
		return Edge
	default:
		return Chrome
	}
}
