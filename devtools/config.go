// Package devtools drives a local Chromium directly over the Chrome DevTools Protocol, without
// a WebDriver or Playwright driver in between.
package devtools

import (
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/config"
)

// Section is the config section read by LoadConfig.
const Section = "DevTools"

const DefaultTimeout = 30 * time.Second

// Config holds the DevTools section settings.
type Config struct {
	// ExecPath is the browser executable. When empty, common Chromium and Chrome names are
	// looked up on PATH.
	ExecPath string
	Headless bool
	// Args are extra command line flags for the browser.
	Args []string
	// Timeout bounds browser startup and is the default for page operations.
	Timeout time.Duration
	BaseURL string
	// WebSocketURL connects to an already running browser instead of launching one.
	WebSocketURL string
}

func DefaultConfig() Config {
	return Config{Headless: true, Timeout: DefaultTimeout}
}

// LoadConfig reads the DevTools section. Args is split on whitespace and commas.
func LoadConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.ExecPath = cfg.SectionValue(Section, "ExecPath", "")
	c.Headless = !strings.EqualFold(strings.TrimSpace(cfg.SectionValue(Section, "Headless", "true")), "false")
	c.Args = strings.FieldsFunc(cfg.SectionValue(Section, "Args", ""), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	c.Timeout = cfg.Millis(Section, "Timeout", DefaultTimeout)
	c.BaseURL = cfg.SectionValue(Section, "BaseUrl", "")
	c.WebSocketURL = cfg.SectionValue(Section, "WebSocketUrl", "")
	return c
}

// launchArgs are the flags the browser is started with, before the user data directory.
func (c Config) launchArgs() []string {
	args := []string{
		"--remote-debugging-port=0",
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-sync",
	}
	if c.Headless {
		args = append(args, "--headless=new", "--hide-scrollbars", "--mute-audio")
	}
	return append(args, c.Args...)
}
