package playwright

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/playwright-community/playwright-go"
)

// Session is everything started for one test: the Playwright driver, a browser, an isolated
// browser context, and a page in that context.
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page

	// closers are run last-in first-out, so the context closes before the browser and the
	// browser before the driver.
	closers []namedCloser
	log     logging.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

func (s *Session) push(name string, fn func() error) {
	s.closers = append(s.closers, namedCloser{name: name, close: fn})
}

// Close shuts down everything the session started, newest first. Every step is attempted
// and the failures are returned together.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing playwright %s: %w", c.name, err))
		} else if s.log != nil {
			s.log.Verbose("Closed playwright %s", c.name)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Backend creates sessions as configured by c.
func Backend(c Config, log logging.Logger) driver.Backend[*Session] {
	return driver.Funcs[*Session]{
		CreateFunc: func(ctx context.Context) (*Session, error) {
			return Open(ctx, c, log)
		},
		DisposeFunc: func(_ context.Context, s *Session) error {
			return s.Close()
		},
	}
}

// Open starts the Playwright driver, launches the configured browser, and opens a page in a
// new context. If BaseURL is set the page navigates there. Anything already started is shut
// down again if a later step fails.
func Open(ctx context.Context, c Config, log logging.Logger) (*Session, error) {
	if log == nil {
		log = logging.NullLogger()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{log: log}
	fail := func(err error) (*Session, error) {
		_ = s.Close()
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	s.Playwright = pw
	s.push("driver", pw.Stop)

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.Headless),
	}
	if c.SlowMo > 0 {
		launch.SlowMo = playwright.Float(millis(c.SlowMo))
	}
	browser, err := browserType(pw, c.Browser).Launch(launch)
	if err != nil {
		return fail(fmt.Errorf("launching %s: %w", c.Browser, err))
	}
	s.Browser = browser
	s.push("browser", func() error { return browser.Close() })
	log.Verbose("Launched %s %s", c.Browser, browser.Version())

	var contextOptions playwright.BrowserNewContextOptions
	if c.BaseURL != "" {
		contextOptions.BaseURL = playwright.String(c.BaseURL)
	}
	bc, err := browser.NewContext(contextOptions)
	if err != nil {
		return fail(fmt.Errorf("creating browser context: %w", err))
	}
	s.Context = bc
	s.push("context", func() error { return bc.Close() })
	if c.Timeout > 0 {
		bc.SetDefaultTimeout(millis(c.Timeout))
		bc.SetDefaultNavigationTimeout(millis(c.Timeout))
	}

	page, err := bc.NewPage()
	if err != nil {
		return fail(fmt.Errorf("opening page: %w", err))
	}
	s.Page = page
	if c.BaseURL != "" {
		if _, err := page.Goto(c.BaseURL); err != nil {
			return fail(fmt.Errorf("navigating to %s: %w", c.BaseURL, err))
		}
	}
	return s, nil
}

func browserType(pw *playwright.Playwright, b Browser) playwright.BrowserType {
	switch b {
	case Firefox:
		return pw.Firefox
	case WebKit:
		return pw.WebKit
	default:
		return pw.Chromium
	}
}
