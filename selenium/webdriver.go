package selenium

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
)

// WebDriver is a browser session together with the local driver process that serves it, if
// one was started.
type WebDriver struct {
	*Session
	service *Service
}

// Close quits the session and then stops the local driver. The driver is stopped even if
// quitting fails.
func (w *WebDriver) Close(ctx context.Context) error {
	var quitErr, stopErr error
	if w.Session != nil {
		quitErr = w.Session.Quit(ctx)
	}
	if w.service != nil {
		stopErr = w.service.Stop()
	}
	return errors.Join(quitErr, stopErr)
}

// Backend creates WebDriver sessions as configured by c: on the grid if GridURL is set, or
// else through a newly started local driver.
func Backend(c Config, log logging.Logger) driver.Backend[*WebDriver] {
	return driver.Funcs[*WebDriver]{
		CreateFunc: func(ctx context.Context) (*WebDriver, error) {
			return Open(ctx, c, log)
		},
		DisposeFunc: func(ctx context.Context, w *WebDriver) error {
			return w.Close(ctx)
		},
	}
}

// Open starts a session as described by c, applies the page-load timeout, and navigates to
// BaseURL if one is set.
func Open(ctx context.Context, c Config, log logging.Logger) (*WebDriver, error) {
	w := &WebDriver{}
	serverURL := c.GridURL
	if serverURL == "" {
		service, err := StartService(ctx, c, log)
		if err != nil {
			return nil, err
		}
		w.service = service
		serverURL = service.URL()
	}
	session, err := NewClient(serverURL, nil, log).NewSession(ctx, Capabilities(c))
	if err != nil {
		_ = w.Close(ctx)
		return nil, fmt.Errorf("starting %s session: %w", c.Browser, err)
	}
	w.Session = session
	if c.Timeout > 0 {
		if err := session.SetTimeouts(ctx, Timeouts{PageLoad: c.Timeout}); err != nil {
			_ = w.Close(ctx)
			return nil, err
		}
	}
	if c.BaseURL != "" {
		if err := session.Get(ctx, c.BaseURL); err != nil {
			_ = w.Close(ctx)
			return nil, err
		}
	}
	return w, nil
}
