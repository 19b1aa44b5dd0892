package devtools

import (
	"bytes"
	"context"
	"errors"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/artifacts"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// ManagerKey is the store key of the DevTools browser manager.
const ManagerKey = "DevToolsBrowser"

// Session is a browser with the page a test works in.
type Session struct {
	*Browser
	Page *Page
}

// Open launches or connects to a browser as configured by c and opens a page at BaseURL.
func Open(ctx context.Context, c Config, log logging.Logger) (*Session, error) {
	var b *Browser
	var err error
	if c.WebSocketURL != "" {
		b, err = Connect(ctx, c.WebSocketURL, log)
	} else {
		b, err = Launch(ctx, c, log)
	}
	if err != nil {
		return nil, err
	}
	page, err := b.NewPage(ctx, c.BaseURL)
	if err != nil {
		return nil, errors.Join(err, b.Close(ctx))
	}
	return &Session{Browser: b, Page: page}, nil
}

// Backend creates sessions as configured by c.
func Backend(c Config, log logging.Logger) driver.Backend[*Session] {
	return driver.Funcs[*Session]{
		CreateFunc: func(ctx context.Context) (*Session, error) {
			return Open(ctx, c, log)
		},
		DisposeFunc: func(ctx context.Context, s *Session) error {
			return s.Close(ctx)
		},
	}
}

// TestObject is the per-test context for DevTools tests.
type TestObject struct {
	*testobject.TestObject
	DevTools  Config
	Persister artifacts.FilePersister
	manager   *driver.Manager[*Session]
}

func NewTestObject(base *testobject.TestObject, dc Config) (*TestObject, error) {
	m, err := testobject.Register(base, ManagerKey, Backend(dc, base.Log()))
	if err != nil {
		return nil, err
	}
	return &TestObject{
		TestObject: base,
		DevTools:   dc,
		Persister:  &artifacts.LocalFilePersister{},
		manager:    m,
	}, nil
}

func Factory(cfg *config.Config) lifecycle.Factory[*TestObject] {
	return func(_ context.Context, testName string) (*TestObject, error) {
		base, err := lifecycle.NewBase(cfg, testName)
		if err != nil {
			return nil, err
		}
		return NewTestObject(base, LoadConfig(base.Config()))
	}
}

func (o *TestObject) Manager() *driver.Manager[*Session] { return o.manager }

// Browser returns the test's browser session, starting it on first use.
func (o *TestObject) Browser(ctx context.Context) (*Session, error) {
	return o.manager.Acquire(ctx)
}

// Page returns the page opened for the test.
func (o *TestObject) Page(ctx context.Context) (*Page, error) {
	s, err := o.Browser(ctx)
	if err != nil {
		return nil, err
	}
	return s.Page, nil
}

// CaptureScreenshot saves a PNG of the test's page under screenshots/ and associates it
// with the test.
func (o *TestObject) CaptureScreenshot(ctx context.Context, name string) (string, error) {
	page, err := o.Page(ctx)
	if err != nil {
		return "", err
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	path := artifacts.ScreenshotPath("", name)
	if err := o.SaveAssociatedFile(ctx, o.Persister, path, bytes.NewReader(png)); err != nil {
		return "", err
	}
	o.Log().Info("Captured screenshot %s", path)
	return path, nil
}

func NewController(cfg *config.Config, hooks lifecycle.Hooks[*TestObject]) *lifecycle.Controller[*TestObject] {
	return lifecycle.NewController("DevToolsTest", Factory(cfg), hooks)
}

// Use registers DevTools setup and teardown with a test runner's hooks.
func Use(hooks lifecycle.TestHooks, cfg *config.Config) *lifecycle.Context[*TestObject] {
	return lifecycle.Use(hooks, Factory(cfg))
}
