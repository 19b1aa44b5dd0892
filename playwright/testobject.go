package playwright

import (
	"bytes"
	"context"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/artifacts"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
	"github.com/playwright-community/playwright-go"
)

// ManagerKey is the store key of the Playwright session manager.
const ManagerKey = "PlaywrightDriver"

// TestObject is the per-test context for Playwright tests.
type TestObject struct {
	*testobject.TestObject
	Playwright Config
	Persister  artifacts.FilePersister
	manager    *driver.Manager[*Session]
}

func NewTestObject(base *testobject.TestObject, pc Config) (*TestObject, error) {
	m, err := testobject.Register(base, ManagerKey, Backend(pc, base.Log()))
	if err != nil {
		return nil, err
	}
	return &TestObject{
		TestObject: base,
		Playwright: pc,
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

// Session returns the test's Playwright session, starting it on first use.
func (o *TestObject) Session(ctx context.Context) (*Session, error) {
	return o.manager.Acquire(ctx)
}

// Page returns the test's page, starting the session on first use.
func (o *TestObject) Page(ctx context.Context) (playwright.Page, error) {
	s, err := o.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Page, nil
}

// CaptureScreenshot saves a PNG of the page under screenshots/ and associates it with the
// test. An empty name uses the current time.
func (o *TestObject) CaptureScreenshot(ctx context.Context, name string) (string, error) {
	page, err := o.Page(ctx)
	if err != nil {
		return "", err
	}
	png, err := page.Screenshot()
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
	return lifecycle.NewController("PlaywrightTest", Factory(cfg), hooks)
}

// Use registers Playwright setup and teardown with a test runner's hooks.
func Use(hooks lifecycle.TestHooks, cfg *config.Config) *lifecycle.Context[*TestObject] {
	return lifecycle.Use(hooks, Factory(cfg))
}
