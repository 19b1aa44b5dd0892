package selenium

import (
	"bytes"
	"context"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/artifacts"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// ManagerKey is the store key of the WebDriver manager.
const ManagerKey = "SeleniumDriver"

// TestObject is the per-test context for Selenium tests.
type TestObject struct {
	*testobject.TestObject
	Selenium  Config
	Persister artifacts.FilePersister
	manager   *driver.Manager[*WebDriver]
}

// NewTestObject wraps base, registering a WebDriver manager configured by sel.
func NewTestObject(base *testobject.TestObject, sel Config) (*TestObject, error) {
	m, err := testobject.Register(base, ManagerKey, Backend(sel, base.Log()))
	if err != nil {
		return nil, err
	}
	return &TestObject{
		TestObject: base,
		Selenium:   sel,
		Persister:  &artifacts.LocalFilePersister{},
		manager:    m,
	}, nil
}

// Factory creates Selenium test objects with settings from cfg, or from the discovered config
// file and environment if cfg is nil.
func Factory(cfg *config.Config) lifecycle.Factory[*TestObject] {
	return func(_ context.Context, testName string) (*TestObject, error) {
		base, err := lifecycle.NewBase(cfg, testName)
		if err != nil {
			return nil, err
		}
		return NewTestObject(base, LoadConfig(base.Config()))
	}
}

// Manager is the WebDriver manager, for overriding how the session is created.
func (o *TestObject) Manager() *driver.Manager[*WebDriver] { return o.manager }

// WebDriver returns the test's browser session, starting it on first use.
func (o *TestObject) WebDriver(ctx context.Context) (*WebDriver, error) {
	return o.manager.Acquire(ctx)
}

// CaptureScreenshot saves a PNG of the current page under screenshots/ and associates it with
// the test. An empty name uses the current time. It returns the file path.
func (o *TestObject) CaptureScreenshot(ctx context.Context, name string) (string, error) {
	wd, err := o.WebDriver(ctx)
	if err != nil {
		return "", err
	}
	png, err := wd.Screenshot(ctx)
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

// NewController creates a lifecycle controller for Selenium tests.
func NewController(cfg *config.Config, hooks lifecycle.Hooks[*TestObject]) *lifecycle.Controller[*TestObject] {
	return lifecycle.NewController("SeleniumTest", Factory(cfg), hooks)
}

// Use registers Selenium setup and teardown with a test runner's hooks.
func Use(hooks lifecycle.TestHooks, cfg *config.Config) *lifecycle.Context[*TestObject] {
	return lifecycle.Use(hooks, Factory(cfg))
}
