package lifecycle

import (
	"context"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/softassert"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// TestHooks is how a test runner lets Use register per-test callbacks. Each function is
// called once, at registration time; the runner then calls the registered callback before or
// after every test in the group.
type TestHooks struct {
	BeforeEach func(fn func(ctx context.Context, testName string) error)
	AfterEach  func(fn func(ctx context.Context) error)
}

// Context gives test bodies access to the current test object. It is safe to create once for a
// whole group of tests and capture in every test body.
type Context[O testobject.Holder] struct {
	controller *Controller[O]
}

// Use registers setup and teardown with the runner's hooks, creating a new test object for
// every test.
func Use[O testobject.Holder](hooks TestHooks, newObject Factory[O]) *Context[O] {
	return UseController(hooks, NewController("Test", newObject, Hooks[O]{}))
}

// UseController is Use for a controller that was built with its own hooks.
func UseController[O testobject.Holder](hooks TestHooks, controller *Controller[O]) *Context[O] {
	hooks.BeforeEach(func(ctx context.Context, testName string) error {
		_, err := controller.Setup(ctx, testName)
		return err
	})
	hooks.AfterEach(func(ctx context.Context) error {
		if !controller.Current().IsDefined() {
			// Setup failed before a test object existed and has already reported why.
			return nil
		}
		return controller.Teardown(ctx)
	})
	return &Context[O]{controller: controller}
}

// Controller returns the underlying controller.
func (c *Context[O]) Controller() *Controller[O] { return c.controller }

// TestObject returns the current test object, or ErrOutsideActiveTest.
func (c *Context[O]) TestObject() (O, error) { return c.controller.TestObject() }

// MustTestObject is like TestObject but panics outside a test body.
func (c *Context[O]) MustTestObject() O {
	o, err := c.controller.TestObject()
	if err != nil {
		panic(err)
	}
	return o
}

// Log is shorthand for the current test object's logger.
func (c *Context[O]) Log() logging.Logger { return c.MustTestObject().Base().Log() }

// SoftAssert is shorthand for the current test object's soft assert collector.
func (c *Context[O]) SoftAssert() *softassert.Collector {
	return c.MustTestObject().Base().SoftAssert()
}
