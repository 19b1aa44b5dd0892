// Package lifecycle drives one test object through setup and teardown, and glues that cycle
// to whatever test runner registers the before-each and after-each hooks.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-edstrom/silver-carnival/framework/opt"
	"github.com/jason-edstrom/silver-carnival/internal/sentinel"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

const (
	// ErrOutsideActiveTest is returned when the test object is requested, or teardown is run,
	// while no test is active.
	ErrOutsideActiveTest = sentinel.Error("test object accessed outside an active test")
	// ErrAlreadyActive is returned by Setup if the previous test was never torn down.
	ErrAlreadyActive = sentinel.Error("a test is already active; call Teardown first")
)

// Factory creates the test object for a test.
type Factory[O testobject.Holder] func(ctx context.Context, testName string) (O, error)

// Hook runs against the active test object.
type Hook[O testobject.Holder] func(ctx context.Context, o O) error

// Hooks are optional extension points run inside Setup and Teardown.
type Hooks[O testobject.Holder] struct {
	// BeforeTest runs at the end of Setup, after the START line is logged.
	BeforeTest Hook[O]
	// AfterTest runs at the start of Teardown, before soft assertions are checked.
	AfterTest Hook[O]
}

// Controller runs the setup/teardown cycle for one test at a time.
type Controller[O testobject.Holder] struct {
	newObject  Factory[O]
	hooks      Hooks[O]
	namePrefix string

	lock    sync.Mutex
	current opt.Maybe[O]
	name    string
	// busy is set while Setup builds the object or Teardown is closing it.
	busy bool
}

// NewController creates a Controller. namePrefix is used to build a default test name when
// Setup is given an empty one.
func NewController[O testobject.Holder](namePrefix string, newObject Factory[O], hooks Hooks[O]) *Controller[O] {
	return &Controller[O]{newObject: newObject, hooks: hooks, namePrefix: namePrefix}
}

// Setup creates a fresh test object and runs the BeforeTest hook. If the hook fails, the
// controller stays active so that Teardown can release whatever the hook created; the object
// is returned along with the error. Hooks run without the controller lock held, so they may
// use TestObject and Current.
func (c *Controller[O]) Setup(ctx context.Context, testName string) (O, error) {
	var zero O
	c.lock.Lock()
	if c.current.IsDefined() || c.busy {
		name := c.name
		c.lock.Unlock()
		return zero, fmt.Errorf("%w (%s)", ErrAlreadyActive, name)
	}
	c.busy = true
	c.lock.Unlock()

	if testName == "" {
		testName = fmt.Sprintf("%s_%d", c.namePrefix, time.Now().UnixMilli())
	}
	o, err := c.newObject(ctx, testName)

	c.lock.Lock()
	c.busy = false
	if err == nil {
		c.current = opt.Some(o)
		c.name = testName
	}
	c.lock.Unlock()
	if err != nil {
		return zero, fmt.Errorf("creating test object for %s: %w", testName, err)
	}

	o.Base().Log().Info("----- START: %s -----", testName)
	if c.hooks.BeforeTest != nil {
		if err := runHook(ctx, "before-test", c.hooks.BeforeTest, o); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Teardown runs the AfterTest hook and checks soft assertions, then always logs the END line
// and closes the test object. The test stays active until the object is closed. Every failure
// along the way is returned, joined.
func (c *Controller[O]) Teardown(ctx context.Context) error {
	c.lock.Lock()
	o, ok := c.current.Get()
	if !ok || c.busy {
		c.lock.Unlock()
		return ErrOutsideActiveTest
	}
	c.busy = true
	name := c.name
	c.lock.Unlock()

	defer func() {
		c.lock.Lock()
		c.current = opt.None[O]()
		c.busy = false
		c.lock.Unlock()
	}()

	base := o.Base()
	var afterErr error
	if c.hooks.AfterTest != nil {
		afterErr = runHook(ctx, "after-test", c.hooks.AfterTest, o)
	}
	assertErr := base.SoftAssert().FailTestIfAssertFailed()
	base.Log().Info("----- END: %s -----", name)
	closeErr := base.Close(ctx)
	return errors.Join(afterErr, assertErr, closeErr)
}

func runHook[O testobject.Holder](ctx context.Context, name string, hook Hook[O], o O) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s hook: %v", name, r)
		}
	}()
	return hook(ctx, o)
}

// Current returns the active test object, if any.
func (c *Controller[O]) Current() opt.Maybe[O] {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current
}

// TestObject returns the active test object, or ErrOutsideActiveTest.
func (c *Controller[O]) TestObject() (O, error) {
	return c.Current().OrElseErr(ErrOutsideActiveTest)
}

// TestName returns the name given to the most recent Setup.
func (c *Controller[O]) TestName() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.name
}
