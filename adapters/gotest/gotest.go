// Package gotest runs the test lifecycle inside ordinary "go test" tests.
//
//	func TestLogin(t *testing.T) {
//		o := gotest.Use(t, selenium.Factory(nil))
//		...
//	}
package gotest

import (
	"context"

	"github.com/stretchr/testify/require"

	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// TB is the subset of testing.TB used here.
type TB interface {
	Helper()
	Name() string
	Cleanup(func())
	Errorf(format string, args ...interface{})
	FailNow()
}

// Use sets up a fresh test object for t and registers its teardown with t.Cleanup. Setup
// failures stop the test immediately; teardown failures, including soft assertion failures,
// are reported with t.Errorf.
func Use[O testobject.Holder](t TB, newObject lifecycle.Factory[O]) O {
	t.Helper()
	return UseController(t, lifecycle.NewController(t.Name(), newObject, lifecycle.Hooks[O]{}))
}

// UseController is Use for a controller with its own before/after hooks. The controller must
// not be shared between tests that run in parallel.
func UseController[O testobject.Holder](t TB, controller *lifecycle.Controller[O]) O {
	t.Helper()
	o, err := controller.Setup(context.Background(), t.Name())
	if controller.Current().IsDefined() {
		// t.Context() is already canceled when cleanups run.
		t.Cleanup(func() {
			if terr := controller.Teardown(context.Background()); terr != nil {
				t.Errorf("%s", terr)
			}
		})
	}
	require.NoError(t, err, "test setup failed")
	return o
}
