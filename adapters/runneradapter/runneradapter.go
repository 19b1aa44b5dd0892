// Package runneradapter connects the test lifecycle to the framework/runner test scopes used by
// the maqs command.
package runneradapter

import (
	"context"

	"github.com/jason-edstrom/silver-carnival/framework/runner"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// Hooks registers lifecycle callbacks as BeforeEach/AfterEach hooks on t, so they run around
// each direct subtest of t. Setup failures fail the subtest without running its body.
func Hooks(t *runner.T) lifecycle.TestHooks {
	return lifecycle.TestHooks{
		BeforeEach: func(fn func(ctx context.Context, testName string) error) {
			t.BeforeEach(func(st *runner.T) {
				if err := fn(st.Context(), st.ID().String()); err != nil {
					st.Errorf("test setup failed: %s", err)
					st.FailNow()
				}
			})
		},
		AfterEach: func(fn func(ctx context.Context) error) {
			t.AfterEach(func(st *runner.T) {
				if err := fn(st.Context()); err != nil {
					st.Errorf("%s", err)
				}
			})
		},
	}
}

// Use creates a fresh test object for every direct subtest of t.
func Use[O testobject.Holder](t *runner.T, newObject lifecycle.Factory[O]) *lifecycle.Context[O] {
	return lifecycle.Use(Hooks(t), newObject)
}

// UseController is Use for a controller with its own before/after hooks.
func UseController[O testobject.Holder](t *runner.T, controller *lifecycle.Controller[O]) *lifecycle.Context[O] {
	return lifecycle.UseController(Hooks(t), controller)
}
