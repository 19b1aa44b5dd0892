// Package ginkgoadapter runs the test lifecycle around Ginkgo specs. Call Use inside a
// Describe block; every It in that container gets a fresh test object.
package ginkgoadapter

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive
	. "github.com/onsi/gomega"    //nolint:revive

	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// Hooks registers lifecycle callbacks with Ginkgo's BeforeEach and AfterEach in the current
// container. Errors fail the spec through Gomega.
func Hooks() lifecycle.TestHooks {
	return lifecycle.TestHooks{
		BeforeEach: func(fn func(ctx context.Context, testName string) error) {
			BeforeEach(func(ctx SpecContext) {
				Expect(fn(ctx, CurrentSpecReport().FullText())).To(Succeed(), "test setup failed")
			})
		},
		AfterEach: func(fn func(ctx context.Context) error) {
			AfterEach(func(ctx SpecContext) {
				Expect(fn(ctx)).To(Succeed())
			})
		},
	}
}

// Use creates a fresh test object for every spec in the enclosing container.
func Use[O testobject.Holder](newObject lifecycle.Factory[O]) *lifecycle.Context[O] {
	return lifecycle.Use(Hooks(), newObject)
}

// UseController is Use for a controller with its own before/after hooks.
func UseController[O testobject.Holder](controller *lifecycle.Controller[O]) *lifecycle.Context[O] {
	return lifecycle.UseController(Hooks(), controller)
}
