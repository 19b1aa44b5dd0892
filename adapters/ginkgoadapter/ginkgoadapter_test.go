package ginkgoadapter_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jason-edstrom/silver-carnival/adapters/ginkgoadapter"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/store"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

var _ = Describe("Use", Ordered, func() {
	var (
		created  []*testobject.TestObject
		disposed int
		captured *logging.CapturingLogger
	)

	maqs := ginkgoadapter.Use(func(_ context.Context, _ string) (*testobject.TestObject, error) {
		captured = logging.NewCapturingLogger()
		o := testobject.New(captured, nil)
		_, err := testobject.Register[string](o, "session", driver.Funcs[string]{
			CreateFunc:  func(context.Context) (string, error) { return "session-1", nil },
			DisposeFunc: func(context.Context, string) error { disposed++; return nil },
		})
		created = append(created, o)
		return o, err
	})

	It("provides a test object inside the spec", func(ctx SpecContext) {
		o, err := maqs.TestObject()
		Expect(err).NotTo(HaveOccurred())
		session, err := store.Acquire[string](ctx, o.Store(), "session")
		Expect(err).NotTo(HaveOccurred())
		Expect(session).To(Equal("session-1"))
		maqs.SoftAssert().AssertEquals("session", "session-1", session)
	})

	It("gave the previous spec its own object and released its session", func() {
		Expect(created).To(HaveLen(2))
		Expect(created[0]).NotTo(BeIdenticalTo(created[1]))
		Expect(disposed).To(Equal(1))
	})

	It("logs the spec name when the test starts", func() {
		Expect(captured.Output().Messages()[0]).To(Equal(
			"----- START: Use logs the spec name when the test starts -----"))
	})

	AfterAll(func() {
		_, err := maqs.TestObject()
		Expect(err).To(MatchError(lifecycle.ErrOutsideActiveTest))
	})
})
