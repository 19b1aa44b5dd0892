package gotest

import (
	"context"
	"fmt"
	"testing"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/store"
	"github.com/jason-edstrom/silver-carnival/testobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeT struct {
	name     string
	cleanups []func()
	errors   []string
	failed   bool
}

func (f *fakeT) Helper()           {}
func (f *fakeT) Name() string      { return f.name }
func (f *fakeT) Cleanup(fn func()) { f.cleanups = append(f.cleanups, fn) }
func (f *fakeT) Errorf(format string, args ...interface{}) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}
func (f *fakeT) FailNow() {
	f.failed = true
	panic(f)
}

func (f *fakeT) runCleanups() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

func runFake(f *fakeT, body func()) {
	defer func() {
		if r := recover(); r != nil && r != f {
			panic(r)
		}
		f.runCleanups()
	}()
	body()
}

func counterObject(disposed *int) lifecycle.Factory[*testobject.TestObject] {
	return func(_ context.Context, _ string) (*testobject.TestObject, error) {
		o := testobject.New(logging.NullLogger(), nil)
		_, err := testobject.Register[int](o, "counter", driver.Funcs[int]{
			CreateFunc:  func(context.Context) (int, error) { return 7, nil },
			DisposeFunc: func(context.Context, int) error { *disposed++; return nil },
		})
		return o, err
	}
}

func TestUseWithRealTest(t *testing.T) {
	disposed := 0
	t.Run("inner", func(t *testing.T) {
		o := Use(t, counterObject(&disposed))
		n, err := store.Acquire[int](context.Background(), o.Store(), "counter")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
		o.SoftAssert().AssertEquals("n", 7, n)
	})
	assert.Equal(t, 1, disposed)
}

func TestSoftAssertFailureReportedAtCleanup(t *testing.T) {
	disposed := 0
	f := &fakeT{name: "TestThing"}
	runFake(f, func() {
		o := Use(f, counterObject(&disposed))
		_, _ = store.Acquire[int](context.Background(), o.Store(), "counter")
		o.SoftAssert().AssertEquals("n", 1, 2)
		assert.Empty(t, f.errors)
	})
	require.Len(t, f.errors, 1)
	assert.Contains(t, f.errors[0], "Expected <1> but was <2>")
	assert.Equal(t, 1, disposed)
}

func TestSetupFailureStopsTest(t *testing.T) {
	f := &fakeT{name: "TestThing"}
	bodyContinued := false
	runFake(f, func() {
		Use(f, func(context.Context, string) (*testobject.TestObject, error) {
			return nil, assert.AnError
		})
		bodyContinued = true
	})
	assert.True(t, f.failed)
	assert.False(t, bodyContinued)
	assert.Empty(t, f.cleanups)
}

func TestBeforeHookFailureStillTearsDown(t *testing.T) {
	disposed := 0
	f := &fakeT{name: "TestThing"}
	controller := lifecycle.NewController("TestThing", counterObject(&disposed), lifecycle.Hooks[*testobject.TestObject]{
		BeforeTest: func(ctx context.Context, o *testobject.TestObject) error {
			_, _ = store.Acquire[int](ctx, o.Store(), "counter")
			return assert.AnError
		},
	})
	runFake(f, func() {
		UseController(f, controller)
	})
	assert.True(t, f.failed)
	assert.Equal(t, 1, disposed)
	assert.False(t, controller.Current().IsDefined())
}
