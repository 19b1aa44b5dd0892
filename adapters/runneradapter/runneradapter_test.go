package runneradapter

import (
	"context"
	"testing"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/framework/runner"
	"github.com/jason-edstrom/silver-carnival/lifecycle"
	"github.com/jason-edstrom/silver-carnival/store"
	"github.com/jason-edstrom/silver-carnival/testobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEachSubtestGetsItsOwnTestObject(t *testing.T) {
	var seen []*testobject.TestObject
	disposed := 0
	newObject := func(_ context.Context, _ string) (*testobject.TestObject, error) {
		o := testobject.New(logging.NullLogger(), nil)
		_, err := testobject.Register[int](o, "counter", driver.Funcs[int]{
			CreateFunc:  func(context.Context) (int, error) { return 1, nil },
			DisposeFunc: func(context.Context, int) error { disposed++; return nil },
		})
		return o, err
	}

	results := runner.Run(runner.TestConfiguration{}, func(rt *runner.T) {
		maqs := Use(rt, newObject)
		for _, name := range []string{"one", "two"} {
			rt.Run(name, func(st *runner.T) {
				o := maqs.MustTestObject()
				seen = append(seen, o)
				_, err := store.Acquire[int](st.Context(), o.Store(), "counter")
				require.NoError(st, err)
			})
		}
	})

	assert.True(t, results.OK())
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
	assert.Equal(t, 2, disposed)
}

func TestSoftAssertFailureFailsSubtest(t *testing.T) {
	results := runner.Run(runner.TestConfiguration{}, func(rt *runner.T) {
		maqs := Use(rt, lifecycle.NewTestObject(nil))
		rt.Run("checks", func(*runner.T) {
			maqs.SoftAssert().AssertEquals("title", "Home", "Login")
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Equal(t, runner.TestID{"checks"}, results.Failures[0].TestID)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "Expected <Home> but was <Login>")
}

func TestSetupFailureSkipsBody(t *testing.T) {
	bodyRan := false
	results := runner.Run(runner.TestConfiguration{}, func(rt *runner.T) {
		Use(rt, func(context.Context, string) (*testobject.TestObject, error) {
			return nil, assert.AnError
		})
		rt.Run("never", func(*runner.T) { bodyRan = true })
	})
	assert.False(t, bodyRan)
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "test setup failed")
}
