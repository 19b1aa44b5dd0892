package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/softassert"
	"github.com/jason-edstrom/silver-carnival/testobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	log      *logging.CapturingLogger
	created  []*testobject.TestObject
	disposed int
}

func (f *fixture) factory(disposeErr error) Factory[*testobject.TestObject] {
	return func(_ context.Context, _ string) (*testobject.TestObject, error) {
		f.log = logging.NewCapturingLogger()
		o := testobject.New(f.log, nil)
		_, err := testobject.Register[string](o, "db", driver.Funcs[string]{
			CreateFunc: func(context.Context) (string, error) { return "conn", nil },
			DisposeFunc: func(context.Context, string) error {
				f.disposed++
				return disposeErr
			},
		})
		if err != nil {
			return nil, err
		}
		f.created = append(f.created, o)
		return o, nil
	}
}

func acquireDB(t *testing.T, o *testobject.TestObject) {
	t.Helper()
	_, err := testobjectAcquire(o)
	require.NoError(t, err)
}

func testobjectAcquire(o *testobject.TestObject) (string, error) {
	m, err := o.Store().Get("db")
	if err != nil {
		return "", err
	}
	return m.(*driver.Manager[string]).Acquire(context.Background())
}

func TestSetupAndTeardownLogBoundaries(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})

	o, err := c.Setup(context.Background(), "my test")
	require.NoError(t, err)
	assert.Same(t, o, c.Current().Value())
	acquireDB(t, o)

	require.NoError(t, c.Teardown(context.Background()))
	messages := f.log.Output().Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "----- START: my test -----", messages[0])
	assert.Contains(t, messages, "----- END: my test -----")
	assert.Equal(t, 1, f.disposed)
	assert.False(t, c.Current().IsDefined())
}

func TestDefaultTestName(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})
	_, err := c.Setup(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.TestName(), "Suite_"))
	require.NoError(t, c.Teardown(context.Background()))
}

func TestEachSetupGetsAFreshObject(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})
	for i := 0; i < 2; i++ {
		_, err := c.Setup(context.Background(), "t")
		require.NoError(t, err)
		require.NoError(t, c.Teardown(context.Background()))
	}
	require.Len(t, f.created, 2)
	assert.NotSame(t, f.created[0].Store(), f.created[1].Store())
	assert.NotSame(t, f.created[0].SoftAssert(), f.created[1].SoftAssert())
}

func TestOutsideActiveTest(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})
	_, err := c.TestObject()
	assert.ErrorIs(t, err, ErrOutsideActiveTest)
	assert.ErrorIs(t, c.Teardown(context.Background()), ErrOutsideActiveTest)
}

func TestSetupWhileActive(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})
	first, err := c.Setup(context.Background(), "first")
	require.NoError(t, err)
	_, err = c.Setup(context.Background(), "second")
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Same(t, first, c.Current().Value())
	assert.Len(t, f.created, 1)
}

func TestFactoryFailureLeavesControllerIdle(t *testing.T) {
	failure := errors.New("no config")
	c := NewController("Suite", func(context.Context, string) (*testobject.TestObject, error) {
		return nil, failure
	}, Hooks[*testobject.TestObject]{})
	_, err := c.Setup(context.Background(), "t")
	assert.ErrorIs(t, err, failure)
	assert.False(t, c.Current().IsDefined())
}

func TestSoftAssertFailureStillDisposes(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{})
	o, err := c.Setup(context.Background(), "t")
	require.NoError(t, err)
	acquireDB(t, o)
	o.SoftAssert().AssertEquals("a", 1, 2)

	err = c.Teardown(context.Background())
	var exception *softassert.Exception
	require.ErrorAs(t, err, &exception)
	assert.Len(t, exception.Failures, 1)
	assert.Equal(t, 1, f.disposed)
	assert.Contains(t, f.log.Output().Messages(), "----- END: t -----")
	assert.False(t, c.Current().IsDefined())
}

func TestAfterHookFailureStillDisposesAndChecksAsserts(t *testing.T) {
	f := &fixture{}
	hookErr := errors.New("after failed")
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		AfterTest: func(context.Context, *testobject.TestObject) error { return hookErr },
	})
	o, err := c.Setup(context.Background(), "t")
	require.NoError(t, err)
	acquireDB(t, o)
	o.SoftAssert().Fail("x", "broken")

	err = c.Teardown(context.Background())
	assert.ErrorIs(t, err, hookErr)
	var exception *softassert.Exception
	assert.ErrorAs(t, err, &exception)
	assert.Equal(t, 1, f.disposed)
}

func TestAfterHookPanicIsReported(t *testing.T) {
	f := &fixture{}
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		AfterTest: func(context.Context, *testobject.TestObject) error { panic("boom") },
	})
	_, err := c.Setup(context.Background(), "t")
	require.NoError(t, err)
	err = c.Teardown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in after-test hook: boom")
}

func TestDisposeFailureIsReturned(t *testing.T) {
	disposeErr := errors.New("cannot close")
	f := &fixture{}
	c := NewController("Suite", f.factory(disposeErr), Hooks[*testobject.TestObject]{})
	o, err := c.Setup(context.Background(), "t")
	require.NoError(t, err)
	acquireDB(t, o)
	assert.ErrorIs(t, c.Teardown(context.Background()), disposeErr)
	assert.False(t, c.Current().IsDefined())
}

func TestBeforeHookFailureKeepsTestActiveForTeardown(t *testing.T) {
	f := &fixture{}
	hookErr := errors.New("could not open page")
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		BeforeTest: func(_ context.Context, o *testobject.TestObject) error {
			if _, err := testobjectAcquire(o); err != nil {
				return err
			}
			return hookErr
		},
	})
	o, err := c.Setup(context.Background(), "t")
	assert.ErrorIs(t, err, hookErr)
	assert.NotNil(t, o)
	assert.True(t, c.Current().IsDefined())

	require.NoError(t, c.Teardown(context.Background()))
	assert.Equal(t, 1, f.disposed)
}

// withinTimeout fails the test instead of hanging if fn does not return.
func withinTimeout(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not return", what)
	}
}

func TestHooksCanReachTheActiveTestObject(t *testing.T) {
	f := &fixture{}
	var c *Controller[*testobject.TestObject]
	var beforeSaw, afterSaw *testobject.TestObject
	c = NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		BeforeTest: func(context.Context, *testobject.TestObject) error {
			o, err := c.TestObject()
			beforeSaw = o
			return err
		},
		AfterTest: func(context.Context, *testobject.TestObject) error {
			o, err := c.TestObject()
			if err != nil {
				return err
			}
			afterSaw = o
			o.SoftAssert().AssertEquals("page title", "Home", "Home")
			return nil
		},
	})

	var o *testobject.TestObject
	var setupErr, teardownErr error
	withinTimeout(t, "Setup", func() { o, setupErr = c.Setup(context.Background(), "hooks") })
	require.NoError(t, setupErr)
	assert.Same(t, o, beforeSaw)
	acquireDB(t, o)

	withinTimeout(t, "Teardown", func() { teardownErr = c.Teardown(context.Background()) })
	require.NoError(t, teardownErr)
	assert.Same(t, o, afterSaw)
	assert.Equal(t, 1, o.SoftAssert().NumberOfPassedAsserts())
	assert.True(t, o.SoftAssert().DidUserCheck())
	assert.Contains(t, f.log.Output().Messages(), "Soft Assert Summary - Pass: 1, Fail: 0, Total: 1")
	assert.Equal(t, 0, o.Store().Len())
	assert.Equal(t, 1, f.disposed)
	assert.False(t, c.Current().IsDefined())
}

func TestHookFailureThroughContextIsCounted(t *testing.T) {
	f := &fixture{}
	var tc *Context[*testobject.TestObject]
	c := NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		BeforeTest: func(context.Context, *testobject.TestObject) error {
			tc.Log().Info("before hook for %s", "ctx")
			return nil
		},
		AfterTest: func(context.Context, *testobject.TestObject) error {
			tc.SoftAssert().AssertEquals("status", 200, 500)
			return nil
		},
	})
	tc = &Context[*testobject.TestObject]{controller: c}

	var setupErr, teardownErr error
	withinTimeout(t, "Setup", func() { _, setupErr = c.Setup(context.Background(), "ctx") })
	require.NoError(t, setupErr)
	withinTimeout(t, "Teardown", func() { teardownErr = c.Teardown(context.Background()) })

	var exception *softassert.Exception
	require.ErrorAs(t, teardownErr, &exception)
	assert.Equal(t, []string{"[status] Expected <200> but was <500>"}, exception.Failures)
	assert.Contains(t, f.log.Output().Messages(), "before hook for ctx")
	assert.False(t, c.Current().IsDefined())
}

func TestTeardownIsNotReentrant(t *testing.T) {
	f := &fixture{}
	var c *Controller[*testobject.TestObject]
	var nestedErr, nestedSetupErr error
	c = NewController("Suite", f.factory(nil), Hooks[*testobject.TestObject]{
		AfterTest: func(ctx context.Context, _ *testobject.TestObject) error {
			nestedErr = c.Teardown(ctx)
			_, nestedSetupErr = c.Setup(ctx, "other")
			return nil
		},
	})
	_, err := c.Setup(context.Background(), "t")
	require.NoError(t, err)

	withinTimeout(t, "Teardown", func() { err = c.Teardown(context.Background()) })
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrOutsideActiveTest)
	assert.ErrorIs(t, nestedSetupErr, ErrAlreadyActive)
	assert.Len(t, f.created, 1)
}
