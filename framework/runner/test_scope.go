package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/exp/slices"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
)

type environment struct {
	config  TestConfiguration
	results Results
}

// T represents a test scope. It is very similar to Go's testing.T type.
type T struct {
	env         *environment
	id          TestID
	debugLogger *logging.CapturingLogger
	nonCritical string
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	errors      []error
	helperFns   []string

	// hooks registered on the parent scope, run around this one
	parentBefore []func(*T)
	parentAfter  []func(*T)
	// hooks registered on this scope, run around each of its subtests
	before []func(*T)
	after  []func(*T)
}

// TestConfiguration contains options for the entire test run.
type TestConfiguration struct {
	// Filter is an optional function for determining which tests to run based on their names.
	Filter Filter

	// TestLogger receives status information about each test.
	TestLogger TestLogger

	// Context is passed to hooks and available from T.Context. It defaults to
	// context.Background().
	Context context.Context

	// Value is an optional application-defined value which can be accessed from tests.
	Value interface{}
}

// Run starts a top-level test scope.
func Run(
	config TestConfiguration,
	action func(*T),
) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	env := &environment{
		config: config,
	}
	t := &T{env: env, debugLogger: logging.NewCapturingLogger()}
	t.run(action)
	return env.results
}

func (t *T) run(action func(*T)) (result TestResult) {
	result.TestID = t.id

	hooksOK := true
	for _, h := range t.parentBefore {
		if hooksOK = t.protect(h); !hooksOK {
			break
		}
	}
	if hooksOK {
		t.protect(action)
	}
	for i := len(t.parentAfter) - 1; i >= 0; i-- {
		t.protect(t.parentAfter[i])
	}

	result.Errors = t.errors
	if t.failed && !t.skipped {
		if t.nonCritical == "" {
			t.env.results.Failures = append(t.env.results.Failures, result)
		} else {
			result.Explanation = t.nonCritical
			result.NonCritical = true
			t.env.results.NonCriticalFailures = append(t.env.results.NonCriticalFailures, result)
		}
	}
	if !t.skipped {
		t.env.results.Tests = append(t.env.results.Tests, result)
	}
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		t.cleanups[i]()
	}
	return result
}

// protect runs fn, converting a FailNow, Skip, or unexpected panic into the scope's state. It
// returns false if fn did not return normally.
func (t *T) protect(fn func(*T)) (completed bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if t.skipped {
			return
		}
		t.failed = true
		var addError error
		if _, ok := r.(*T); ok {
			if len(t.errors) == 0 {
				addError = errors.New("test failed with no failure message")
			}
		} else {
			addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
		}
		if addError != nil {
			t.errors = append(t.errors, addError)
			t.env.config.TestLogger.TestError(t.id, addError)
		}
	}()
	fn(t)
	return true
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Run runs a subtest in its own scope.
//
// This is equivalent to Go's testing.T.Run. Hooks registered with BeforeEach and AfterEach on
// this scope run around the subtest.
func (t *T) Run(name string, action func(*T)) {
	id := t.id.Plus(name)

	t.env.config.TestLogger.TestStarted(id)
	if t.env.config.Filter != nil && !t.env.config.Filter.Match(id) {
		t.env.config.TestLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &T{
		id:           id,
		env:          t.env,
		debugLogger:  logging.NewCapturingLogger(),
		parentBefore: slices.Clone(t.before),
		parentAfter:  slices.Clone(t.after),
	}
	t.debugLogger.AddChildLogger(c1.debugLogger) // see comments on t.DebugLogger()
	result := c1.run(action)
	t.debugLogger.RemoveChildLogger(c1.debugLogger)
	if c1.skipped {
		t.env.config.TestLogger.TestSkipped(id, c1.skipReason)
	} else {
		t.env.config.TestLogger.TestFinished(id, result, c1.debugLogger.Output())
	}
}

// BeforeEach registers a hook that runs at the start of every direct subtest of this scope
// started after this call. Subtests of those subtests are not affected, so a scope that holds
// a per-test resource can itself contain subtests. Hooks run in the order registered. If a
// hook fails, the test body is not run but AfterEach hooks still are.
func (t *T) BeforeEach(hook func(*T)) {
	t.before = append(t.before, hook)
}

// AfterEach registers a hook that runs at the end of every direct subtest of this scope started
// after this call, whether or not the test failed. Hooks run in reverse order of registration.
func (t *T) AfterEach(hook func(*T)) {
	t.after = append(t.after, hook)
}

// NonCritical indicates that if this test fails, we would like to know about it but we're willing to
// live with it. It will be shown in the output as a non-critical failure, accompanied by the
// explanation that is specified here. Non-critical failures do not make the maqs command return
// a non-zero exit code, as regular failures do.
func (t *T) NonCritical(explanation string) {
	t.nonCritical = explanation
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not cause the test
// to terminate, but adds the failure message to the output and marks the test as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	err := fmt.Errorf(format, args...)

	stacktrace := getStacktrace(false, t.helperFns)
	err = transformError(err, stacktrace)

	t.errors = append(t.errors, err)
	t.env.config.TestLogger.TestError(t.id, err)
}

// FailNow causes the test to immediately terminate and be marked as failed.
func (t *T) FailNow() {
	panic(t)
}

// Failed reports whether the test has failed so far.
func (t *T) Failed() bool {
	return t.failed
}

// Skip causes the test to immediately terminate and be marked as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is equivalent to Skip but provides a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger instance for writing output for this test scope.
//
// The output that is captured for a test will be passed to TestLogger.TestFinished at the end of
// the test. The test runner can choose whether to display this or not based on command-line options.
//
// When a test has subtests (created with t.Run), the logger for a subtest starts out with a copy of
// any output that was already logged for the parent test. During the lifetime of the subtest, any
// further output that is sent to the parent test's logger will go to the child test's logger
// instead. This is useful when the parent test scope manages an object such as a browser session
// that is reused by many subtests.
func (t *T) DebugLogger() *logging.CapturingLogger {
	return t.debugLogger
}

// Defer schedules a cleanup function which is guaranteed to be called when this test scope
// exits for any reason. Unlike a Go defer statement, Defer can be used from within helper
// functions.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the context.Context for the test run.
func (t *T) Context() context.Context {
	return t.env.config.Context
}

// Value returns the application-defined value, if any, that was specified in the
// TestConfiguration.
func (t *T) Value() interface{} {
	return t.env.config.Value
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}
