// Package softassert collects assertion outcomes during a test without stopping it, and turns
// the failures into a single error when the test is checked at the end.
package softassert

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"

	"github.com/jason-edstrom/silver-carnival/framework/helpers"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
)

// Exception is returned by FailTestIfAssertFailed when any soft assertion failed.
type Exception struct {
	Failures []string
}

func (e *Exception) Error() string {
	lines := make([]string, 0, len(e.Failures)+1)
	lines = append(lines, fmt.Sprintf("Soft assert failures (%d):", len(e.Failures)))
	for i, f := range e.Failures {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, f))
	}
	return strings.Join(lines, "\n")
}

// Collector records named soft assertions for one test.
//
// Each assertion runs immediately; a failure is logged and remembered instead of ending the
// test. FailTestIfAssertFailed reports all remembered failures at once. Names given to
// AddExpectedAsserts must be used by some assertion before then, or that is a failure too.
type Collector struct {
	lock            sync.Mutex
	log             logging.Logger
	failures        []string
	expected        []string
	invoked         map[string]bool
	passCount       int
	failCount       int
	userChecked     bool
	expectedChecked bool
}

// New creates a Collector that logs each outcome to log.
func New(log logging.Logger) *Collector {
	if log == nil {
		log = logging.NullLogger()
	}
	return &Collector{log: log, invoked: make(map[string]bool)}
}

// OverrideLogger replaces the logger used for subsequent outcomes.
func (c *Collector) OverrideLogger(log logging.Logger) {
	c.lock.Lock()
	c.log = log
	c.lock.Unlock()
}

// Assert runs check and records a pass if it returns nil, or a failure otherwise. A panic in
// check is recorded as a failure. If failMessage is given, it is prepended to the failure text.
func (c *Collector) Assert(name string, check func() error, failMessage ...string) bool {
	err := runCheck(check)
	if err == nil {
		c.recordPass(name)
		return true
	}
	c.recordFailure(name, joinMessage(failMessage, err.Error()))
	return false
}

func runCheck(check func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return check()
}

func joinMessage(failMessage []string, errText string) string {
	prefix := strings.Join(failMessage, " ")
	switch {
	case prefix == "":
		return errText
	case errText == "":
		return prefix
	default:
		return prefix + ": " + errText
	}
}

// AssertEquals passes if expected and actual are equal as defined by testify's ObjectsAreEqual.
func (c *Collector) AssertEquals(name string, expected, actual interface{}, failMessage ...string) bool {
	return c.Assert(name, func() error {
		if !assert.ObjectsAreEqual(expected, actual) {
			return fmt.Errorf("Expected <%v> but was <%v>", expected, actual) //nolint:stylecheck
		}
		return nil
	}, failMessage...)
}

// AssertTrue passes if condition is true.
func (c *Collector) AssertTrue(name string, condition bool, failMessage ...string) bool {
	return c.Assert(name, func() error {
		if !condition {
			return errors.New("Expected condition to be true") //nolint:stylecheck
		}
		return nil
	}, failMessage...)
}

// AssertErrorIs passes only if fn returns an error that matches target according to errors.Is.
func (c *Collector) AssertErrorIs(name string, fn func() error, target error, failMessage ...string) bool {
	return c.Assert(name, func() error {
		err := fn()
		if err == nil {
			return fmt.Errorf("Expected %q to be returned", target) //nolint:stylecheck
		}
		if !errors.Is(err, target) {
			return fmt.Errorf("Expected %q but got %q", target, err) //nolint:stylecheck
		}
		return nil
	}, failMessage...)
}

// AssertErrorAs passes only if fn returns an error that has type E somewhere in its chain.
func AssertErrorAs[E error](c *Collector, name string, fn func() error, failMessage ...string) bool {
	return c.Assert(name, func() error {
		var target E
		err := fn()
		if err == nil {
			return fmt.Errorf("Expected %T to be returned", target) //nolint:stylecheck
		}
		if !errors.As(err, &target) {
			return fmt.Errorf("Expected %T but got %T: %s", target, err, err) //nolint:stylecheck
		}
		return nil
	}, failMessage...)
}

// AssertThat passes if value satisfies matcher.
func (c *Collector) AssertThat(name string, value interface{}, matcher m.Matcher, failMessage ...string) bool {
	return c.Assert(name, func() error {
		if pass, desc := matcher.Test(value); !pass {
			return errors.New(desc)
		}
		return nil
	}, failMessage...)
}

// Check runs testify assertions against a recorder and records one outcome for all of them. A
// require assertion that fails stops the function early, like it would in a real test.
func (c *Collector) Check(name string, fn func(t assert.TestingT), failMessage ...string) bool {
	return c.Assert(name, func() error {
		r := helpers.RunRecorded(func(r *helpers.TestRecorder) { fn(r) })
		if err := r.Err(); err != nil {
			return err
		}
		if r.Failed() {
			return errors.New("check stopped with FailNow")
		}
		return nil
	}, failMessage...)
}

// Fail records a failure unconditionally.
func (c *Collector) Fail(name, message string) {
	c.lock.Lock()
	c.invoked[name] = true
	c.failCount++
	msg := fmt.Sprintf("[%s] %s", name, message)
	c.failures = append(c.failures, msg)
	log := c.log
	c.lock.Unlock()
	log.Error("SOFT ASSERT FAIL: %s", msg)
}

// AddExpectedAsserts declares names that some assertion must use before the test is checked.
func (c *Collector) AddExpectedAsserts(names ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, n := range names {
		if !containsString(c.expected, n) {
			c.expected = append(c.expected, n)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (c *Collector) recordPass(name string) {
	c.lock.Lock()
	c.invoked[name] = true
	c.passCount++
	log := c.log
	c.lock.Unlock()
	log.Success("SOFT ASSERT PASS [%s]", name)
}

func (c *Collector) recordFailure(name, message string) {
	c.lock.Lock()
	c.invoked[name] = true
	c.failCount++
	c.failures = append(c.failures, fmt.Sprintf("[%s] %s", name, message))
	log := c.log
	c.lock.Unlock()
	log.Error("SOFT ASSERT FAIL [%s]: %s", name, message)
}

// FailTestIfAssertFailed is the end-of-test check. It logs a summary of the assertions run so
// far, records a failure for every expected assertion name that was never used, and returns an
// *Exception listing all failures in the order they were recorded, or nil if there were none.
// The summary counts do not include the missing expected names. Missing names are only
// reported once, however often this is called.
func (c *Collector) FailTestIfAssertFailed() error {
	c.LogFinalAssertData()
	c.lock.Lock()
	c.userChecked = true
	var missing []string
	if !c.expectedChecked {
		c.expectedChecked = true
		for _, name := range c.expected {
			if !c.invoked[name] {
				msg := fmt.Sprintf("Expected assert '%s' was never called", name)
				missing = append(missing, msg)
				c.failures = append(c.failures, msg)
				c.failCount++
			}
		}
	}
	failures := append([]string(nil), c.failures...)
	log := c.log
	c.lock.Unlock()

	for _, msg := range missing {
		log.Error("SOFT ASSERT: %s", msg)
	}
	if len(failures) == 0 {
		return nil
	}
	return &Exception{Failures: failures}
}

// LogFinalAssertData logs the pass, fail, and total counts.
func (c *Collector) LogFinalAssertData() {
	c.lock.Lock()
	pass, fail := c.passCount, c.failCount
	log := c.log
	c.lock.Unlock()
	log.Info("Soft Assert Summary - Pass: %d, Fail: %d, Total: %d", pass, fail, pass+fail)
}

// DidSoftAssertsFail returns true if any failure has been recorded.
func (c *Collector) DidSoftAssertsFail() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failCount > 0
}

// DidUserCheck returns true if FailTestIfAssertFailed has been called, or if no assertions were
// recorded at all.
func (c *Collector) DidUserCheck() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.userChecked || c.passCount+c.failCount == 0
}

func (c *Collector) NumberOfAsserts() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.passCount + c.failCount
}

func (c *Collector) NumberOfPassedAsserts() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.passCount
}

func (c *Collector) NumberOfFailedAsserts() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failCount
}

// Failures returns the failure messages recorded so far.
func (c *Collector) Failures() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.failures...)
}
