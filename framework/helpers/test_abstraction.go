package helpers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// TestContext is a minimal interface for types like *testing.T and *runner.T representing a
// test that can fail. Functions can use this to avoid specific dependencies on those packages.
type TestContext interface {
	Errorf(msgFormat string, msgArgs ...interface{})
	FailNow()
}

// TestRecorder is a TestContext that only records what happened. It lets testify assertions
// be evaluated without failing a real test, for instance to turn them into soft assertions.
type TestRecorder struct {
	Errors     []string
	Terminated bool
	// PanicOnTerminate makes FailNow panic with the recorder itself, so that code after a
	// failed require assertion does not run. Use RunRecorded to recover from it.
	PanicOnTerminate bool
}

func (r *TestRecorder) Errorf(msgFormat string, msgArgs ...interface{}) {
	r.Errors = append(r.Errors, TrimAssertionTrace(fmt.Sprintf(msgFormat, msgArgs...)))
}

func (r *TestRecorder) FailNow() {
	r.Terminated = true
	if r.PanicOnTerminate {
		panic(r)
	}
}

// Failed returns true if any error was recorded or FailNow was called.
func (r *TestRecorder) Failed() bool {
	return len(r.Errors) != 0 || r.Terminated
}

// Err returns nil if there were no errors, or else an error whose message is all of the
// recorded messages joined by ", ".
func (r *TestRecorder) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, ", "))
}

// RunRecorded calls action with a recorder that stops at the first FailNow, and returns the
// recorder. Panics other than the recorder's own are not recovered.
func RunRecorded(action func(*TestRecorder)) (r *TestRecorder) {
	r = &TestRecorder{PanicOnTerminate: true}
	defer func() {
		if p := recover(); p != nil && p != r {
			panic(p)
		}
	}()
	action(r)
	return r
}

var errorTraceInMessageRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// TrimAssertionTrace strips the "Error Trace:" preamble that testify's assert and require
// functions put in front of the actual failure message.
func TrimAssertionTrace(message string) string {
	if !strings.Contains(message, "Error Trace:") {
		return message
	}
	return strings.TrimSpace(errorTraceInMessageRegex.ReplaceAllLiteralString(message, ""))
}
