package runner

import (
	"io"
	"strings"

	"github.com/jason-edstrom/silver-carnival/framework/logging"

	"github.com/fatih/color"
)

var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestNonCriticalColor = color.New(color.FgMagenta)       //nolint:gochecknoglobals
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals
var allTestsPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// TestLogger receives status information about each test as the run progresses.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, result TestResult, debugOutput logging.CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                      {}
func (n nullTestLogger) TestError(TestID, error)                                 {}
func (n nullTestLogger) TestFinished(TestID, TestResult, logging.CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                              {}

// MultiTestLogger forwards everything to each of its loggers in turn.
type MultiTestLogger []TestLogger

func (m MultiTestLogger) TestStarted(id TestID) {
	for _, l := range m {
		l.TestStarted(id)
	}
}

func (m MultiTestLogger) TestError(id TestID, err error) {
	for _, l := range m {
		l.TestError(id, err)
	}
}

func (m MultiTestLogger) TestFinished(id TestID, result TestResult, debugOutput logging.CapturedOutput) {
	for _, l := range m {
		l.TestFinished(id, result, debugOutput)
	}
}

func (m MultiTestLogger) TestSkipped(id TestID, reason string) {
	for _, l := range m {
		l.TestSkipped(id, reason)
	}
}

type ConsoleTestLogger struct {
	// Out defaults to color.Output.
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return color.Output
	}
	return c.Out
}

func (c ConsoleTestLogger) TestStarted(id TestID) {
	_, _ = io.WriteString(c.out(), "["+id.String()+"]\n")
}

func (c ConsoleTestLogger) TestError(id TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleTestErrorColor.Fprintf(c.out(), "  %s\n", line)
	}
}

func (c ConsoleTestLogger) TestFinished(id TestID, result TestResult, debugOutput logging.CapturedOutput) {
	failed := result.Failed()
	if failed {
		if result.NonCritical {
			_, _ = consoleTestNonCriticalColor.Fprintf(c.out(), "  FAILED (non-critical): %s (%s)\n", id, result.Explanation)
		} else {
			_, _ = consoleTestFailedColor.Fprintf(c.out(), "  FAILED: %s\n", id)
		}
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(c.out(), debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	if reason == "" {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s\n", id)
	} else {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIPPED: %s (%s)\n", id, reason)
	}
}

// PrintResults writes the end-of-run summary.
func PrintResults(out io.Writer, results Results) {
	if len(results.NonCriticalFailures) > 0 {
		_, _ = consoleTestNonCriticalColor.Fprintf(out, "NON-CRITICAL FAILURES (%d):\n", len(results.NonCriticalFailures))
		for _, f := range results.NonCriticalFailures {
			_, _ = consoleTestNonCriticalColor.Fprintf(out, "  * %s (%s)\n", f.TestID, f.Explanation)
		}
	}
	if results.OK() {
		_, _ = allTestsPassedColor.Fprintln(out, "All tests passed")
	} else {
		_, _ = consoleTestFailedColor.Fprintf(out, "FAILED TESTS (%d):\n", len(results.Failures))
		for _, f := range results.Failures {
			_, _ = consoleTestFailedColor.Fprintf(out, "  * %s\n", f.TestID)
		}
	}
}
