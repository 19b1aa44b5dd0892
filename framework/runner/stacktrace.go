package runner

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/jason-edstrom/silver-carnival/framework/helpers"
)

// ErrorWithStacktrace is a test failure together with the test code that reported it.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
}

// StacktraceInfo is one stack frame.
type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, rootPackageName()+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

// transformError replaces the location preamble that testify puts into assertion messages
// with a stacktrace of our own, if there is one.
func transformError(err error, stacktrace []StacktraceInfo) error {
	message := helpers.TrimAssertionTrace(err.Error())
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace}
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	if f := runtime.FuncForPC(pc); f != nil {
		pkg, _ := parsePackageAndFunctionName(f.Name())
		return pkg
	}
	return "?"
}

// rootPackageName is the module path, assuming a three-part path like github.com/org/repo.
func rootPackageName() string {
	parts := strings.SplitN(currentPackageName(), "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "/")
}

// getStacktrace lists the callers of the function that called it, stopping at Run. Frames
// in this package are left out unless includeRunnerCode is set, and so are the functions
// named in helperFns.
func getStacktrace(includeRunnerCode bool, helperFns []string) []StacktraceInfo {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	thisPackage := currentPackageName()

	ret := []StacktraceInfo{}
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}
		pkg, fn := parsePackageAndFunctionName(frame.Function)
		if pkg == thisPackage && fn == "Run" {
			break
		}
		keep := (includeRunnerCode || pkg != thisPackage) && !slices.Contains(helperFns, frame.Function)
		if keep {
			ret = append(ret, StacktraceInfo{
				FileName: filepath.Base(frame.File),
				Package:  pkg,
				Function: fn,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return ret
}

// parsePackageAndFunctionName splits a name like "example.com/a/b.(*T).Method" into
// "example.com/a/b" and "(*T).Method".
func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	dot := strings.Index(fullName[lastSlash+1:], ".")
	if dot < 0 {
		return fullName, ""
	}
	split := lastSlash + 1 + dot
	return fullName[:split], fullName[split+1:]
}
