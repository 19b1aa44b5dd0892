package runner

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// Filter decides whether a test runs. Tests it rejects are reported as skipped.
type Filter interface {
	Match(id TestID) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(TestID) bool

func (f FilterFunc) Match(id TestID) bool { return f(id) }

// RegexFilters is the filter behind the --run and --skip flags of "maqs smoke". A test runs if
// it, or one of its ancestors or descendants, matches some MustMatch pattern (or there are
// none), and neither it nor an ancestor matches a MustNotMatch pattern.
type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

func (r RegexFilters) Match(id TestID) bool {
	if r.MustNotMatch.AnyMatch(id, false) {
		return false
	}
	return !r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(id, true)
}

// TestIDPattern is a slash-separated list of regular expressions, one per level of a TestID,
// such as "sqlite/reads" for the "reads" tests of the sqlite store suite. Each expression
// matches anywhere within its level's name.
type TestIDPattern []*regexp.Regexp

// Match reports whether the first levels of id satisfy the pattern. A pattern longer than id
// only matches when includeParents is set, so that --run "sqlite/reads" still enters the
// "sqlite" scope that contains the matching tests.
func (p TestIDPattern) Match(id TestID, includeParents bool) bool {
	if len(p) > len(id) && !includeParents {
		return false
	}
	for i, name := range id {
		if i == len(p) {
			break
		}
		if !p[i].MatchString(name) {
			return false
		}
	}
	return true
}

func (p TestIDPattern) String() string {
	parts := make([]string, len(p))
	for i, rx := range p {
		parts[i] = rx.String()
	}
	return strings.Join(parts, "/")
}

// ParseTestIDPattern compiles each slash-separated level of s.
func ParseTestIDPattern(s string) (TestIDPattern, error) {
	levels := strings.Split(s, "/")
	p := make(TestIDPattern, len(levels))
	for i, level := range levels {
		rx, err := regexp.Compile(level)
		if err != nil {
			return nil, fmt.Errorf("invalid regex in test pattern %q: %w", s, err)
		}
		p[i] = rx
	}
	return p, nil
}

// TestIDPatternList is a pflag.Value, so a flag can be repeated to add patterns.
type TestIDPatternList []TestIDPattern

func (l TestIDPatternList) String() string {
	quoted := make([]string, len(l))
	for i, p := range l {
		quoted[i] = `"` + p.String() + `"`
	}
	return strings.Join(quoted, " or ")
}

func (l *TestIDPatternList) Set(value string) error {
	p, err := ParseTestIDPattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

// Type is the placeholder shown in command-line help.
func (l *TestIDPatternList) Type() string { return "pattern" }

func (l TestIDPatternList) IsDefined() bool { return len(l) > 0 }

func (l TestIDPatternList) AnyMatch(id TestID, includeParents bool) bool {
	return slices.ContainsFunc(l, func(p TestIDPattern) bool { return p.Match(id, includeParents) })
}

// PrintFilterDescription explains, before a run starts, which tests the filters will skip.
// It prints nothing when no filter is set.
func PrintFilterDescription(out io.Writer, filters RegexFilters) {
	if !filters.MustMatch.IsDefined() && !filters.MustNotMatch.IsDefined() {
		return
	}
	_, _ = fmt.Fprintln(out, "Some tests will be skipped based on the filter criteria for this test run:")
	if filters.MustMatch.IsDefined() {
		_, _ = fmt.Fprintf(out, "  skip any not matching %s\n", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		_, _ = fmt.Fprintf(out, "  skip any matching %s\n", filters.MustNotMatch)
	}
	_, _ = fmt.Fprintln(out)
}
