package runner

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jason-edstrom/silver-carnival/framework/artifacts"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	o "github.com/jason-edstrom/silver-carnival/framework/opt"
)

// JUnitTestLogger collects results and writes them as a JUnit XML report when EndLog is called.
type JUnitTestLogger struct {
	// Persister writes the report. If nil, it is written to the local disk.
	Persister artifacts.FilePersister

	filePath   string
	suiteName  string
	properties []jUnitXMLProperty

	lock  sync.Mutex
	cases []*jUnitCase // in the order the tests started
	byID  map[string]*jUnitCase
}

type jUnitCase struct {
	id          TestID
	started     time.Time
	elapsed     time.Duration
	errs        []error
	skipped     o.Maybe[string]
	nonCritical bool
	output      string
}

// XML schema as used by https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`

	elapsed time.Duration
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
	SystemOut   string               `xml:"system-out,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

// NewJUnitTestLogger creates a JUnitTestLogger. Each top-level test becomes a test suite named
// "suiteName: test". The properties, sorted by name, and a description of the filters are
// attached to every suite.
func NewJUnitTestLogger(
	filePath string,
	suiteName string,
	properties map[string]string,
	filters RegexFilters,
) *JUnitTestLogger {
	props := []jUnitXMLProperty{
		{Name: "tests.filter.mustMatch", Value: filters.MustMatch.String()},
		{Name: "tests.filter.mustNotMatch", Value: filters.MustNotMatch.String()},
	}
	names := maps.Keys(properties)
	slices.Sort(names)
	for _, name := range names {
		props = append(props, jUnitXMLProperty{Name: name, Value: properties[name]})
	}
	return &JUnitTestLogger{
		filePath:   filePath,
		suiteName:  suiteName,
		properties: props,
		byID:       make(map[string]*jUnitCase),
	}
}

// update applies fn to the entry for id, creating the entry if the test was never started.
func (j *JUnitTestLogger) update(id TestID, fn func(*jUnitCase)) {
	j.lock.Lock()
	defer j.lock.Unlock()
	c, ok := j.byID[id.String()]
	if !ok {
		c = &jUnitCase{id: id, started: time.Now()}
		j.byID[id.String()] = c
		j.cases = append(j.cases, c)
	}
	fn(c)
}

func (j *JUnitTestLogger) TestStarted(id TestID) {
	j.update(id, func(*jUnitCase) {})
}

func (j *JUnitTestLogger) TestError(id TestID, err error) {
	j.update(id, func(c *jUnitCase) { c.errs = append(c.errs, err) })
}

func (j *JUnitTestLogger) TestFinished(id TestID, result TestResult, debugOutput logging.CapturedOutput) {
	j.update(id, func(c *jUnitCase) {
		c.elapsed = time.Since(c.started)
		c.nonCritical = result.NonCritical
		c.output = debugOutput.ToString("")
	})
}

func (j *JUnitTestLogger) TestSkipped(id TestID, reason string) {
	j.update(id, func(c *jUnitCase) { c.skipped = o.Some(reason) })
}

// EndLog writes the report.
func (j *JUnitTestLogger) EndLog(ctx context.Context) error {
	j.lock.Lock()
	doc := j.document()
	j.lock.Unlock()

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(data)
	buf.WriteByte('\n')

	persister := j.Persister
	if persister == nil {
		persister = &artifacts.LocalFilePersister{}
	}
	if err := persister.Persist(ctx, j.filePath, &buf); err != nil {
		return fmt.Errorf("writing JUnit report: %w", err)
	}
	return nil
}

func (j *JUnitTestLogger) document() jUnitXMLDocument {
	var doc jUnitXMLDocument
	suiteIndex := make(map[string]int)
	for _, c := range j.cases {
		if len(c.id) == 0 {
			continue
		}
		top := c.id[0]
		i, ok := suiteIndex[top]
		if !ok {
			i = len(doc.Suites)
			suiteIndex[top] = i
			doc.Suites = append(doc.Suites, jUnitXMLTestSuite{
				Name:       j.suiteName + ": " + top,
				Properties: j.properties,
			})
		}
		doc.Suites[i].add(top, c)
	}
	return doc
}

func (s *jUnitXMLTestSuite) add(classname string, c *jUnitCase) {
	tc := jUnitXMLTestCase{
		Classname: classname,
		Name:      c.id.String(),
		Time:      jUnitSeconds(c.elapsed),
	}
	if c.nonCritical {
		tc.Name += " (non-critical)"
	}
	if reason, ok := c.skipped.Get(); ok {
		s.Skipped++
		tc.SkipMessage = &jUnitXMLSkipMessage{Message: reason}
	}
	if len(c.errs) != 0 {
		s.Failures++
		tc.Failure = &jUnitXMLFailure{Message: failureMessage(c.errs), Contents: c.output}
	} else {
		tc.SystemOut = c.output
	}
	s.Tests++
	s.elapsed += c.elapsed
	s.Time = jUnitSeconds(s.elapsed)
	s.TestCases = append(s.TestCases, tc)
}

func failureMessage(failures []error) string {
	var b strings.Builder
	for i, e := range failures {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
		var es ErrorWithStacktrace
		if errors.As(e, &es) {
			b.WriteString("\n  Stacktrace:")
			for _, frame := range es.Stacktrace {
				b.WriteString("\n    " + frame.String())
			}
		}
	}
	return b.String()
}

func jUnitSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
