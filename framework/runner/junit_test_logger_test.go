package runner

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJUnitReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "junit.xml")
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("ignored"))
	j := NewJUnitTestLogger(path, "maqs smoke", map[string]string{"browser": "chrome"}, filters)

	_ = Run(TestConfiguration{TestLogger: j, Filter: filters}, func(rt *T) {
		rt.Run("selenium", func(s *T) {
			s.Run("opens page", func(p *T) { p.Debug("navigated") })
			s.Run("has title", func(p *T) { p.Errorf("wrong title") })
			s.Run("ignored", func(*T) {})
		})
	})
	require.NoError(t, j.EndLog(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc jUnitXMLDocument
	require.NoError(t, xml.Unmarshal(data, &doc))

	require.Len(t, doc.Suites, 1)
	suite := doc.Suites[0]
	assert.Equal(t, "maqs smoke: selenium", suite.Name)
	assert.Equal(t, 4, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	assert.Equal(t, 1, suite.Skipped)
	assert.Contains(t, suite.Properties, jUnitXMLProperty{Name: "browser", Value: "chrome"})
	assert.Contains(t, suite.Properties, jUnitXMLProperty{Name: "tests.filter.mustNotMatch", Value: `"ignored"`})

	byName := make(map[string]jUnitXMLTestCase)
	for _, c := range suite.TestCases {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "selenium/has title")
	require.NotNil(t, byName["selenium/has title"].Failure)
	assert.Contains(t, byName["selenium/has title"].Failure.Message, "wrong title")
	assert.Contains(t, byName["selenium/opens page"].SystemOut, "navigated")
	require.NotNil(t, byName["selenium/ignored"].SkipMessage)
	assert.Equal(t, "excluded by filter parameters", byName["selenium/ignored"].SkipMessage.Message)
}

type bufferPersister struct {
	path string
	buf  bytes.Buffer
}

func (b *bufferPersister) Persist(_ context.Context, path string, data io.Reader) error {
	b.path = path
	_, err := b.buf.ReadFrom(data)
	return err
}

func TestJUnitReportUsesPersister(t *testing.T) {
	p := &bufferPersister{}
	j := NewJUnitTestLogger("out/junit.xml", "maqs", nil, RegexFilters{})
	j.Persister = p

	_ = Run(TestConfiguration{TestLogger: j}, func(rt *T) {
		rt.Run("sqlite", func(s *T) {
			s.Run("writes", func(*T) {})
		})
	})
	require.NoError(t, j.EndLog(context.Background()))

	assert.Equal(t, "out/junit.xml", p.path)
	assert.True(t, strings.HasPrefix(p.buf.String(), xml.Header))
	var doc jUnitXMLDocument
	require.NoError(t, xml.Unmarshal(p.buf.Bytes(), &doc))
	require.Len(t, doc.Suites, 1)
	assert.Equal(t, 2, doc.Suites[0].Tests)
	assert.Equal(t, "sqlite/writes", doc.Suites[0].TestCases[1].Name)
}
