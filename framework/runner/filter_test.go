package runner

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regexFilterTestParams struct {
	run         []string
	skip        []string
	testID      TestID
	shouldMatch bool
}

func TestRegexFilters(t *testing.T) {
	allParams := []regexFilterTestParams{
		// matches everything by default
		{nil, nil, TestID(nil), true},
		{nil, nil, TestID{"a", "b"}, true},

		// --run with single component
		{[]string{"a"}, nil, TestID(nil), true},
		{[]string{"a"}, nil, TestID{"a"}, true},
		{[]string{"a"}, nil, TestID{"b"}, false},
		{[]string{"a"}, nil, TestID{"xax"}, true},
		{[]string{"a"}, nil, TestID{"a", "b"}, true},

		// --run with multiple components
		{[]string{"a/b"}, nil, TestID{"a"}, true},
		{[]string{"a/b"}, nil, TestID{"b"}, false},
		{[]string{"a/b"}, nil, TestID{"a", "b"}, true},

		// --run with multiple patterns
		{[]string{"a", "b"}, nil, TestID{"b"}, true},
		{[]string{"a", "b"}, nil, TestID{"c"}, false},

		// --skip with single component
		{nil, []string{"a"}, TestID(nil), true},
		{nil, []string{"a"}, TestID{"a"}, false},
		{nil, []string{"a"}, TestID{"a", "b"}, false},

		// --skip with multiple components
		{nil, []string{"a/b"}, TestID{"a"}, true},
		{nil, []string{"a/b"}, TestID{"a", "b", "c"}, false},
		{nil, []string{"a/b"}, TestID{"a", "c"}, true},

		// --skip overrides --run
		{[]string{"y"}, []string{"n"}, TestID{"y"}, true},
		{[]string{"y"}, []string{"n"}, TestID{"yn"}, false},
	}
	for _, params := range allParams {
		var r RegexFilters
		for _, s := range params.run {
			require.NoError(t, r.MustMatch.Set(s))
		}
		for _, s := range params.skip {
			require.NoError(t, r.MustNotMatch.Set(s))
		}
		t.Run(fmt.Sprintf("run=%s, skip=%s, id=%s", r.MustMatch, r.MustNotMatch, params.testID), func(t *testing.T) {
			assert.Equal(t, params.shouldMatch, r.Match(params.testID))
		})
	}
}

func TestInvalidPattern(t *testing.T) {
	var l TestIDPatternList
	assert.Error(t, l.Set("a/("))
	assert.False(t, l.IsDefined())
	assert.Equal(t, "pattern", l.Type())
}

func TestPrintFilterDescription(t *testing.T) {
	var buf bytes.Buffer
	PrintFilterDescription(&buf, RegexFilters{})
	assert.Empty(t, buf.String())

	var r RegexFilters
	require.NoError(t, r.MustMatch.Set("login"))
	require.NoError(t, r.MustNotMatch.Set("slow"))
	PrintFilterDescription(&buf, r)
	assert.Contains(t, buf.String(), `skip any not matching "login"`)
	assert.Contains(t, buf.String(), `skip any matching "slow"`)
}

func TestPatternListRendersEachPatternQuoted(t *testing.T) {
	var l TestIDPatternList
	require.NoError(t, l.Set("sqlite/reads"))
	require.NoError(t, l.Set("redis"))
	assert.Equal(t, `"sqlite/reads" or "redis"`, l.String())

	p, err := ParseTestIDPattern("sqlite/reads")
	require.NoError(t, err)
	assert.True(t, p.Match(TestID{"sqlite"}, true))
	assert.False(t, p.Match(TestID{"sqlite"}, false))
	assert.True(t, p.Match(TestID{"sqlite", "reads a map", "twice"}, false))
	assert.False(t, p.Match(TestID{"redis", "reads a map"}, true))
}
