package opt

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionInfo struct {
	ID string
}

func TestNone(t *testing.T) {
	assert.False(t, None[string]().IsDefined())

	assert.Equal(t, 0, None[int]().Value())
	assert.Equal(t, "", None[string]().Value())
	assert.Nil(t, None[*string]().Value())
	assert.Equal(t, sessionInfo{}, None[sessionInfo]().Value())
}

func TestSome(t *testing.T) {
	assert.True(t, Some("").IsDefined())

	assert.Equal(t, 1, Some(1).Value())
	assert.Equal(t, "x", Some("x").Value())
}

func TestGet(t *testing.T) {
	v, ok := Some("chrome").Get()
	assert.True(t, ok)
	assert.Equal(t, "chrome", v)

	v, ok = None[string]().Get()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestOrElse(t *testing.T) {
	assert.Equal(t, 3, None[int]().OrElse(3))
	assert.Equal(t, 4, Some(4).OrElse(3))
}

func TestOrElseErr(t *testing.T) {
	errMissing := errors.New("missing")

	_, err := None[int]().OrElseErr(errMissing)
	assert.Equal(t, errMissing, err)

	v, err := Some(5).OrElseErr(errMissing)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestOr(t *testing.T) {
	assert.Equal(t, Some("a"), Some("a").Or(Some("b")))
	assert.Equal(t, Some("b"), None[string]().Or(Some("b")))
	assert.Equal(t, None[string](), None[string]().Or(None[string]()))
}

func TestMap(t *testing.T) {
	assert.Equal(t, Some("12"), Map(Some(12), strconv.Itoa))
	assert.Equal(t, None[string](), Map(None[int](), strconv.Itoa))
}

func TestFromPtr(t *testing.T) {
	assert.Equal(t, None[string](), FromPtr((*string)(nil)))

	s := "x"
	assert.Equal(t, Some(s), FromPtr(&s))
}

func TestString(t *testing.T) {
	assert.Equal(t, "[none]", None[int]().String())
	assert.Equal(t, "3", Some(3).String())
	assert.Equal(t, "{abc}", Some(sessionInfo{ID: "abc"}).String())
}
