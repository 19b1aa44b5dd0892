package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestRecorder(t *testing.T) {
	t.Run("Errorf", func(t *testing.T) {
		var tr TestRecorder
		tr.Errorf("hello %s", "there")
		tr.Errorf("bye")
		assert.Equal(t, []string{"hello there", "bye"}, tr.Errors)
		assert.False(t, tr.Terminated)
		assert.True(t, tr.Failed())
	})

	t.Run("FailNow", func(t *testing.T) {
		var tr1 TestRecorder
		tr1.FailNow()
		assert.True(t, tr1.Terminated)
		assert.True(t, tr1.Failed())

		tr2 := TestRecorder{PanicOnTerminate: true}
		assert.Panics(t, func() { tr2.FailNow() })
		assert.True(t, tr2.Terminated)
	})

	t.Run("Err", func(t *testing.T) {
		var tr TestRecorder
		assert.Nil(t, tr.Err())

		tr.Errorf("hello %s", "there")
		tr.Errorf("bye")
		assert.Equal(t, errors.New("hello there, bye"), tr.Err())
	})

	t.Run("testify messages lose their trace", func(t *testing.T) {
		var tr TestRecorder
		assert.Equal(&tr, "a", "b")
		require.Len(t, tr.Errors, 1)
		assert.NotContains(t, tr.Errors[0], "Error Trace:")
		assert.Contains(t, tr.Errors[0], "Not equal")
	})
}

func TestRunRecorded(t *testing.T) {
	reachedEnd := false
	r := RunRecorded(func(tr *TestRecorder) {
		require.Equal(tr, 1, 2)
		reachedEnd = true
	})
	assert.False(t, reachedEnd)
	assert.True(t, r.Terminated)
	assert.Len(t, r.Errors, 1)

	r = RunRecorded(func(tr *TestRecorder) {
		assert.True(tr, true)
	})
	assert.False(t, r.Failed())

	assert.PanicsWithValue(t, "unrelated", func() {
		RunRecorded(func(*TestRecorder) { panic("unrelated") })
	})
}
