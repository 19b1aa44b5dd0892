package driver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type session struct {
	id int
}

type countingBackend struct {
	created    int32
	disposed   []*session
	createErr  error
	disposeErr error
	lock       sync.Mutex
}

func (b *countingBackend) Create(context.Context) (*session, error) {
	n := atomic.AddInt32(&b.created, 1)
	if b.createErr != nil {
		return nil, b.createErr
	}
	return &session{id: int(n)}, nil
}

func (b *countingBackend) Dispose(_ context.Context, s *session) error {
	b.lock.Lock()
	b.disposed = append(b.disposed, s)
	b.lock.Unlock()
	return b.disposeErr
}

func TestAcquireCreatesOnce(t *testing.T) {
	backend := &countingBackend{}
	m := NewManager[*session](backend, nil)
	assert.False(t, m.IsInitialized())

	s1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.True(t, m.IsInitialized())
	assert.Equal(t, int32(1), backend.created)
}

func TestAcquireLazyOnceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		calls := rapid.IntRange(1, 20).Draw(rt, "calls")
		backend := &countingBackend{}
		m := NewManager[*session](backend, nil)

		first, err := m.Acquire(context.Background())
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		for i := 1; i < calls; i++ {
			s, err := m.Acquire(context.Background())
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			if s != first {
				rt.Fatalf("call %d returned a different instance", i)
			}
		}
		if backend.created != 1 {
			rt.Fatalf("factory invoked %d times", backend.created)
		}
	})
}

func TestConcurrentFirstAcquireSharesFactoryCall(t *testing.T) {
	release := make(chan struct{})
	var created int32
	m := NewManager[*session](Funcs[*session]{
		CreateFunc: func(context.Context) (*session, error) {
			atomic.AddInt32(&created, 1)
			<-release
			return &session{id: 1}, nil
		},
	}, nil)

	var wg sync.WaitGroup
	results := make([]*session, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Acquire(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	close(release)
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&created))
}

func TestReleaseResets(t *testing.T) {
	backend := &countingBackend{}
	m := NewManager[*session](backend, nil)

	s1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Release(context.Background()))

	assert.False(t, m.IsInitialized())
	assert.Equal(t, []*session{s1}, backend.disposed)

	s2, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, int32(2), backend.created)
}

func TestReleaseWithoutAcquireDoesNotDispose(t *testing.T) {
	backend := &countingBackend{}
	m := NewManager[*session](backend, nil)

	require.NoError(t, m.Release(context.Background()))
	assert.Empty(t, backend.disposed)
}

func TestReleaseErrorStillClearsCache(t *testing.T) {
	backend := &countingBackend{disposeErr: errors.New("quit failed")}
	m := NewManager[*session](backend, nil)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	err = m.Release(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.disposeErr)
	assert.False(t, m.IsInitialized())
}

func TestFactoryErrorLeavesManagerUninitialized(t *testing.T) {
	backend := &countingBackend{createErr: errors.New("no browser")}
	m := NewManager[*session](backend, nil)

	_, err := m.Acquire(context.Background())
	assert.Equal(t, backend.createErr, err)
	assert.False(t, m.IsInitialized())

	backend.createErr = nil
	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNoFactory(t *testing.T) {
	t.Run("nil backend", func(t *testing.T) {
		m := NewManager[string](nil, nil)
		_, err := m.Acquire(context.Background())
		assert.ErrorIs(t, err, ErrNoFactory)
	})

	t.Run("backend without create", func(t *testing.T) {
		m := NewManager[string](Funcs[string]{}, nil)
		_, err := m.Acquire(context.Background())
		assert.ErrorIs(t, err, ErrNoFactory)
	})
}

func TestOverrideFactoryReleasesFirst(t *testing.T) {
	backend := &countingBackend{}
	m := NewManager[*session](backend, nil)
	original, err := m.Acquire(context.Background())
	require.NoError(t, err)

	replacement := &session{id: 100}
	require.NoError(t, m.OverrideFactory(context.Background(), func(context.Context) (*session, error) {
		return replacement, nil
	}))
	assert.Equal(t, []*session{original}, backend.disposed)
	assert.False(t, m.IsInitialized())

	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, replacement, s)
	assert.Equal(t, int32(1), backend.created)

	require.NoError(t, m.Release(context.Background()))
	assert.Equal(t, []*session{original, replacement}, backend.disposed)
}

func TestOverrideFactoryOnManagerWithoutBackend(t *testing.T) {
	m := NewManager[int](nil, nil)
	require.NoError(t, m.OverrideFactory(context.Background(), func(context.Context) (int, error) { return 7, nil }))

	v, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.NoError(t, m.Release(context.Background()))
}

type closable struct{ closed bool }

func (c *closable) Close() error {
	c.closed = true
	return nil
}

func TestCloserBackend(t *testing.T) {
	c := &closable{}
	m := NewManager(Closer(func(context.Context) (*closable, error) { return c, nil }), nil)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Release(context.Background()))
	assert.True(t, c.closed)
}
