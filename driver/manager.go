package driver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/internal/sentinel"
)

// ErrNoFactory is returned by Acquire when the Manager has neither a Backend that can create
// resources nor a factory installed with OverrideFactory.
const ErrNoFactory = sentinel.Error("resource manager has no factory: the backend does not implement Create")

// Lifecycle is the type-independent view of a Manager, as kept by a store of managers for
// different resource types.
type Lifecycle interface {
	IsInitialized() bool
	Release(ctx context.Context) error
}

// Manager lazily creates one resource of type T, caches it until Release, and disposes it
// through its Backend.
//
// The cached value is present if and only if IsInitialized returns true. A released Manager can
// be acquired again, which creates a new resource. Concurrent first calls to Acquire share a
// single call to the factory.
type Manager[T any] struct {
	lock        sync.Mutex
	backend     Backend[T]
	factory     func(ctx context.Context) (T, error)
	initialized bool
	value       T
	inFlight    singleflight.Group
	log         logging.Logger
}

// NewManager creates a Manager. The backend may be nil if the caller will install a factory
// with OverrideFactory before acquiring; a nil logger is replaced with logging.NullLogger().
func NewManager[T any](backend Backend[T], log logging.Logger) *Manager[T] {
	if log == nil {
		log = logging.NullLogger()
	}
	return &Manager[T]{backend: backend, log: log}
}

// Log returns the logger the Manager was created with.
func (m *Manager[T]) Log() logging.Logger { return m.log }

// IsInitialized reports whether a resource is currently cached.
func (m *Manager[T]) IsInitialized() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.initialized
}

// Acquire returns the cached resource, creating it first if necessary. If creation fails, the
// error is returned unchanged and the Manager stays uninitialized, so a later Acquire retries.
func (m *Manager[T]) Acquire(ctx context.Context) (T, error) {
	if value, ok := m.cached(); ok {
		return value, nil
	}
	result, err, _ := m.inFlight.Do("acquire", func() (interface{}, error) {
		if value, ok := m.cached(); ok {
			return value, nil
		}
		create := m.createFunc()
		if create == nil {
			return nil, ErrNoFactory
		}
		value, err := create(ctx)
		if err != nil {
			return nil, err
		}
		m.lock.Lock()
		m.value = value
		m.initialized = true
		m.lock.Unlock()
		m.log.Verbose("Created %T", value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := result.(T)
	return value, nil
}

func (m *Manager[T]) cached() (T, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.value, m.initialized
}

func (m *Manager[T]) createFunc() func(ctx context.Context) (T, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.factory != nil {
		return m.factory
	}
	if m.backend != nil {
		return m.backend.Create
	}
	return nil
}

// Release disposes the cached resource, if any, and resets the Manager. The cache is cleared
// even if disposal fails; the disposal error is returned.
func (m *Manager[T]) Release(ctx context.Context) error {
	m.lock.Lock()
	if !m.initialized {
		m.lock.Unlock()
		return nil
	}
	value := m.value
	var zero T
	m.value = zero
	m.initialized = false
	m.lock.Unlock()

	if m.backend == nil {
		return nil
	}
	if err := m.backend.Dispose(ctx, value); err != nil {
		m.log.Warning("Failed to dispose %T: %s", value, err)
		return fmt.Errorf("disposing %T: %w", value, err)
	}
	m.log.Verbose("Disposed %T", value)
	return nil
}

// OverrideFactory releases the current resource, then makes factory the way future resources
// are created. The Backend's Dispose is still used to release them.
func (m *Manager[T]) OverrideFactory(ctx context.Context, factory func(ctx context.Context) (T, error)) error {
	err := m.Release(ctx)
	m.lock.Lock()
	m.factory = factory
	m.lock.Unlock()
	return err
}
