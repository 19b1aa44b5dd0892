// Package store keeps the resource managers that belong to one test, keyed by name, and
// releases all of them when the test ends.
package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/internal/sentinel"
)

const (
	ErrDuplicateKey = sentinel.Error("store already contains a manager for key")
	ErrKeyNotFound  = sentinel.Error("no manager registered for key")
	ErrWrongType    = sentinel.Error("manager has a different resource type")
)

// Store maps keys to resource managers. Keys are unique, and iteration follows insertion order.
type Store struct {
	lock     sync.Mutex
	keys     []string
	managers map[string]driver.Lifecycle
	log      logging.Logger
}

// New creates an empty Store. A nil logger is replaced with logging.NullLogger().
func New(log logging.Logger) *Store {
	if log == nil {
		log = logging.NullLogger()
	}
	return &Store{managers: make(map[string]driver.Lifecycle), log: log}
}

// Put adds a manager under a new key. If the key is already present, the store is unchanged and
// the error wraps ErrDuplicateKey; use Upsert to replace an entry.
func (s *Store) Put(key string, manager driver.Lifecycle) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.managers[key]; ok {
		return fmt.Errorf("%w %q (use Upsert to replace it)", ErrDuplicateKey, key)
	}
	s.keys = append(s.keys, key)
	s.managers[key] = manager
	return nil
}

// Upsert adds or replaces the manager for key. A manager being replaced is released first; if
// that release fails, the replacement still happens and the release error is returned.
func (s *Store) Upsert(ctx context.Context, key string, manager driver.Lifecycle) error {
	s.lock.Lock()
	existing, ok := s.managers[key]
	s.lock.Unlock()

	var releaseErr error
	if ok {
		if err := existing.Release(ctx); err != nil {
			releaseErr = fmt.Errorf("releasing replaced manager %q: %w", key, err)
		}
	}

	s.lock.Lock()
	if _, ok := s.managers[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.managers[key] = manager
	s.lock.Unlock()
	return releaseErr
}

// Get returns the manager for key, or an error wrapping ErrKeyNotFound.
func (s *Store) Get(key string) (driver.Lifecycle, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	m, ok := s.managers[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrKeyNotFound, key)
	}
	return m, nil
}

// Lookup returns the manager for key as a *driver.Manager[T].
func Lookup[T any](s *Store, key string) (*driver.Manager[T], error) {
	m, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	typed, ok := m.(*driver.Manager[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrWrongType, key, m)
	}
	return typed, nil
}

// Acquire looks up the manager for key and acquires its resource.
func Acquire[T any](ctx context.Context, s *Store, key string) (T, error) {
	m, err := Lookup[T](s, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.Acquire(ctx)
}

func (s *Store) Contains(key string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.managers[key]
	return ok
}

func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Store) Keys() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return slices.Clone(s.keys)
}

// Each calls fn for every entry in insertion order until fn returns false. It works on a
// snapshot, so fn may modify the store.
func (s *Store) Each(fn func(key string, manager driver.Lifecycle) bool) {
	for _, e := range s.snapshot() {
		if !fn(e.key, e.manager) {
			return
		}
	}
}

// Remove releases and removes the manager for key. It returns false, with no error, if the key
// is not present. If releasing fails the entry stays in the store and the error is returned.
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	s.lock.Lock()
	m, ok := s.managers[key]
	s.lock.Unlock()
	if !ok {
		return false, nil
	}
	if err := m.Release(ctx); err != nil {
		return false, fmt.Errorf("releasing %q: %w", key, err)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.managers[key] == m {
		delete(s.managers, key)
		if i := slices.Index(s.keys, key); i >= 0 {
			s.keys = slices.Delete(s.keys, i, i+1)
		}
	}
	return true, nil
}

type entry struct {
	key     string
	manager driver.Lifecycle
}

func (s *Store) snapshot() []entry {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]entry, 0, len(s.keys))
	for _, k := range s.keys {
		ret = append(ret, entry{k, s.managers[k]})
	}
	return ret
}

// CloseAll releases every manager concurrently and waits for all of them, then empties the
// store. A failing release does not stop the others. If any failed, the error for the earliest
// key in insertion order is returned once every release has finished.
func (s *Store) CloseAll(ctx context.Context) error {
	entries := s.snapshot()
	errs := make([]error, len(entries))

	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			errs[i] = release(ctx, e)
			return nil
		})
	}
	// goroutines never return an error; failures are collected in errs
	_ = g.Wait()

	s.lock.Lock()
	s.keys = nil
	s.managers = make(map[string]driver.Lifecycle)
	s.lock.Unlock()

	var first error
	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failed++
		s.log.Warning("%s", err)
		if first == nil {
			first = err
		}
	}
	if failed > 1 {
		s.log.Error("%d of %d managers failed to close", failed, len(entries))
	}
	return first
}

func release(ctx context.Context, e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("releasing %q: panic: %v", e.key, r)
		}
	}()
	if err := e.manager.Release(ctx); err != nil {
		return fmt.Errorf("releasing %q: %w", e.key, err)
	}
	return nil
}
