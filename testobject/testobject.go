// Package testobject holds the per-test context: logger, soft assertions, resource store,
// configuration, and the ad hoc values, objects and files a test accumulates.
package testobject

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/framework/artifacts"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/jason-edstrom/silver-carnival/softassert"
	"github.com/jason-edstrom/silver-carnival/store"
)

// Holder is implemented by TestObject and by every backend-specific test object that embeds
// it, so generic code can reach the common parts.
type Holder interface {
	Base() *TestObject
}

// TestObject is created fresh for each test and closed when the test ends.
type TestObject struct {
	log        logging.Logger
	softAssert *softassert.Collector
	store      *store.Store
	config     *config.Config

	lock    sync.Mutex
	values  map[string]string
	objects map[string]interface{}
	files   []string
}

// New creates a TestObject. A nil log means NullLogger; a nil cfg means no configuration
// beyond defaults.
func New(log logging.Logger, cfg *config.Config) *TestObject {
	if log == nil {
		log = logging.NullLogger()
	}
	if cfg == nil {
		cfg, _ = config.New(config.WithoutFile(), config.WithEnv(config.EnvFromMap(nil)))
	}
	return &TestObject{
		log:        log,
		softAssert: softassert.New(log),
		store:      store.New(log),
		config:     cfg,
		values:     make(map[string]string),
		objects:    make(map[string]interface{}),
	}
}

func (o *TestObject) Base() *TestObject { return o }

func (o *TestObject) Log() logging.Logger { return o.log }

func (o *TestObject) SoftAssert() *softassert.Collector { return o.softAssert }

func (o *TestObject) Store() *store.Store { return o.store }

func (o *TestObject) Config() *config.Config { return o.config }

// Register adds a manager for backend under key, failing if key is taken.
func Register[T any](o *TestObject, key string, backend driver.Backend[T]) (*driver.Manager[T], error) {
	m := driver.NewManager(backend, o.log)
	if err := o.store.Put(key, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (o *TestObject) SetValue(key, value string) {
	o.lock.Lock()
	o.values[key] = value
	o.lock.Unlock()
}

func (o *TestObject) Value(key string) (string, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	v, ok := o.values[key]
	return v, ok
}

// Values returns a copy of every string value.
func (o *TestObject) Values() map[string]string {
	o.lock.Lock()
	defer o.lock.Unlock()
	ret := make(map[string]string, len(o.values))
	for k, v := range o.values {
		ret[k] = v
	}
	return ret
}

func (o *TestObject) SetObject(key string, value interface{}) {
	o.lock.Lock()
	o.objects[key] = value
	o.lock.Unlock()
}

// Object returns the object stored under key if it has type T.
func Object[T any](o *TestObject, key string) (T, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	v, ok := o.objects[key].(T)
	return v, ok
}

// AddAssociatedFile records a file produced by the test, such as a screenshot. Adding the same
// path twice has no effect.
func (o *TestObject) AddAssociatedFile(path string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	for _, f := range o.files {
		if f == path {
			return
		}
	}
	o.files = append(o.files, path)
}

// RemoveAssociatedFile returns false if path was not associated.
func (o *TestObject) RemoveAssociatedFile(path string) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	for i, f := range o.files {
		if f == path {
			o.files = append(o.files[:i], o.files[i+1:]...)
			return true
		}
	}
	return false
}

func (o *TestObject) ContainsAssociatedFile(path string) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	for _, f := range o.files {
		if f == path {
			return true
		}
	}
	return false
}

// AssociatedFiles returns the associated files in the order they were added.
func (o *TestObject) AssociatedFiles() []string {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]string(nil), o.files...)
}

// Close releases every managed resource and then closes the logger. The logger is closed even
// if releasing fails.
func (o *TestObject) Close(ctx context.Context) error {
	storeErr := o.store.CloseAll(ctx)
	return errors.Join(storeErr, o.log.Close())
}

// SaveAssociatedFile writes data to path with persister and associates the file with the test.
func (o *TestObject) SaveAssociatedFile(ctx context.Context, persister artifacts.FilePersister, path string, data io.Reader) error {
	if err := persister.Persist(ctx, path, data); err != nil {
		return err
	}
	o.AddAssociatedFile(path)
	return nil
}
