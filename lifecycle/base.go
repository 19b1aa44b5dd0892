package lifecycle

import (
	"context"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// NewTestObject is a Factory for a plain TestObject whose logger is configured from cfg, or
// from the discovered config file and environment if cfg is nil.
func NewTestObject(cfg *config.Config) Factory[*testobject.TestObject] {
	return func(_ context.Context, testName string) (*testobject.TestObject, error) {
		return NewBase(cfg, testName)
	}
}

// NewBase creates the common part of a backend-specific test object the same way
// NewTestObject does.
func NewBase(cfg *config.Config, testName string) (*testobject.TestObject, error) {
	if cfg == nil {
		loaded, err := config.New()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	log, err := testobject.NewLogger(cfg, testName)
	if err != nil {
		return nil, err
	}
	return testobject.New(log, cfg), nil
}
