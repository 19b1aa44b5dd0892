// Package datastore provides per-test data store fixtures. Each fixture is a driver.Backend,
// so a test registers it in its test object and the store is connected on first use and
// cleaned up when the test ends.
//
// All fixtures store string maps under a prefix and key, the way application code under
// test typically seeds a store before exercising it.
package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/jason-edstrom/silver-carnival/internal/sentinel"
	"github.com/jason-edstrom/silver-carnival/testobject"
)

// ErrUnknownKind is returned by Register for a store kind it does not know.
const ErrUnknownKind = sentinel.Error("unknown data store kind")

// Store is a connected data store fixture.
type Store interface {
	// DSN describes where the store lives, for logging and for passing to the code under test.
	DSN() string
	// WriteMap replaces the map stored at prefix and key with data.
	WriteMap(ctx context.Context, prefix, key string, data map[string]string) error
	// GetMap reads the map stored at prefix and key. A missing map is empty, not an error.
	GetMap(ctx context.Context, prefix, key string) (map[string]string, error)
	// Reset removes everything the fixture can see.
	Reset(ctx context.Context) error
	Close() error
}

// Kind names a store fixture.
type Kind string

const (
	Redis    Kind = "redis"
	Consul   Kind = "consul"
	DynamoDB Kind = "dynamodb"
	SQLite   Kind = "sqlite"
)

// Kinds lists every fixture kind.
var Kinds = []Kind{Redis, Consul, DynamoDB, SQLite} //nolint:gochecknoglobals

// ManagerKey is the test object store key used for a fixture kind.
func ManagerKey(kind Kind) string {
	switch kind {
	case Redis:
		return "RedisStore"
	case Consul:
		return "ConsulStore"
	case DynamoDB:
		return "DynamoDBStore"
	case SQLite:
		return "SQLiteStore"
	}
	return string(kind) + "Store"
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Backend returns the fixture backend for kind, configured from cfg.
func Backend(kind Kind, cfg *config.Config) (driver.Backend[Store], error) {
	switch kind {
	case Redis:
		return asStore[*RedisStore](NewRedisBackend(LoadRedisConfig(cfg))), nil
	case Consul:
		return asStore[*ConsulStore](NewConsulBackend(LoadConsulConfig(cfg))), nil
	case DynamoDB:
		return asStore[*DynamoDBStore](NewDynamoDBBackend(LoadDynamoDBConfig(cfg))), nil
	case SQLite:
		return asStore[*SQLiteStore](NewSQLiteBackend(LoadSQLiteConfig(cfg))), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Register adds a manager for the kind of store to o, configured from o's config.
func Register(o *testobject.TestObject, kind Kind) (*driver.Manager[Store], error) {
	backend, err := Backend(kind, o.Config())
	if err != nil {
		return nil, err
	}
	return testobject.Register(o, ManagerKey(kind), backend)
}

// asStore lets a backend of a concrete fixture type serve as a Backend[Store].
func asStore[S Store](b driver.Backend[S]) driver.Backend[Store] {
	return driver.Funcs[Store]{
		CreateFunc: func(ctx context.Context) (Store, error) {
			s, err := b.Create(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		DisposeFunc: func(ctx context.Context, s Store) error {
			return b.Dispose(ctx, s.(S))
		},
	}
}

func addPrefix(prefix, value string) string {
	if prefix == "" {
		return value
	}
	return prefix + ":" + value
}
