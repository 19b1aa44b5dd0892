package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// SQLiteConfig is read from the SQLite section.
type SQLiteConfig struct {
	// Dir is where the per-test database file is created. Empty means the system temp dir.
	Dir string
	// Keep leaves the database file in place after the test, for inspection.
	Keep bool
}

func LoadSQLiteConfig(cfg *config.Config) SQLiteConfig {
	var c SQLiteConfig
	if cfg == nil {
		return c
	}
	c.Dir = cfg.SectionValue("SQLite", "Dir", "")
	c.Keep = cfg.Bool("SQLite", "Keep", false)
	return c
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS entries (
		namespace TEXT NOT NULL,
		field     TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (namespace, field)
	)`

// SQLiteStore is a database file that belongs to one test.
type SQLiteStore struct {
	db   *sql.DB
	path string
	keep bool
}

// NewSQLiteBackend creates a new database file on Create and removes it on Dispose.
func NewSQLiteBackend(c SQLiteConfig) driver.Backend[*SQLiteStore] {
	return driver.Funcs[*SQLiteStore]{
		CreateFunc: func(ctx context.Context) (*SQLiteStore, error) {
			return OpenSQLite(ctx, c)
		},
		DisposeFunc: func(_ context.Context, s *SQLiteStore) error {
			return s.Close()
		},
	}
}

// OpenSQLite creates a new, empty database file in c.Dir.
func OpenSQLite(ctx context.Context, c SQLiteConfig) (*SQLiteStore, error) {
	f, err := os.CreateTemp(c.Dir, "maqs-*.db")
	if err != nil {
		return nil, fmt.Errorf("create sqlite file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create sqlite file: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = removeSQLiteFiles(path)
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single connection: one test uses the store at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, keep: c.Keep}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return s, nil
}

// DB is the underlying database, for tests that need more than string maps.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) DSN() string { return "sqlite://" + s.path }

func (s *SQLiteStore) WriteMap(ctx context.Context, prefix, key string, data map[string]string) error {
	namespace := addPrefix(prefix, key)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("clear %s: %w", namespace, err)
	}
	for field, value := range data {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (namespace, field, value) VALUES (?, ?, ?)`, namespace, field, value); err != nil {
			return fmt.Errorf("insert %s/%s: %w", namespace, field, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetMap(ctx context.Context, prefix, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM entries WHERE namespace = ?`, addPrefix(prefix, key))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	results := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		results[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return results, nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	return err
}

// Close closes the database and, unless Keep was set, removes its files.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if s.keep {
		return err
	}
	return errors.Join(err, removeSQLiteFiles(s.path))
}

func removeSQLiteFiles(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
