package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := OpenSQLite(ctx, SQLiteConfig{Dir: dir})
	require.NoError(t, err)
	assert.FileExists(t, s.Path())
	assert.Equal(t, "sqlite://"+s.Path(), s.DSN())

	empty, err := s.GetMap(ctx, "app", "flags")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.WriteMap(ctx, "app", "flags", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.WriteMap(ctx, "app", "flags", map[string]string{"b": "3", "c": "4"}))
	require.NoError(t, s.WriteMap(ctx, "", "flags", map[string]string{"x": "y"}))

	got, err := s.GetMap(ctx, "app", "flags")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "3", "c": "4"}, got)
	got, err = s.GetMap(ctx, "", "flags")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "y"}, got)

	require.NoError(t, s.Reset(ctx))
	got, err = s.GetMap(ctx, "app", "flags")
	require.NoError(t, err)
	assert.Empty(t, got)

	path := s.Path()
	require.NoError(t, s.Close())
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+"-wal")
}

func TestSQLiteKeepLeavesFile(t *testing.T) {
	s, err := OpenSQLite(context.Background(), SQLiteConfig{Dir: t.TempDir(), Keep: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, s.Path())
}

func TestSQLiteMissingDir(t *testing.T) {
	_, err := OpenSQLite(context.Background(), SQLiteConfig{Dir: t.TempDir() + "/missing"})
	assert.Error(t, err)
}
