package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	db, err := New(Config{Path: ":memory:", MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.sql":    {Data: []byte("CREATE INDEX idx ON t(a);")},
		"001_create_table.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
		"README.md":            {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_table", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	})
	assert.ErrorContains(t, err, "duplicate migration version 1")
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db := newMemoryDB(t)
	logger, _ := zap.NewDevelopment()
	migrator := NewMigrator(db, logger)

	fsys := fstest.MapFS{
		"001_create_table.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
		"002_seed.sql":         {Data: []byte("INSERT INTO t (a) VALUES ('x');")},
	}

	applied, err := migrator.Run(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = migrator.Run(context.Background(), fsys)
	require.NoError(t, err)
	assert.Zero(t, applied)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := newMemoryDB(t)
	logger, _ := zap.NewDevelopment()

	_, err := NewMigrator(db, logger).Run(context.Background(), fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE oops (")},
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Zero(t, count)
}
