package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/kbstore/db"
)

func newTestDB(t *testing.T) db.DB {
	t.Helper()

	conn, err := NewDB(
		db.WithPath(filepath.Join(t.TempDir(), "test.db")),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	return conn
}

func TestNewDBRequiresPath(t *testing.T) {
	_, err := NewDB()
	require.Error(t, err)
}

func TestExecuteAndQuery(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)

	require.NoError(t, conn.Execute(ctx, "CREATE TABLE items (id TEXT PRIMARY KEY, count INTEGER NOT NULL)"))
	require.NoError(t, conn.Execute(ctx, "INSERT INTO items (id, count) VALUES (?, ?)", "a", 3))

	rows, err := conn.Query(ctx, "SELECT * FROM items WHERE id = ?", "a")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "a", rows[0].String("id"))
	assert.Equal(t, 3, rows[0].Int("count"))
}

func TestQueryEmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)

	require.NoError(t, conn.Execute(ctx, "CREATE TABLE items (id TEXT PRIMARY KEY)"))

	rows, err := conn.Query(ctx, "SELECT * FROM items")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteMany(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)

	require.NoError(t, conn.Execute(ctx, "CREATE TABLE items (id TEXT PRIMARY KEY, count INTEGER NOT NULL)"))

	err := conn.ExecuteMany(ctx, "INSERT INTO items (id, count) VALUES (?, ?)", [][]any{
		{"a", 1},
		{"b", 2},
		{"c", 3},
	})
	require.NoError(t, err)

	rows, err := conn.Query(ctx, "SELECT * FROM items ORDER BY id ASC")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[1].String("id"))
	assert.Equal(t, 2, rows[1].Int("count"))
}

func TestExecuteManyRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)

	require.NoError(t, conn.Execute(ctx, "CREATE TABLE items (id TEXT PRIMARY KEY)"))

	err := conn.ExecuteMany(ctx, "INSERT INTO items (id) VALUES (?)", [][]any{
		{"a"},
		{"a"}, // duplicate key fails the batch
	})
	require.Error(t, err)

	rows, err := conn.Query(ctx, "SELECT * FROM items")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNullColumnsScanAsNil(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)

	require.NoError(t, conn.Execute(ctx, "CREATE TABLE items (id TEXT PRIMARY KEY, note TEXT)"))
	require.NoError(t, conn.Execute(ctx, "INSERT INTO items (id, note) VALUES (?, ?)", "a", nil))

	rows, err := conn.Query(ctx, "SELECT * FROM items")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].IsNull("note"))
	assert.Equal(t, "", rows[0].String("note"))
}
