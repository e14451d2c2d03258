package postgres

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/kbstore/attachment"
	"github.com/w-h-a/kbstore/db"
	"github.com/w-h-a/kbstore/db/sqlite"
)

// The SQL in this backend is engine-neutral, so the tests run it against the
// sqlite provider.
func newTestStore(t *testing.T) attachment.Store {
	t.Helper()

	conn, err := sqlite.NewDB(
		db.WithPath(filepath.Join(t.TempDir(), "attachments.db")),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, conn.Close())
	})

	require.NoError(t, Migrate(context.Background(), conn))

	store, err := NewStore(conn)
	require.NoError(t, err)

	return store
}

func TestNewStoreRequiresConnection(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	content := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}

	fileID, err := store.StoreFile(ctx, "proj", "kb", "k-1", "image.png", content, "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	got, mimeType, filename, err := store.RetrieveFile(ctx, "proj", fileID)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "image.png", filename)
}

func TestRetrieveMissingFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _, _, err := store.RetrieveFile(ctx, "proj", "missing")
	require.ErrorIs(t, err, attachment.ErrNotFound)
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fileID, err := store.StoreFile(ctx, "proj", "faq", "f-1", "doc.txt", []byte("body"), "text/plain")
	require.NoError(t, err)

	deleted, err := store.DeleteFile(ctx, "proj", fileID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteFile(ctx, "proj", fileID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _, _, err = store.RetrieveFile(ctx, "proj", fileID)
	require.ErrorIs(t, err, attachment.ErrNotFound)
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	faqID, err := store.StoreFile(ctx, "proj", "faq", "f-1", "a.txt", []byte("aaa"), "text/plain")
	require.NoError(t, err)
	_, err = store.StoreFile(ctx, "proj", "kb", "k-1", "b.txt", []byte("b"), "text/plain")
	require.NoError(t, err)

	files, err := store.ListFiles(ctx, "proj", "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = store.ListFiles(ctx, "proj", "faq")
	require.NoError(t, err)
	require.Len(t, files, 1)

	rec := files[0]
	assert.Equal(t, faqID, rec.FileID)
	assert.Equal(t, "a.txt", rec.OriginalFilename)
	assert.Equal(t, int64(3), rec.FileSize)
	assert.Equal(t, "postgres", rec.StorageBackend)
	assert.Equal(t, map[string]any{}, rec.Metadata)
}

func TestProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fileID, err := store.StoreFile(ctx, "proj-a", "faq", "f-1", "doc.txt", []byte("body"), "text/plain")
	require.NoError(t, err)

	_, _, _, err = store.RetrieveFile(ctx, "proj-b", fileID)
	require.ErrorIs(t, err, attachment.ErrNotFound)
}
