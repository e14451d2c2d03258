package kbstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/kbstore/config"
	"github.com/w-h-a/kbstore/content"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	return &config.Config{
		DBBackend:         "sqlite",
		DBPath:            filepath.Join(dir, "kbstore.db"),
		VectorStorage:     "local",
		AttachmentStorage: "local",
		ContentStorage:    "local",
		DataDir:           dir,
	}
}

func TestNewDatabaseSqlite(t *testing.T) {
	cfg := localConfig(t)

	conn, err := NewDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestNewDatabaseUnknownBackend(t *testing.T) {
	cfg := localConfig(t)
	cfg.DBBackend = "oracle"

	_, err := NewDatabase(cfg)
	require.Error(t, err)
}

func TestNewAuditStoreMigrates(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	conn, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer conn.Close()

	store, err := NewAuditStore(ctx, conn)
	require.NoError(t, err)

	// Migrations ran, so a read against an empty table succeeds.
	_, err = store.MetricsSummary(ctx, 300)
	require.NoError(t, err)
}

func TestNewVectorStoreLocal(t *testing.T) {
	cfg := localConfig(t)

	store, err := NewVectorStore(cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestNewVectorStoreUnknownBackend(t *testing.T) {
	cfg := localConfig(t)
	cfg.VectorStorage = "qdrant"

	_, err := NewVectorStore(cfg)
	require.Error(t, err)
}

func TestNewAttachmentStoreLocal(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	store, err := NewAttachmentStore(ctx, cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestNewAttachmentStorePostgresRequiresConnection(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.AttachmentStorage = "postgres"

	_, err := NewAttachmentStore(ctx, cfg, nil)
	require.Error(t, err)
}

func TestNewAttachmentStoreUnknownBackend(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.AttachmentStorage = "s3"

	_, err := NewAttachmentStore(ctx, cfg, nil)
	require.Error(t, err)
}

func TestNewContentStoreLocal(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	store, err := NewContentStore(ctx, cfg, nil)
	require.NoError(t, err)

	err = store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Smoke", Active: true})
	require.NoError(t, err)
}

func TestNewContentStorePostgresOnSharedProvider(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.ContentStorage = "postgres"

	conn, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer conn.Close()

	store, err := NewContentStore(ctx, cfg, conn)
	require.NoError(t, err)

	err = store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Smoke", Active: true})
	require.NoError(t, err)

	project, err := store.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Smoke", project.Name)
}

func TestNewContentStorePostgresRequiresConnection(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.ContentStorage = "postgres"

	_, err := NewContentStore(ctx, cfg, nil)
	require.Error(t, err)
}
