// Package kbstore wires the configured backends together. Each store family
// is selected independently, so an embedded deployment can run entirely on
// sqlite plus the local file backends while a server deployment points every
// family at postgres.
package kbstore

import (
	"context"
	"fmt"

	"github.com/w-h-a/kbstore/attachment"
	attachmentlocal "github.com/w-h-a/kbstore/attachment/local"
	attachmentpg "github.com/w-h-a/kbstore/attachment/postgres"
	"github.com/w-h-a/kbstore/audit"
	"github.com/w-h-a/kbstore/config"
	"github.com/w-h-a/kbstore/content"
	contentlocal "github.com/w-h-a/kbstore/content/local"
	contentpg "github.com/w-h-a/kbstore/content/postgres"
	"github.com/w-h-a/kbstore/db"
	"github.com/w-h-a/kbstore/db/postgres"
	"github.com/w-h-a/kbstore/db/sqlite"
	"github.com/w-h-a/kbstore/vector"
	vectorlocal "github.com/w-h-a/kbstore/vector/local"
	vectorpg "github.com/w-h-a/kbstore/vector/postgres"
)

// NewDatabase builds the relational connection provider for the configured
// engine.
func NewDatabase(cfg *config.Config) (db.DB, error) {
	switch cfg.DBBackend {
	case "sqlite":
		return sqlite.NewDB(
			db.WithPath(cfg.DBPath),
		)
	case "postgres":
		return postgres.NewDB(
			db.WithHost(cfg.DBHost),
			db.WithPort(cfg.DBPort),
			db.WithDatabase(cfg.DBName),
			db.WithUser(cfg.DBUser),
			db.WithPassword(cfg.DBPassword),
			db.WithPoolSize(cfg.DBPoolSize),
			db.WithMaxOverflow(cfg.DBMaxOverflow),
		)
	default:
		return nil, fmt.Errorf("unknown db backend %q", cfg.DBBackend)
	}
}

// NewAuditStore builds the audit store on the provider and runs its
// migrations.
func NewAuditStore(ctx context.Context, conn db.DB) (*audit.Store, error) {
	if err := audit.Migrate(ctx, conn); err != nil {
		return nil, err
	}

	return audit.NewStore(conn), nil
}

// NewVectorStore builds the configured vector backend.
func NewVectorStore(cfg *config.Config) (vector.Store, error) {
	switch cfg.VectorStorage {
	case "local":
		return vectorlocal.NewStore(
			vector.WithLocation(cfg.DataDir),
		)
	case "postgres":
		return vectorpg.NewStore(
			vector.WithLocation(cfg.PostgresDSN()),
		)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorStorage)
	}
}

// NewAttachmentStore builds the configured attachment backend. The postgres
// backend shares the relational connection provider.
func NewAttachmentStore(ctx context.Context, cfg *config.Config, conn db.DB) (attachment.Store, error) {
	switch cfg.AttachmentStorage {
	case "local":
		return attachmentlocal.NewStore(
			attachment.WithLocation(cfg.DataDir),
		)
	case "postgres":
		if conn == nil {
			return nil, fmt.Errorf("attachment backend postgres requires a connection provider")
		}
		if err := attachmentpg.Migrate(ctx, conn); err != nil {
			return nil, err
		}
		return attachmentpg.NewStore(conn)
	default:
		return nil, fmt.Errorf("unknown attachment backend %q", cfg.AttachmentStorage)
	}
}

// NewContentStore builds the configured content backend. The postgres backend
// shares the relational connection provider.
func NewContentStore(ctx context.Context, cfg *config.Config, conn db.DB) (content.Store, error) {
	switch cfg.ContentStorage {
	case "local":
		return contentlocal.NewStore(
			content.WithLocation(cfg.DataDir),
		)
	case "postgres":
		if conn == nil {
			return nil, fmt.Errorf("content backend postgres requires a connection provider")
		}
		if err := contentpg.Migrate(ctx, conn); err != nil {
			return nil, err
		}
		return contentpg.NewStore(conn)
	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.ContentStorage)
	}
}
