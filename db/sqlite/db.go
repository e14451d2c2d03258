package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/w-h-a/kbstore/db"
)

type sqliteDB struct {
	options db.Options
	conn    *sql.DB
	mtx     sync.Mutex
}

func (s *sqliteDB) Execute(ctx context.Context, stmt string, params ...any) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, err := s.conn.ExecContext(ctx, stmt, params...); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	return nil
}

func (s *sqliteDB) ExecuteMany(ctx context.Context, stmt string, rows [][]any) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("execute many: %w", err)
	}
	defer prepared.Close()

	for _, row := range rows {
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("execute many: %w", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteDB) Query(ctx context.Context, stmt string, params ...any) ([]db.Row, error) {
	rows, err := s.conn.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return db.ScanRows(rows)
}

func (s *sqliteDB) Close() error {
	return s.conn.Close()
}

// NewDB opens the sqlite database file at the configured path, creating its
// directory when needed. Construction fails if the file cannot be opened.
func NewDB(opts ...db.Option) (db.DB, error) {
	options := db.NewOptions(opts...)

	if options.Path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	if dir := filepath.Dir(options.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", options.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", options.Path, err)
	}

	// LIKE must stay case-sensitive so substring filters behave the same
	// as on the postgres engine.
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA case_sensitive_like = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(options.Context); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", options.Path, err)
	}

	return &sqliteDB{
		options: options,
		conn:    conn,
	}, nil
}
