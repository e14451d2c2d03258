package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/w-h-a/kbstore/db"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register pg provider with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type postgresDB struct {
	options db.Options
	conn    *sql.DB
	mtx     sync.Mutex
}

func (p *postgresDB) Execute(ctx context.Context, stmt string, params ...any) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if _, err := p.conn.ExecContext(ctx, Rebind(stmt), params...); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	return nil
}

func (p *postgresDB) ExecuteMany(ctx context.Context, stmt string, rows [][]any) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, Rebind(stmt))
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

func (p *postgresDB) Query(ctx context.Context, stmt string, params ...any) ([]db.Row, error) {
	rows, err := p.conn.QueryContext(ctx, Rebind(stmt), params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return db.ScanRows(rows)
}

func (p *postgresDB) Close() error {
	return p.conn.Close()
}

// Rebind converts `?` placeholders to the `$n` style lib/pq expects. Question
// marks inside single-quoted literals are left alone.
func Rebind(stmt string) string {
	var sb strings.Builder
	sb.Grow(len(stmt) + 8)

	n := 0
	quoted := false

	for _, r := range stmt {
		switch {
		case r == '\'':
			quoted = !quoted
			sb.WriteRune(r)
		case r == '?' && !quoted:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// NewDB connects to the configured postgres instance through the instrumented
// driver. An unreachable engine fails construction, not first use.
func NewDB(opts ...db.Option) (db.DB, error) {
	options := db.NewOptions(opts...)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		options.User, options.Password, options.Host, options.Port, options.Database,
	)

	conn, err := sql.Open(DRIVER, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	conn.SetMaxOpenConns(options.PoolSize + options.MaxOverflow)
	conn.SetMaxIdleConns(options.PoolSize)

	if err := conn.PingContext(options.Context); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: ping %s:%d/%s: %w", options.Host, options.Port, options.Database, err)
	}

	if err := otelsql.RecordStats(conn); err != nil {
		slog.WarnContext(options.Context, "failed to initialize pg pool instrumentation", "error", err)
	}

	return &postgresDB{
		options: options,
		conn:    conn,
	}, nil
}
