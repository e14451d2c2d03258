// Package db defines the connection provider contract shared by every
// relational store in this module. A provider owns one logical connection (or
// pool) to a single engine; writes are serialized per provider, queries run
// against whatever pool depth the engine was configured with.
package db

import "context"

// Row is one result record, keyed by column name.
type Row map[string]any

// DB is implemented by each relational engine. Statements are written with
// `?` placeholders; providers rebind them if their driver needs another style.
type DB interface {
	// Execute runs a mutating statement and commits before returning.
	Execute(ctx context.Context, stmt string, params ...any) error

	// ExecuteMany runs the statement once per row, committed as one batch.
	ExecuteMany(ctx context.Context, stmt string, rows [][]any) error

	// Query returns the matching rows. An empty result set is an empty
	// slice, never an error.
	Query(ctx context.Context, stmt string, params ...any) ([]Row, error)

	// Close releases all held connections. Calls after Close are undefined.
	Close() error
}

func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func (r Row) Int(key string) int {
	switch v := r[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// IsNull reports whether the column is present but NULL.
func (r Row) IsNull(key string) bool {
	v, ok := r[key]
	return ok && v == nil
}
