package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/w-h-a/kbstore/db"
)

// Store runs session and trace operations against a connection provider.
type Store struct {
	conn db.DB
}

func NewStore(conn db.DB) *Store {
	return &Store{conn: conn}
}

// Migrate creates the session and trace tables when they do not exist. The
// DDL is engine-neutral; production schemas are usually owned by external
// migration tooling and this is a no-op there.
func Migrate(ctx context.Context, conn db.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			token_jti TEXT NOT NULL UNIQUE,
			client_name TEXT NOT NULL,
			scopes TEXT NOT NULL,
			issued_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			ip_lock TEXT,
			disabled INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status INTEGER NOT NULL,
			latency_ms REAL NOT NULL,
			ip TEXT NOT NULL,
			ua TEXT NOT NULL,
			headers_slim TEXT NOT NULL,
			query TEXT NOT NULL,
			body_sha256 TEXT NOT NULL,
			token_sub TEXT,
			error TEXT,
			metadata TEXT
		)`,
	}

	for _, stmt := range schema {
		if err := conn.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("audit migrate: %w", err)
		}
	}

	return nil
}

// CreateSession inserts a new session with disabled=false. A duplicate id or
// jti surfaces the engine's constraint violation.
func (s *Store) CreateSession(ctx context.Context, session Session) error {
	var ipLock any
	if session.IPLock != "" {
		ipLock = session.IPLock
	}

	err := s.conn.Execute(
		ctx,
		"INSERT INTO sessions(id, token_jti, client_name, scopes, issued_at, expires_at, ip_lock, disabled) VALUES (?,?,?,?,?,?,?,0)",
		session.ID, session.TokenJTI, session.ClientName, session.Scopes,
		session.IssuedAt, session.ExpiresAt, ipLock,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}

	return nil
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (Session, error) {
	return s.getSession(ctx, "SELECT * FROM sessions WHERE id = ? LIMIT 1", id)
}

func (s *Store) GetSessionByJTI(ctx context.Context, jti string) (Session, error) {
	return s.getSession(ctx, "SELECT * FROM sessions WHERE token_jti = ? LIMIT 1", jti)
}

func (s *Store) getSession(ctx context.Context, stmt string, key string) (Session, error) {
	rows, err := s.conn.Query(ctx, stmt, key)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(rows) == 0 {
		return Session{}, fmt.Errorf("session %s: %w", key, ErrNotFound)
	}

	row := rows[0]

	return Session{
		ID:         row.String("id"),
		TokenJTI:   row.String("token_jti"),
		ClientName: row.String("client_name"),
		Scopes:     row.String("scopes"),
		IssuedAt:   row.String("issued_at"),
		ExpiresAt:  row.String("expires_at"),
		IPLock:     row.String("ip_lock"),
		Disabled:   row.Bool("disabled"),
	}, nil
}

// DisableSession sets disabled=true. Disabling an unknown or already disabled
// session is a no-op, not an error.
func (s *Store) DisableSession(ctx context.Context, id string) error {
	if err := s.conn.Execute(ctx, "UPDATE sessions SET disabled = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("disable session %s: %w", id, err)
	}
	return nil
}

// InsertTrace appends one trace record.
func (s *Store) InsertTrace(ctx context.Context, trace Trace) error {
	var tokenSub, errText any
	if trace.TokenSub != "" {
		tokenSub = trace.TokenSub
	}
	if trace.Error != "" {
		errText = trace.Error
	}

	err := s.conn.Execute(
		ctx,
		`INSERT INTO traces(id, ts, method, path, status, latency_ms, ip, ua, headers_slim, query, body_sha256, token_sub, error)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		trace.ID, trace.TS, trace.Method, trace.Path, trace.Status, trace.LatencyMS,
		trace.IP, trace.UA, trace.HeadersSlim, trace.Query, trace.BodySHA256,
		tokenSub, errText,
	)
	if err != nil {
		return fmt.Errorf("insert trace %s: %w", trace.ID, err)
	}

	return nil
}

func (s *Store) GetTraceByID(ctx context.Context, id string) (Trace, error) {
	rows, err := s.conn.Query(ctx, "SELECT * FROM traces WHERE id = ? LIMIT 1", id)
	if err != nil {
		return Trace{}, fmt.Errorf("get trace: %w", err)
	}
	if len(rows) == 0 {
		return Trace{}, fmt.Errorf("trace %s: %w", id, ErrNotFound)
	}

	return traceFromRow(rows[0]), nil
}

// ListTraces returns traces ordered by timestamp descending. Since and
// SinceSeconds are independent filters; when both are set both apply.
func (s *Store) ListTraces(ctx context.Context, filter TraceFilter) ([]Trace, error) {
	stmt := "SELECT * FROM traces WHERE 1=1"
	var params []any

	if filter.Since != "" {
		stmt += " AND ts >= ?"
		params = append(params, filter.Since)
	}

	if filter.SinceSeconds != nil {
		cutoff := timestampFormat(time.Now().Add(-time.Duration(*filter.SinceSeconds) * time.Second))
		stmt += " AND ts >= ?"
		params = append(params, cutoff)
	}

	if filter.Status != nil {
		stmt += " AND status = ?"
		params = append(params, *filter.Status)
	}

	if filter.PathSubstring != "" {
		stmt += " AND path LIKE ?"
		params = append(params, "%"+filter.PathSubstring+"%")
	}

	if filter.IP != "" {
		stmt += " AND ip = ?"
		params = append(params, filter.IP)
	}

	if filter.HasError != nil {
		if *filter.HasError {
			stmt += " AND error IS NOT NULL"
		} else {
			stmt += " AND error IS NULL"
		}
	}

	stmt += " ORDER BY ts DESC"

	if filter.Limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, filter.Limit)
	}

	rows, err := s.conn.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}

	traces := make([]Trace, 0, len(rows))
	for _, row := range rows {
		traces = append(traces, traceFromRow(row))
	}

	return traces, nil
}

// MetricsSummary aggregates traces whose timestamp falls within the trailing
// window. Status codes outside 200-599 count toward the total but land in no
// bucket. P95 latency is nearest-rank over the ascending latency list.
func (s *Store) MetricsSummary(ctx context.Context, windowSeconds int) (Summary, error) {
	since := timestampFormat(time.Now().Add(-time.Duration(windowSeconds) * time.Second))

	rows, err := s.conn.Query(
		ctx,
		"SELECT status, path, latency_ms FROM traces WHERE ts >= ? ORDER BY ts ASC",
		since,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("metrics summary: %w", err)
	}

	byStatus := map[string]int{"2xx": 0, "4xx": 0, "5xx": 0}
	pathCounts := map[string]int{}
	pathOrder := map[string]int{}
	var latencies []float64
	unauthorized := 0

	for _, row := range rows {
		status := row.Int("status")
		switch {
		case status >= 200 && status < 300:
			byStatus["2xx"]++
		case status >= 400 && status < 500:
			byStatus["4xx"]++
		case status >= 500 && status < 600:
			byStatus["5xx"]++
		}
		if status == 401 {
			unauthorized++
		}

		path := row.String("path")
		if _, seen := pathOrder[path]; !seen {
			pathOrder[path] = len(pathOrder)
		}
		pathCounts[path]++

		latencies = append(latencies, row.Float("latency_ms"))
	}

	var p95 *float64
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		idx := int(0.95 * float64(len(latencies)-1))
		p95 = &latencies[idx]
	}

	top := make([]PathCount, 0, len(pathCounts))
	for path, count := range pathCounts {
		top = append(top, PathCount{Path: path, Count: count})
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return pathOrder[top[i].Path] < pathOrder[top[j].Path]
	})
	if len(top) > 10 {
		top = top[:10]
	}

	window := fmt.Sprintf("%dm", windowSeconds/60)
	if windowSeconds%3600 == 0 {
		window = fmt.Sprintf("%dh", windowSeconds/3600)
	}

	return Summary{
		Window:       window,
		Total:        len(rows),
		ByStatus:     byStatus,
		TopPaths:     top,
		Unauthorized: unauthorized,
		P95LatencyMS: p95,
	}, nil
}

// AddTraceMetadata attaches a metadata blob to an existing trace. This is
// best-effort: a missing metadata column or unknown trace never fails the
// caller's request path.
func (s *Store) AddTraceMetadata(ctx context.Context, traceID string, metadata map[string]any) {
	if traceID == "" {
		return
	}

	blob, err := json.Marshal(metadata)
	if err != nil {
		slog.DebugContext(ctx, "trace metadata not serializable", "trace_id", traceID, "error", err)
		return
	}

	if err := s.conn.Execute(ctx, "UPDATE traces SET metadata = ? WHERE id = ?", string(blob), traceID); err != nil {
		slog.DebugContext(ctx, "trace metadata not attached", "trace_id", traceID, "error", err)
	}
}

func traceFromRow(row db.Row) Trace {
	return Trace{
		ID:          row.String("id"),
		TS:          row.String("ts"),
		Method:      row.String("method"),
		Path:        row.String("path"),
		Status:      row.Int("status"),
		LatencyMS:   row.Float("latency_ms"),
		IP:          row.String("ip"),
		UA:          row.String("ua"),
		HeadersSlim: row.String("headers_slim"),
		Query:       row.String("query"),
		BodySHA256:  row.String("body_sha256"),
		TokenSub:    row.String("token_sub"),
		Error:       row.String("error"),
		Metadata:    row.String("metadata"),
	}
}
