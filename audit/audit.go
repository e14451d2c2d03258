// Package audit manages auth sessions and request traces on top of a
// relational connection provider. Sessions are created once and only ever
// disabled; traces are append-only.
package audit

import (
	"errors"
	"time"
)

// ErrNotFound indicates that the requested keyed entity does not exist.
var ErrNotFound = errors.New("not found")

// Session is an issued auth session. Disabled starts false and is the only
// field that ever changes.
type Session struct {
	ID         string
	TokenJTI   string
	ClientName string
	Scopes     string // comma-separated
	IssuedAt   string
	ExpiresAt  string
	IPLock     string // empty when the session is not IP-locked
	Disabled   bool
}

// Trace is one recorded request.
type Trace struct {
	ID          string
	TS          string
	Method      string
	Path        string
	Status      int
	LatencyMS   float64
	IP          string
	UA          string
	HeadersSlim string
	Query       string
	BodySHA256  string
	TokenSub    string // empty means NULL
	Error       string // empty means NULL
	Metadata    string // raw metadata blob, empty when absent
}

// TraceFilter narrows ListTraces results. Zero values mean "no filter";
// every set predicate is AND-combined.
type TraceFilter struct {
	Since         string
	Limit         int
	Status        *int
	PathSubstring string
	IP            string
	HasError      *bool
	SinceSeconds  *int
}

// PathCount is one (path, hits) pair in a metrics summary.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Summary aggregates traces over a trailing window.
type Summary struct {
	Window       string         `json:"window"`
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	TopPaths     []PathCount    `json:"top_paths"`
	Unauthorized int            `json:"unauthorized"`
	P95LatencyMS *float64       `json:"p95_latency_ms"`
}

func timestampFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
