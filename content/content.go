// Package content defines the store contract for the higher-level domain
// entities: projects and the FAQ and knowledge-base collections scoped to
// them. Writes are upserts keyed by explicit or store-generated ids.
package content

import "errors"

// ErrNotFound indicates the requested keyed entity does not exist.
var ErrNotFound = errors.New("not found")

// Project partitions all per-tenant data across every store family.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FAQ is one question/answer entry within a project.
type FAQ struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Tags      string         `json:"tags"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// KBArticle is one knowledge-base article within a project.
type KBArticle struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Tags      string         `json:"tags"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// UpsertResult partitions a batch upsert into created and updated ids, each
// preserving the input order of its entries.
type UpsertResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
}
