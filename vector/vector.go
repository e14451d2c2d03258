// Package vector defines the embedding store contract. Every backend, whether
// it scans a persisted collection in process or delegates ranking to a native
// indexed operator, must produce the same observable results: cosine scores,
// a threshold floor, descending order with stable ties, and a hard limit.
package vector

import "context"

// Record is one live embedding. At most one record exists per
// (project, content type, content id) natural key.
type Record struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	ContentType string         `json:"content_type"`
	ContentID   string         `json:"content_id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"embedding"`
	Metadata    map[string]any `json:"metadata"`
	Similarity  float64        `json:"similarity,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type Store interface {
	// StoreEmbedding upserts by natural key: any existing record for the
	// same (project, type, id) is replaced entirely. Returns the synthetic
	// id of the now-current record.
	StoreEmbedding(ctx context.Context, projectID, contentType, contentID, title, content string, embedding []float32, metadata map[string]any) (string, error)

	// SearchSimilar scores every embedding in the project against the
	// query, keeps scores >= threshold, sorts descending with stable ties,
	// and returns at most limit records annotated with their similarity.
	SearchSimilar(ctx context.Context, projectID string, query []float32, limit int, threshold float64) ([]Record, error)

	// DeleteEmbedding removes the record for the natural key. Returns
	// false, not an error, when no record exists.
	DeleteEmbedding(ctx context.Context, projectID, contentType, contentID string) (bool, error)

	// GetEmbeddings returns all live records for the project, optionally
	// filtered by content type (empty string means all). Order is stable
	// across repeated reads of unmodified data.
	GetEmbeddings(ctx context.Context, projectID, contentType string) ([]Record, error)
}
