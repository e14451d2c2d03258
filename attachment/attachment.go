// Package attachment defines the binary blob store contract. A record and its
// content bytes live and die together: one without the other is a backend
// integrity bug and is reported as an error, never as empty content.
package attachment

import "errors"

var (
	// ErrNotFound indicates the file id has no record in the scope.
	ErrNotFound = errors.New("file not found")

	// ErrIntegrity indicates a record without content or content that can
	// no longer be decoded.
	ErrIntegrity = errors.New("attachment integrity violation")
)

// FileRecord is the metadata sidecar for one stored blob. Filename is the
// storage-internal locator; OriginalFilename is preserved verbatim.
type FileRecord struct {
	FileID           string         `json:"file_id"`
	ProjectID        string         `json:"project_id"`
	ContentType      string         `json:"content_type"`
	ContentID        string         `json:"content_id"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"original_filename"`
	MimeType         string         `json:"mime_type"`
	FileSize         int64          `json:"file_size"`
	StorageBackend   string         `json:"storage_backend"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        string         `json:"created_at"`
}
