package attachment

import "context"

type Store interface {
	// StoreFile persists the bytes and their metadata record, returning a
	// store-generated file id. Many files may share a content id.
	StoreFile(ctx context.Context, projectID, contentType, contentID, filename string, content []byte, mimeType string) (string, error)

	// RetrieveFile returns the content bytes, mime type and original
	// filename. A missing record or missing content is an error.
	RetrieveFile(ctx context.Context, projectID, fileID string) ([]byte, string, string, error)

	// DeleteFile removes the content and the record together. Returns
	// false, not an error, when the file does not exist.
	DeleteFile(ctx context.Context, projectID, fileID string) (bool, error)

	// ListFiles returns all live records for the project, optionally
	// filtered by content type, newest first.
	ListFiles(ctx context.Context, projectID, contentType string) ([]FileRecord, error)
}
