package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/kbstore/attachment"
	"github.com/w-h-a/kbstore/db"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// postgresStore keeps attachment content inline as a base64-encoded text
// column so blobs ride along with the relational deployment. The SQL is
// engine-neutral and runs on any connection provider.
type postgresStore struct {
	conn db.DB
}

// Migrate creates the attachments table when it does not exist.
func Migrate(ctx context.Context, conn db.DB) error {
	err := conn.Execute(ctx, `CREATE TABLE IF NOT EXISTS attachments (
		file_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		content_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		mime_type TEXT,
		file_size INTEGER NOT NULL,
		file_content_base64 TEXT NOT NULL,
		storage_backend TEXT NOT NULL,
		metadata TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("attachment migrate: %w", err)
	}

	return nil
}

func (p *postgresStore) StoreFile(ctx context.Context, projectID, contentType, contentID, filename string, content []byte, mimeType string) (string, error) {
	fileID := uuid.New().String()

	var mime any
	if mimeType != "" {
		mime = mimeType
	}

	err := p.conn.Execute(
		ctx,
		`INSERT INTO attachments (file_id, project_id, content_type, content_id, filename, original_filename, mime_type, file_size, file_content_base64, storage_backend, metadata, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		fileID, projectID, contentType, contentID, filename, filename, mime,
		int64(len(content)), base64.StdEncoding.EncodeToString(content),
		"postgres", "{}", time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}

	return fileID, nil
}

func (p *postgresStore) RetrieveFile(ctx context.Context, projectID, fileID string) ([]byte, string, string, error) {
	rows, err := p.conn.Query(
		ctx,
		"SELECT file_content_base64, mime_type, original_filename FROM attachments WHERE project_id = ? AND file_id = ? LIMIT 1",
		projectID, fileID,
	)
	if err != nil {
		return nil, "", "", fmt.Errorf("retrieve attachment: %w", err)
	}
	if len(rows) == 0 {
		return nil, "", "", fmt.Errorf("attachment %s: %w", fileID, attachment.ErrNotFound)
	}

	row := rows[0]

	content, err := base64.StdEncoding.DecodeString(row.String("file_content_base64"))
	if err != nil {
		return nil, "", "", fmt.Errorf("attachment %s content is not decodable: %w", fileID, attachment.ErrIntegrity)
	}

	return content, row.String("mime_type"), row.String("original_filename"), nil
}

func (p *postgresStore) DeleteFile(ctx context.Context, projectID, fileID string) (bool, error) {
	rows, err := p.conn.Query(
		ctx,
		"SELECT file_id FROM attachments WHERE project_id = ? AND file_id = ? LIMIT 1",
		projectID, fileID,
	)
	if err != nil {
		return false, fmt.Errorf("delete attachment: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	err = p.conn.Execute(
		ctx,
		"DELETE FROM attachments WHERE project_id = ? AND file_id = ?",
		projectID, fileID,
	)
	if err != nil {
		return false, fmt.Errorf("delete attachment: %w", err)
	}

	return true, nil
}

func (p *postgresStore) ListFiles(ctx context.Context, projectID, contentType string) ([]attachment.FileRecord, error) {
	stmt := `SELECT file_id, project_id, content_type, content_id, filename, original_filename, mime_type, file_size, storage_backend, metadata, created_at
		FROM attachments WHERE project_id = ?`
	params := []any{projectID}

	if contentType != "" {
		stmt += " AND content_type = ?"
		params = append(params, contentType)
	}

	stmt += " ORDER BY created_at DESC"

	rows, err := p.conn.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	files := make([]attachment.FileRecord, 0, len(rows))
	for _, row := range rows {
		rec := attachment.FileRecord{
			FileID:           row.String("file_id"),
			ProjectID:        row.String("project_id"),
			ContentType:      row.String("content_type"),
			ContentID:        row.String("content_id"),
			Filename:         row.String("filename"),
			OriginalFilename: row.String("original_filename"),
			MimeType:         row.String("mime_type"),
			FileSize:         int64(row.Int("file_size")),
			StorageBackend:   row.String("storage_backend"),
			CreatedAt:        row.String("created_at"),
		}

		if raw := row.String("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
				rec.Metadata = map[string]any{}
			}
		}

		files = append(files, rec)
	}

	return files, nil
}

// NewStore builds the inline-encoded relational backend on the provider.
func NewStore(conn db.DB) (attachment.Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("pg attachment store: connection provider is required")
	}

	return &postgresStore{conn: conn}, nil
}
