package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/kbstore/content"
	"github.com/w-h-a/kbstore/db"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// postgresStore layers upsert-by-id content semantics on the connection
// provider. The SQL is engine-neutral.
type postgresStore struct {
	conn db.DB
}

// Migrate creates the content tables when they do not exist.
func Migrate(ctx context.Context, conn db.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faq_entries (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kb_articles (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if err := conn.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("content migrate: %w", err)
		}
	}

	return nil
}

func (p *postgresStore) CreateOrUpdateProject(ctx context.Context, project content.Project) error {
	now := time.Now().UTC().Format(timestampLayout)

	active := 0
	if project.Active {
		active = 1
	}

	err := p.conn.Execute(
		ctx,
		`INSERT INTO projects (id, name, active, created_at, updated_at) VALUES (?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active, updated_at = excluded.updated_at`,
		project.ID, project.Name, active, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", project.ID, err)
	}

	return nil
}

func (p *postgresStore) GetProject(ctx context.Context, id string) (content.Project, error) {
	rows, err := p.conn.Query(ctx, "SELECT * FROM projects WHERE id = ? LIMIT 1", id)
	if err != nil {
		return content.Project{}, fmt.Errorf("get project: %w", err)
	}
	if len(rows) == 0 {
		return content.Project{}, fmt.Errorf("project %s: %w", id, content.ErrNotFound)
	}

	return projectFromRow(rows[0]), nil
}

func (p *postgresStore) ListProjects(ctx context.Context, activeOnly bool) ([]content.Project, error) {
	stmt := "SELECT * FROM projects"
	if activeOnly {
		stmt += " WHERE active = 1"
	}
	stmt += " ORDER BY created_at ASC, id ASC"

	rows, err := p.conn.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]content.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, projectFromRow(row))
	}

	return projects, nil
}

func (p *postgresStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	rows, err := p.conn.Query(ctx, "SELECT id FROM projects WHERE id = ? LIMIT 1", id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	cascade := []string{
		"DELETE FROM faq_entries WHERE project_id = ?",
		"DELETE FROM kb_articles WHERE project_id = ?",
		"DELETE FROM projects WHERE id = ?",
	}
	for _, stmt := range cascade {
		if err := p.conn.Execute(ctx, stmt, id); err != nil {
			return false, fmt.Errorf("delete project %s: %w", id, err)
		}
	}

	return true, nil
}

func (p *postgresStore) UpsertFaqs(ctx context.Context, projectID string, faqs []content.FAQ) (content.UpsertResult, error) {
	now := time.Now().UTC().Format(timestampLayout)

	var result content.UpsertResult
	for _, faq := range faqs {
		meta, err := marshalMetadata(faq.Metadata)
		if err != nil {
			return content.UpsertResult{}, err
		}

		exists, err := p.exists(ctx, "SELECT id FROM faq_entries WHERE project_id = ? AND id = ? LIMIT 1", projectID, faq.ID)
		if err != nil {
			return content.UpsertResult{}, fmt.Errorf("upsert faqs: %w", err)
		}

		if exists {
			err = p.conn.Execute(
				ctx,
				"UPDATE faq_entries SET question = ?, answer = ?, tags = ?, source = ?, metadata = ?, updated_at = ? WHERE project_id = ? AND id = ?",
				faq.Question, faq.Answer, faq.Tags, faq.Source, meta, now, projectID, faq.ID,
			)
			if err != nil {
				return content.UpsertResult{}, fmt.Errorf("update faq %s: %w", faq.ID, err)
			}
			result.Updated = append(result.Updated, faq.ID)
			continue
		}

		id := uuid.New().String()
		err = p.conn.Execute(
			ctx,
			"INSERT INTO faq_entries (id, project_id, question, answer, tags, source, metadata, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
			id, projectID, faq.Question, faq.Answer, faq.Tags, faq.Source, meta, now, now,
		)
		if err != nil {
			return content.UpsertResult{}, fmt.Errorf("insert faq: %w", err)
		}
		result.Created = append(result.Created, id)
	}

	return result, nil
}

func (p *postgresStore) GetFaqByID(ctx context.Context, projectID, id string) (content.FAQ, error) {
	rows, err := p.conn.Query(ctx, "SELECT * FROM faq_entries WHERE project_id = ? AND id = ? LIMIT 1", projectID, id)
	if err != nil {
		return content.FAQ{}, fmt.Errorf("get faq: %w", err)
	}
	if len(rows) == 0 {
		return content.FAQ{}, fmt.Errorf("faq %s: %w", id, content.ErrNotFound)
	}

	row := rows[0]

	return content.FAQ{
		ID:        row.String("id"),
		ProjectID: row.String("project_id"),
		Question:  row.String("question"),
		Answer:    row.String("answer"),
		Tags:      row.String("tags"),
		Source:    row.String("source"),
		Metadata:  unmarshalMetadata(row.String("metadata")),
		CreatedAt: row.String("created_at"),
		UpdatedAt: row.String("updated_at"),
	}, nil
}

func (p *postgresStore) DeleteFaq(ctx context.Context, projectID, id string) (bool, error) {
	return p.deleteByID(ctx, "faq_entries", projectID, id)
}

func (p *postgresStore) UpsertKbArticles(ctx context.Context, projectID string, articles []content.KBArticle) (content.UpsertResult, error) {
	now := time.Now().UTC().Format(timestampLayout)

	var result content.UpsertResult
	for _, article := range articles {
		meta, err := marshalMetadata(article.Metadata)
		if err != nil {
			return content.UpsertResult{}, err
		}

		exists, err := p.exists(ctx, "SELECT id FROM kb_articles WHERE project_id = ? AND id = ? LIMIT 1", projectID, article.ID)
		if err != nil {
			return content.UpsertResult{}, fmt.Errorf("upsert kb articles: %w", err)
		}

		if exists {
			err = p.conn.Execute(
				ctx,
				"UPDATE kb_articles SET title = ?, content = ?, tags = ?, source = ?, metadata = ?, updated_at = ? WHERE project_id = ? AND id = ?",
				article.Title, article.Content, article.Tags, article.Source, meta, now, projectID, article.ID,
			)
			if err != nil {
				return content.UpsertResult{}, fmt.Errorf("update kb article %s: %w", article.ID, err)
			}
			result.Updated = append(result.Updated, article.ID)
			continue
		}

		id := uuid.New().String()
		err = p.conn.Execute(
			ctx,
			"INSERT INTO kb_articles (id, project_id, title, content, tags, source, metadata, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
			id, projectID, article.Title, article.Content, article.Tags, article.Source, meta, now, now,
		)
		if err != nil {
			return content.UpsertResult{}, fmt.Errorf("insert kb article: %w", err)
		}
		result.Created = append(result.Created, id)
	}

	return result, nil
}

func (p *postgresStore) GetKbArticleByID(ctx context.Context, projectID, id string) (content.KBArticle, error) {
	rows, err := p.conn.Query(ctx, "SELECT * FROM kb_articles WHERE project_id = ? AND id = ? LIMIT 1", projectID, id)
	if err != nil {
		return content.KBArticle{}, fmt.Errorf("get kb article: %w", err)
	}
	if len(rows) == 0 {
		return content.KBArticle{}, fmt.Errorf("kb article %s: %w", id, content.ErrNotFound)
	}

	row := rows[0]

	return content.KBArticle{
		ID:        row.String("id"),
		ProjectID: row.String("project_id"),
		Title:     row.String("title"),
		Content:   row.String("content"),
		Tags:      row.String("tags"),
		Source:    row.String("source"),
		Metadata:  unmarshalMetadata(row.String("metadata")),
		CreatedAt: row.String("created_at"),
		UpdatedAt: row.String("updated_at"),
	}, nil
}

func (p *postgresStore) DeleteKbArticle(ctx context.Context, projectID, id string) (bool, error) {
	return p.deleteByID(ctx, "kb_articles", projectID, id)
}

func (p *postgresStore) exists(ctx context.Context, stmt string, params ...any) (bool, error) {
	rows, err := p.conn.Query(ctx, stmt, params...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (p *postgresStore) deleteByID(ctx context.Context, table, projectID, id string) (bool, error) {
	exists, err := p.exists(ctx, "SELECT id FROM "+table+" WHERE project_id = ? AND id = ? LIMIT 1", projectID, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	if !exists {
		return false, nil
	}

	if err := p.conn.Execute(ctx, "DELETE FROM "+table+" WHERE project_id = ? AND id = ?", projectID, id); err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}

	return true, nil
}

func projectFromRow(row db.Row) content.Project {
	return content.Project{
		ID:        row.String("id"),
		Name:      row.String("name"),
		Active:    row.Bool("active"),
		CreatedAt: row.String("created_at"),
		UpdatedAt: row.String("updated_at"),
	}
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// unmarshalMetadata degrades malformed stored metadata to an empty mapping.
func unmarshalMetadata(raw string) map[string]any {
	metadata := map[string]any{}
	if raw == "" {
		return metadata
	}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return map[string]any{}
	}
	return metadata
}

// NewStore builds the relational backend on the provider.
func NewStore(conn db.DB) (content.Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("pg content store: connection provider is required")
	}

	return &postgresStore{conn: conn}, nil
}
