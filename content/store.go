package content

import "context"

type Store interface {
	// CreateOrUpdateProject upserts the project by id.
	CreateOrUpdateProject(ctx context.Context, project Project) error

	// GetProject returns the project or ErrNotFound.
	GetProject(ctx context.Context, id string) (Project, error)

	// ListProjects returns projects, excluding inactive ones unless
	// activeOnly is false.
	ListProjects(ctx context.Context, activeOnly bool) ([]Project, error)

	// DeleteProject removes the project and the FAQ/KB records this store
	// owns for it. Embeddings and attachments belong to their own stores;
	// sequencing those deletions is the caller's responsibility.
	DeleteProject(ctx context.Context, id string) (bool, error)

	// UpsertFaqs replaces entries whose id exists within the project and
	// inserts the rest under generated ids.
	UpsertFaqs(ctx context.Context, projectID string, faqs []FAQ) (UpsertResult, error)

	GetFaqByID(ctx context.Context, projectID, id string) (FAQ, error)

	// DeleteFaq reports whether an entry was actually removed.
	DeleteFaq(ctx context.Context, projectID, id string) (bool, error)

	// UpsertKbArticles behaves like UpsertFaqs for KB articles.
	UpsertKbArticles(ctx context.Context, projectID string, articles []KBArticle) (UpsertResult, error)

	GetKbArticleByID(ctx context.Context, projectID, id string) (KBArticle, error)

	DeleteKbArticle(ctx context.Context, projectID, id string) (bool, error)
}
