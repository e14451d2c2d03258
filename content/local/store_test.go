package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/kbstore/content"
)

func newTestStore(t *testing.T) (content.Store, string) {
	t.Helper()

	dir := t.TempDir()

	store, err := NewStore(
		content.WithLocation(dir),
	)
	require.NoError(t, err)

	return store, dir
}

func TestNewStoreRequiresLocation(t *testing.T) {
	_, err := NewStore()
	require.Error(t, err)
}

func TestCreateAndGetProject(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)

	err := store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Support KB", Active: true})
	require.NoError(t, err)

	project, err := store.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Support KB", project.Name)
	assert.True(t, project.Active)

	_, err = os.Stat(filepath.Join(dir, "proj_mapping.txt"))
	require.NoError(t, err)

	_, err = store.GetProject(ctx, "missing")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestCreateOrUpdateProjectReplacesFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Old", Active: true}))
	require.NoError(t, store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "New", Active: false}))

	project, err := store.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "New", project.Name)
	assert.False(t, project.Active)

	projects, err := store.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestListProjectsActiveOnly(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Live", Active: true}))
	require.NoError(t, store.CreateOrUpdateProject(ctx, content.Project{ID: "p-2", Name: "Archived", Active: false}))

	projects, err := store.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	projects, err = store.ListProjects(ctx, true)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p-1", projects[0].ID)
}

func TestDeleteProjectRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)

	require.NoError(t, store.CreateOrUpdateProject(ctx, content.Project{ID: "p-1", Name: "Doomed", Active: true}))

	_, err := store.UpsertFaqs(ctx, "p-1", []content.FAQ{{Question: "q", Answer: "a"}})
	require.NoError(t, err)

	deleted, err := store.DeleteProject(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteProject(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.GetProject(ctx, "p-1")
	require.ErrorIs(t, err, content.ErrNotFound)

	_, err = os.Stat(filepath.Join(dir, "p-1"))
	require.True(t, os.IsNotExist(err))
}

func TestUpsertFaqsCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	result, err := store.UpsertFaqs(ctx, "p-1", []content.FAQ{
		{Question: "How do I reset my password?", Answer: "Use the reset link."},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Empty(t, result.Updated)

	id := result.Created[0]

	created, err := store.GetFaqByID(ctx, "p-1", id)
	require.NoError(t, err)
	assert.Equal(t, "p-1", created.ProjectID)
	assert.NotEmpty(t, created.CreatedAt)

	result, err = store.UpsertFaqs(ctx, "p-1", []content.FAQ{
		{ID: id, Question: "How do I reset my password?", Answer: "Contact support."},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, []string{id}, result.Updated)

	updated, err := store.GetFaqByID(ctx, "p-1", id)
	require.NoError(t, err)
	assert.Equal(t, "Contact support.", updated.Answer)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpsertFaqsUnknownIDCreatesNewEntry(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	result, err := store.UpsertFaqs(ctx, "p-1", []content.FAQ{
		{ID: "does-not-exist", Question: "q", Answer: "a"},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.NotEqual(t, "does-not-exist", result.Created[0])

	_, err = store.GetFaqByID(ctx, "p-1", "does-not-exist")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestDeleteFaq(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	result, err := store.UpsertFaqs(ctx, "p-1", []content.FAQ{{Question: "q", Answer: "a"}})
	require.NoError(t, err)
	id := result.Created[0]

	deleted, err := store.DeleteFaq(ctx, "p-1", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteFaq(ctx, "p-1", id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpsertKbArticles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	result, err := store.UpsertKbArticles(ctx, "p-1", []content.KBArticle{
		{Title: "Getting started", Content: "Install and configure."},
		{Title: "Troubleshooting", Content: "Check the logs."},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	article, err := store.GetKbArticleByID(ctx, "p-1", result.Created[1])
	require.NoError(t, err)
	assert.Equal(t, "Troubleshooting", article.Title)

	deleted, err := store.DeleteKbArticle(ctx, "p-1", result.Created[0])
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.GetKbArticleByID(ctx, "p-1", result.Created[0])
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestFaqAndKbCollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)

	_, err := store.UpsertFaqs(ctx, "p-1", []content.FAQ{{Question: "q", Answer: "a"}})
	require.NoError(t, err)
	_, err = store.UpsertKbArticles(ctx, "p-1", []content.KBArticle{{Title: "t", Content: "c"}})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "p-1", "p-1.faq.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "p-1", "p-1.kb.json"))
	require.NoError(t, err)
}
