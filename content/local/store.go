package local

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/kbstore/content"
	"github.com/w-h-a/kbstore/internal/scopelock"
)

const (
	mappingFile     = "proj_mapping.txt"
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// localStore keeps the project index in a pipe-delimited mapping file at the
// data root, one `id|name|active` record per line, and each project's FAQ/KB
// collections as JSON arrays inside the project directory.
type localStore struct {
	options    content.Options
	baseDir    string
	mappingMtx sync.Mutex
	locks      *scopelock.Set
}

func (s *localStore) CreateOrUpdateProject(ctx context.Context, project content.Project) error {
	s.mappingMtx.Lock()
	defer s.mappingMtx.Unlock()

	projects, err := s.loadMapping()
	if err != nil {
		return err
	}

	updated := false
	for i, p := range projects {
		if p.ID == project.ID {
			projects[i].Name = project.Name
			projects[i].Active = project.Active
			updated = true
			break
		}
	}

	if !updated {
		projects = append(projects, content.Project{
			ID:     project.ID,
			Name:   project.Name,
			Active: project.Active,
		})
	}

	return s.saveMapping(projects)
}

func (s *localStore) GetProject(ctx context.Context, id string) (content.Project, error) {
	s.mappingMtx.Lock()
	defer s.mappingMtx.Unlock()

	projects, err := s.loadMapping()
	if err != nil {
		return content.Project{}, err
	}

	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}

	return content.Project{}, fmt.Errorf("project %s: %w", id, content.ErrNotFound)
}

func (s *localStore) ListProjects(ctx context.Context, activeOnly bool) ([]content.Project, error) {
	s.mappingMtx.Lock()
	defer s.mappingMtx.Unlock()

	projects, err := s.loadMapping()
	if err != nil {
		return nil, err
	}

	if !activeOnly {
		return projects, nil
	}

	var active []content.Project
	for _, p := range projects {
		if p.Active {
			active = append(active, p)
		}
	}

	return active, nil
}

// DeleteProject drops the mapping line and removes the project directory,
// which carries the FAQ/KB collections along with it.
func (s *localStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	s.mappingMtx.Lock()
	defer s.mappingMtx.Unlock()

	projects, err := s.loadMapping()
	if err != nil {
		return false, err
	}

	kept := projects[:0]
	for _, p := range projects {
		if p.ID == id {
			continue
		}
		kept = append(kept, p)
	}

	if len(kept) == len(projects) {
		return false, nil
	}

	if err := s.saveMapping(kept); err != nil {
		return false, err
	}

	if err := os.RemoveAll(filepath.Join(s.baseDir, id)); err != nil {
		return false, fmt.Errorf("remove project directory: %w", err)
	}

	return true, nil
}

func (s *localStore) UpsertFaqs(ctx context.Context, projectID string, faqs []content.FAQ) (content.UpsertResult, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	existing := loadCollection[content.FAQ](s.faqFile(projectID))
	byID := map[string]int{}
	for i, faq := range existing {
		byID[faq.ID] = i
	}

	now := time.Now().UTC().Format(timestampLayout)

	var result content.UpsertResult
	for _, faq := range faqs {
		if i, ok := byID[faq.ID]; ok && faq.ID != "" {
			faq.ProjectID = projectID
			faq.CreatedAt = existing[i].CreatedAt
			faq.UpdatedAt = now
			existing[i] = faq
			result.Updated = append(result.Updated, faq.ID)
			continue
		}

		faq.ID = uuid.New().String()
		faq.ProjectID = projectID
		faq.CreatedAt = now
		faq.UpdatedAt = now
		byID[faq.ID] = len(existing)
		existing = append(existing, faq)
		result.Created = append(result.Created, faq.ID)
	}

	if err := saveCollection(s.faqFile(projectID), existing); err != nil {
		return content.UpsertResult{}, err
	}

	return result, nil
}

func (s *localStore) GetFaqByID(ctx context.Context, projectID, id string) (content.FAQ, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	for _, faq := range loadCollection[content.FAQ](s.faqFile(projectID)) {
		if faq.ID == id {
			return faq, nil
		}
	}

	return content.FAQ{}, fmt.Errorf("faq %s: %w", id, content.ErrNotFound)
}

func (s *localStore) DeleteFaq(ctx context.Context, projectID, id string) (bool, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	existing := loadCollection[content.FAQ](s.faqFile(projectID))

	kept := existing[:0]
	for _, faq := range existing {
		if faq.ID == id {
			continue
		}
		kept = append(kept, faq)
	}

	if len(kept) == len(existing) {
		return false, nil
	}

	if err := saveCollection(s.faqFile(projectID), kept); err != nil {
		return false, err
	}

	return true, nil
}

func (s *localStore) UpsertKbArticles(ctx context.Context, projectID string, articles []content.KBArticle) (content.UpsertResult, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	existing := loadCollection[content.KBArticle](s.kbFile(projectID))
	byID := map[string]int{}
	for i, article := range existing {
		byID[article.ID] = i
	}

	now := time.Now().UTC().Format(timestampLayout)

	var result content.UpsertResult
	for _, article := range articles {
		if i, ok := byID[article.ID]; ok && article.ID != "" {
			article.ProjectID = projectID
			article.CreatedAt = existing[i].CreatedAt
			article.UpdatedAt = now
			existing[i] = article
			result.Updated = append(result.Updated, article.ID)
			continue
		}

		article.ID = uuid.New().String()
		article.ProjectID = projectID
		article.CreatedAt = now
		article.UpdatedAt = now
		byID[article.ID] = len(existing)
		existing = append(existing, article)
		result.Created = append(result.Created, article.ID)
	}

	if err := saveCollection(s.kbFile(projectID), existing); err != nil {
		return content.UpsertResult{}, err
	}

	return result, nil
}

func (s *localStore) GetKbArticleByID(ctx context.Context, projectID, id string) (content.KBArticle, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	for _, article := range loadCollection[content.KBArticle](s.kbFile(projectID)) {
		if article.ID == id {
			return article, nil
		}
	}

	return content.KBArticle{}, fmt.Errorf("kb article %s: %w", id, content.ErrNotFound)
}

func (s *localStore) DeleteKbArticle(ctx context.Context, projectID, id string) (bool, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	existing := loadCollection[content.KBArticle](s.kbFile(projectID))

	kept := existing[:0]
	for _, article := range existing {
		if article.ID == id {
			continue
		}
		kept = append(kept, article)
	}

	if len(kept) == len(existing) {
		return false, nil
	}

	if err := saveCollection(s.kbFile(projectID), kept); err != nil {
		return false, err
	}

	return true, nil
}

func (s *localStore) faqFile(projectID string) string {
	return filepath.Join(s.baseDir, projectID, projectID+".faq.json")
}

func (s *localStore) kbFile(projectID string) string {
	return filepath.Join(s.baseDir, projectID, projectID+".kb.json")
}

func (s *localStore) loadMapping() ([]content.Project, error) {
	file, err := os.Open(filepath.Join(s.baseDir, mappingFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project mapping: %w", err)
	}
	defer file.Close()

	var projects []content.Project

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}

		projects = append(projects, content.Project{
			ID:     parts[0],
			Name:   parts[1],
			Active: parts[2] == "1",
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read project mapping: %w", err)
	}

	return projects, nil
}

func (s *localStore) saveMapping(projects []content.Project) error {
	var sb strings.Builder
	for _, p := range projects {
		active := "0"
		if p.Active {
			active = "1"
		}
		fmt.Fprintf(&sb, "%s|%s|%s\n", p.ID, p.Name, active)
	}

	path := filepath.Join(s.baseDir, mappingFile)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("persist project mapping: %w", err)
	}

	return nil
}

// loadCollection reads a JSON array collection. A missing or malformed file
// degrades to an empty collection.
func loadCollection[T any](path string) []T {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	return items
}

func saveCollection[T any](path string, items []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist collection: %w", err)
	}

	return nil
}

// NewStore builds the file-based backend rooted at the location directory.
func NewStore(opts ...content.Option) (content.Store, error) {
	options := content.NewOptions(opts...)

	if options.Location == "" {
		return nil, fmt.Errorf("local content store: data directory is required")
	}

	if err := os.MkdirAll(options.Location, 0o755); err != nil {
		return nil, fmt.Errorf("local content store: create %s: %w", options.Location, err)
	}

	return &localStore{
		options: options,
		baseDir: options.Location,
		locks:   scopelock.New(),
	}, nil
}
