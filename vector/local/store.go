package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/kbstore/internal/scopelock"
	"github.com/w-h-a/kbstore/vector"
)

// localStore keeps one JSON array of embeddings per project under
// <base>/<project>/embeddings.json and scans it in process.
type localStore struct {
	options vector.Options
	baseDir string
	locks   *scopelock.Set
}

func (s *localStore) StoreEmbedding(ctx context.Context, projectID, contentType, contentID, title, content string, embedding []float32, metadata map[string]any) (string, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	records := s.load(projectID)

	// Natural-key upsert: drop any record for the same content first.
	kept := records[:0]
	for _, rec := range records {
		if rec.ContentType == contentType && rec.ContentID == contentID {
			continue
		}
		kept = append(kept, rec)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	cpy := make([]float32, len(embedding))
	copy(cpy, embedding)

	rec := vector.Record{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		ContentType: contentType,
		ContentID:   contentID,
		Title:       title,
		Content:     content,
		Embedding:   cpy,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	kept = append(kept, rec)

	if err := s.save(projectID, kept); err != nil {
		return "", err
	}

	return rec.ID, nil
}

func (s *localStore) SearchSimilar(ctx context.Context, projectID string, query []float32, limit int, threshold float64) ([]vector.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	lock := s.locks.Get(projectID)
	lock.Lock()
	records := s.load(projectID)
	lock.Unlock()

	var results []vector.Record
	for _, rec := range records {
		similarity := vector.CosineSimilarity(query, rec.Embedding)
		if similarity < threshold {
			continue
		}
		rec.Similarity = similarity
		results = append(results, rec)
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (s *localStore) DeleteEmbedding(ctx context.Context, projectID, contentType, contentID string) (bool, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	records := s.load(projectID)

	kept := records[:0]
	for _, rec := range records {
		if rec.ContentType == contentType && rec.ContentID == contentID {
			continue
		}
		kept = append(kept, rec)
	}

	if len(kept) == len(records) {
		return false, nil
	}

	if err := s.save(projectID, kept); err != nil {
		return false, err
	}

	return true, nil
}

func (s *localStore) GetEmbeddings(ctx context.Context, projectID, contentType string) ([]vector.Record, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	records := s.load(projectID)
	lock.Unlock()

	if contentType == "" {
		return records, nil
	}

	var filtered []vector.Record
	for _, rec := range records {
		if rec.ContentType == contentType {
			filtered = append(filtered, rec)
		}
	}

	return filtered, nil
}

func (s *localStore) collectionFile(projectID string) string {
	return filepath.Join(s.baseDir, projectID, "embeddings.json")
}

// load reads the project's collection. A missing or malformed file degrades
// to an empty collection.
func (s *localStore) load(projectID string) []vector.Record {
	data, err := os.ReadFile(s.collectionFile(projectID))
	if err != nil {
		return nil
	}

	var records []vector.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}

	return records
}

func (s *localStore) save(projectID string, records []vector.Record) error {
	file := s.collectionFile(projectID)

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create scope directory: %w", err)
	}

	if records == nil {
		records = []vector.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}

	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}

	return nil
}

// NewStore builds the file-based backend rooted at the location directory.
func NewStore(opts ...vector.Option) (vector.Store, error) {
	options := vector.NewOptions(opts...)

	if options.Location == "" {
		return nil, fmt.Errorf("local vector store: data directory is required")
	}

	if err := os.MkdirAll(options.Location, 0o755); err != nil {
		return nil, fmt.Errorf("local vector store: create %s: %w", options.Location, err)
	}

	return &localStore{
		options: options,
		baseDir: options.Location,
		locks:   scopelock.New(),
	}, nil
}
