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
	"github.com/w-h-a/kbstore/attachment"
	"github.com/w-h-a/kbstore/internal/scopelock"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// localStore writes blobs into the <base>/<project>/files/ subdirectory under
// a renamed extension-preserving locator, with a metadata.json sidecar keyed
// by file id in the scope directory.
type localStore struct {
	options attachment.Options
	baseDir string
	locks   *scopelock.Set
}

func (s *localStore) StoreFile(ctx context.Context, projectID, contentType, contentID, filename string, content []byte, mimeType string) (string, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.filesDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create files directory: %w", err)
	}

	fileID := uuid.New().String()

	storageName := fileID
	if ext := filepath.Ext(filename); ext != "" {
		storageName += ext
	}

	if err := os.WriteFile(filepath.Join(dir, storageName), content, 0o644); err != nil {
		return "", fmt.Errorf("persist attachment content: %w", err)
	}

	records, err := s.load(projectID)
	if err != nil {
		return "", err
	}

	records[fileID] = attachment.FileRecord{
		FileID:           fileID,
		ProjectID:        projectID,
		ContentType:      contentType,
		ContentID:        contentID,
		Filename:         storageName,
		OriginalFilename: filename,
		MimeType:         mimeType,
		FileSize:         int64(len(content)),
		StorageBackend:   "local",
		CreatedAt:        time.Now().UTC().Format(timestampLayout),
	}

	if err := s.save(projectID, records); err != nil {
		return "", err
	}

	return fileID, nil
}

func (s *localStore) RetrieveFile(ctx context.Context, projectID, fileID string) ([]byte, string, string, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.load(projectID)
	if err != nil {
		return nil, "", "", err
	}

	rec, ok := records[fileID]
	if !ok {
		return nil, "", "", fmt.Errorf("attachment %s: %w", fileID, attachment.ErrNotFound)
	}

	content, err := os.ReadFile(filepath.Join(s.filesDir(projectID), rec.Filename))
	if err != nil {
		return nil, "", "", fmt.Errorf("attachment %s has a record but no content: %w", fileID, attachment.ErrIntegrity)
	}

	return content, rec.MimeType, rec.OriginalFilename, nil
}

func (s *localStore) DeleteFile(ctx context.Context, projectID, fileID string) (bool, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.load(projectID)
	if err != nil {
		return false, err
	}

	rec, ok := records[fileID]
	if !ok {
		return false, nil
	}

	blob := filepath.Join(s.filesDir(projectID), rec.Filename)
	if err := os.Remove(blob); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("remove attachment content: %w", err)
	}

	delete(records, fileID)

	if err := s.save(projectID, records); err != nil {
		return false, err
	}

	return true, nil
}

func (s *localStore) ListFiles(ctx context.Context, projectID, contentType string) ([]attachment.FileRecord, error) {
	lock := s.locks.Get(projectID)
	lock.Lock()
	records, err := s.load(projectID)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	files := make([]attachment.FileRecord, 0, len(records))
	for _, rec := range records {
		if contentType != "" && rec.ContentType != contentType {
			continue
		}
		files = append(files, rec)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CreatedAt != files[j].CreatedAt {
			return files[i].CreatedAt > files[j].CreatedAt
		}
		return files[i].FileID < files[j].FileID
	})

	return files, nil
}

func (s *localStore) filesDir(projectID string) string {
	return filepath.Join(s.baseDir, projectID, "files")
}

func (s *localStore) metadataFile(projectID string) string {
	return filepath.Join(s.baseDir, projectID, "metadata.json")
}

func (s *localStore) load(projectID string) (map[string]attachment.FileRecord, error) {
	data, err := os.ReadFile(s.metadataFile(projectID))
	if os.IsNotExist(err) {
		return map[string]attachment.FileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read attachment index: %w", err)
	}

	records := map[string]attachment.FileRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return map[string]attachment.FileRecord{}, nil
	}

	return records, nil
}

func (s *localStore) save(projectID string, records map[string]attachment.FileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode attachment index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.metadataFile(projectID)), 0o755); err != nil {
		return fmt.Errorf("create scope directory: %w", err)
	}

	if err := os.WriteFile(s.metadataFile(projectID), data, 0o644); err != nil {
		return fmt.Errorf("persist attachment index: %w", err)
	}

	return nil
}

// NewStore builds the filesystem backend rooted at the location directory.
func NewStore(opts ...attachment.Option) (attachment.Store, error) {
	options := attachment.NewOptions(opts...)

	if options.Location == "" {
		return nil, fmt.Errorf("local attachment store: data directory is required")
	}

	if err := os.MkdirAll(options.Location, 0o755); err != nil {
		return nil, fmt.Errorf("local attachment store: create %s: %w", options.Location, err)
	}

	return &localStore{
		options: options,
		baseDir: options.Location,
		locks:   scopelock.New(),
	}, nil
}
