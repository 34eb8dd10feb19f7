package centroids

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/justestif/spotify-mood-it/internal/mood"
)

// FileStore keeps the most recent table as a JSON archive at Path.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store. A table saved under a different fingerprint is
// reported as ErrNotFound.
func (s *FileStore) Load(_ context.Context, fingerprint string) (*mood.CentroidTable, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading centroid archive: %w", err)
	}

	var table mood.CentroidTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing centroid archive %s: %w", s.Path, err)
	}
	if table.Fingerprint != fingerprint {
		return nil, ErrNotFound
	}
	return &table, nil
}

// Save implements Store. The archive is replaced atomically.
func (s *FileStore) Save(_ context.Context, table *mood.CentroidTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encoding centroid archive: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating centroid directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".centroids-*.json")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing centroid archive: %w", err)
	}
	return nil
}
