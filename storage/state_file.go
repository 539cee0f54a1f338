package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"listing-feed/models"
)

// FileStateStore keeps scrape state as a JSON object keyed by listing URL.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a store backed by the JSON file at path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Load reads the state file. A missing file yields an empty collection.
func (s *FileStateStore) Load(_ context.Context) (map[string]models.StateEntry, error) {
	entries := make(map[string]models.StateEntry)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return entries, fmt.Errorf("state: read %q: %w", s.path, err)
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return make(map[string]models.StateEntry), fmt.Errorf("state: decode %q: %w", s.path, err)
	}
	for url, e := range entries {
		if e.URL == "" {
			e.URL = url
			entries[url] = e
		}
	}
	return entries, nil
}

// Save overwrites the state file with entries.
func (s *FileStateStore) Save(_ context.Context, entries map[string]models.StateEntry) error {
	err := writeFileAtomic(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	})
	if err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStateStore) Close() error {
	return nil
}
