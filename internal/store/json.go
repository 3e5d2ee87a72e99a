package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/amishk599/vacancyfeed/internal/model"
)

var _ model.RecordStore = (*JSONStore)(nil)

// JSONStore persists the whole record collection as one JSON array snapshot.
// Every write rewrites the file through a temp file and a rename, so a reader
// sees either the previous snapshot or the new one, never a mix.
type JSONStore struct {
	path string
	coll *collection // nil until first read
}

// NewJSONStore returns a store backed by the file at path. The file does not
// need to exist; a missing file is an empty store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the snapshot file path.
func (s *JSONStore) Path() string { return s.path }

// Load re-reads the snapshot from disk and returns all records in insertion order.
func (s *JSONStore) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.read()
	if err != nil {
		return nil, err
	}
	s.coll = c
	return c.all(), nil
}

func (s *JSONStore) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	c, err := s.cached(ctx)
	if err != nil {
		return nil, err
	}
	return c.keys(), nil
}

// Upsert merges rec into the collection and rewrites the snapshot before returning.
func (s *JSONStore) Upsert(ctx context.Context, rec model.Record) error {
	c, err := s.cached(ctx)
	if err != nil {
		return err
	}
	next := c.clone()
	if err := next.upsert(rec); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	if err := s.write(next.records); err != nil {
		return err
	}
	s.coll = next
	return nil
}

// SaveAll replaces the snapshot with records.
func (s *JSONStore) SaveAll(ctx context.Context, records []model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := newCollection(records)
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	if err := s.write(c.records); err != nil {
		return err
	}
	s.coll = c
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) cached(ctx context.Context) (*collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.coll != nil {
		return s.coll, nil
	}
	c, err := s.read()
	if err != nil {
		return nil, err
	}
	s.coll = c
	return c, nil
}

func (s *JSONStore) read() (*collection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newCollection(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", s.path, err)
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrStoreCorrupt, s.path, err)
	}
	c, err := newCollection(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrStoreCorrupt, s.path, err)
	}
	return c, nil
}

func (s *JSONStore) write(records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshal store %s: %w", s.path, err)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".vacancyfeed-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
