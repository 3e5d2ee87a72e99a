package store

import (
	"context"
	"sync"

	"github.com/amishk599/vacancyfeed/internal/model"
)

var _ model.RecordStore = (*MemoryStore)(nil)

// MemoryStore keeps records in memory only. It backs dry runs, where the
// pipeline must see existing records but must not persist anything.
type MemoryStore struct {
	mu   sync.Mutex
	coll *collection
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	c, _ := newCollection(nil)
	return &MemoryStore{coll: c}
}

// NewMemoryStoreFrom returns a MemoryStore seeded with a copy of records.
func NewMemoryStoreFrom(records []model.Record) (*MemoryStore, error) {
	c, err := newCollection(records)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{coll: c}, nil
}

func (s *MemoryStore) Load(_ context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.all(), nil
}

func (s *MemoryStore) ExistingKeys(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.keys(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.coll.clone()
	if err := next.upsert(rec); err != nil {
		return err
	}
	s.coll = next
	return nil
}

func (s *MemoryStore) SaveAll(_ context.Context, records []model.Record) error {
	c, err := newCollection(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.coll = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
