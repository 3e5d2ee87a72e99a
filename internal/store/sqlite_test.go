package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Upsert(ctx, testRecord("job-123")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	keys, err := s2.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if _, ok := keys["job-123"]; !ok {
		t.Error("expected record to survive reopen")
	}
}

func TestSQLiteUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("job-456")
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert (duplicate): %v", err)
	}

	recs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}

func TestSQLiteCorruptRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.db.Exec(`INSERT INTO records (id, data) VALUES ('bad', '{not json')`); err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	_, err := s.Load(ctx)
	require.True(t, errors.Is(err, model.ErrStoreCorrupt), "err = %v", err)
}

func TestSQLiteTracksSummaryColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("1")
	require.NoError(t, s.Upsert(ctx, rec))
	require.NoError(t, rec.ApplySummary(model.SummaryResult{Summary: model.Succeeded("ok")}))
	require.NoError(t, s.Upsert(ctx, rec))

	var state int
	var sent bool
	require.NoError(t, s.db.QueryRow(`SELECT summary_state, sent FROM records WHERE id = '1'`).Scan(&state, &sent))
	require.Equal(t, int(model.StateSucceeded), state)
	require.False(t, sent)
}
