package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/amishk599/vacancyfeed/internal/model"

	_ "modernc.org/sqlite"
)

var _ model.RecordStore = (*SQLiteStore)(nil)

// SQLiteStore keeps one row per record, keyed by id. Each Upsert touches a
// single row inside a transaction instead of rewriting the whole collection.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// records table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Serialize access; the pipeline is single-writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS records (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		data          TEXT NOT NULL,
		summary_state INTEGER NOT NULL DEFAULT 0,
		sent          INTEGER NOT NULL DEFAULT 0,
		first_seen    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns every record ordered by first insertion.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec model.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", model.ErrStoreCorrupt, id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return records, nil
}

// ExistingKeys returns the ids of all stored records.
func (s *SQLiteStore) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM records")
	if err != nil {
		return nil, fmt.Errorf("loading record ids: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning record id: %w", err)
		}
		keys[id] = struct{}{}
	}
	return keys, rows.Err()
}

// Upsert inserts rec, or merges it into the stored row with the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	defer tx.Rollback()

	if err := upsertTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert record %s: commit: %w", rec.ID, err)
	}
	return nil
}

// SaveAll upserts every record in one transaction. Rows are never deleted.
func (s *SQLiteStore) SaveAll(ctx context.Context, records []model.Record) error {
	if _, err := newCollection(records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := upsertTx(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save records: commit: %w", err)
	}
	return nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, rec model.Record) error {
	var data string
	err := tx.QueryRowContext(ctx, "SELECT data FROM records WHERE id = ?", rec.ID).Scan(&data)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("reading record %s: %w", rec.ID, err)
	default:
		var stored model.Record
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return fmt.Errorf("%w: record %s: %v", model.ErrStoreCorrupt, rec.ID, err)
		}
		if err := stored.Merge(rec); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
		rec = stored
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, data, summary_state, sent) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   data = excluded.data,
		   summary_state = excluded.summary_state,
		   sent = excluded.sent`,
		rec.ID, string(encoded), int(rec.Summary.State), rec.Sent,
	)
	if err != nil {
		return fmt.Errorf("writing record %s: %w", rec.ID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
