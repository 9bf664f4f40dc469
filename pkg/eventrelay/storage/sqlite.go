package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists pending events to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite event store.
// The path should be a file path (e.g., "./pending.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and a single
	// writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			seq INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pending_events_type_seq
		ON pending_events(event_type, seq)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, eventType string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, created_at, data
		FROM pending_events
		WHERE event_type = ?
		ORDER BY seq
	`, eventType)
	if err != nil {
		return nil, relayerrors.Transient(err, "load pending events")
	}
	defer rows.Close()

	recs := make([]Record, 0)
	for rows.Next() {
		rec := Record{Type: eventType}
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Seq, &createdAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan pending event: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, relayerrors.Transient(err, "iterate pending events")
	}

	return recs, nil
}

// Store implements Store.
func (s *SQLiteStore) Store(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// New rows take max(seq)+1; an overwrite keeps its seq and created_at.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_events (id, event_type, seq, created_at, data)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(seq) FROM pending_events), 0) + 1,
			?, ?
		)
		ON CONFLICT(id) DO UPDATE SET
			event_type = excluded.event_type,
			data = excluded.data
	`, rec.ID, rec.Type, time.Now().UTC().Format(time.RFC3339Nano), rec.Data)

	if err != nil {
		return relayerrors.Transient(err, "store pending event")
	}
	return nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_events WHERE id = ?
	`, id)
	if err != nil {
		return relayerrors.Transient(err, "remove pending event")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
