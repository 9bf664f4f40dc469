package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"
)

// PostgresStore persists pending events to PostgreSQL.
// Use it when several processes share one durable medium.
type PostgresStore struct {
	pool     *pgxpool.Pool
	ownsPool bool

	mu     sync.RWMutex
	closed bool
}

// NewPostgresStore connects to dsn, verifies the connection and creates
// the schema if needed. The store owns the pool and closes it on Close.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, ownsPool: true}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool. The caller keeps
// ownership of the pool and must call Migrate before first use.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the pending_events table and index.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			seq BIGSERIAL NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			data BYTEA NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_events_type_seq
			ON pending_events(event_type, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate pending_events: %w", err)
		}
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, eventType string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, seq, created_at, data
		FROM pending_events
		WHERE event_type = $1
		ORDER BY seq
	`, eventType)
	if err != nil {
		return nil, relayerrors.Transient(err, "load pending events")
	}
	defer rows.Close()

	recs := make([]Record, 0)
	for rows.Next() {
		rec := Record{Type: eventType}
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.CreatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan pending event: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, relayerrors.Transient(err, "iterate pending events")
	}

	return recs, nil
}

// Store implements Store.
func (s *PostgresStore) Store(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pending_events (id, event_type, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			data = EXCLUDED.data
	`, rec.ID, rec.Type, rec.Data)
	if err != nil {
		return relayerrors.Transient(err, "store pending event")
	}
	return nil
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM pending_events WHERE id = $1`, id); err != nil {
		return relayerrors.Transient(err, "remove pending event")
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}
