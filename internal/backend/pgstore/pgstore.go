// Package pgstore implements backend.Adapter on PostgreSQL using a pgx
// connection pool. It backs the records HTTP API.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

var _ backend.Adapter = (*Store)(nil)

// Store persists records in the spray_records table.
type Store struct {
	pool    *pgxpool.Pool
	ownPool bool
}

// Open connects to databaseURL, verifies the connection and ensures the
// schema exists. The returned Store owns the pool.
func Open(ctx context.Context, databaseURL string, pc PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if pc.MaxConns > 0 {
		poolConfig.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		poolConfig.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.ownPool = true
	return s, nil
}

// New wraps an existing pool and ensures the schema exists.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD'), field, product, dose, notes
		FROM spray_records
		ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (record.Record, error) {
		var r record.Record
		err := row.Scan(&r.ID, &r.Date, &r.Field, &r.Product, &r.Dose, &r.Notes)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

func (s *Store) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	r := c.WithID(uuid.New().String())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO spray_records (id, date, field, product, dose, notes)
		VALUES ($1, $2::date, $3, $4, $5, $6)`,
		r.ID, r.Date, r.Field, r.Product, r.Dose, r.Notes,
	)
	if err != nil {
		return record.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM spray_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM spray_records`); err != nil {
		return fmt.Errorf("delete all records: %w", err)
	}
	return nil
}

// Close closes the pool if the Store opened it.
func (s *Store) Close() error {
	if s.ownPool {
		s.pool.Close()
	}
	return nil
}
