// Package sqlitestore implements backend.Adapter on a SQLite database file.
// It is the single-binary alternative to pgstore behind the records API.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

//go:embed schema.sql
var schemaSQL string

var _ backend.Adapter = (*Store)(nil)

// Store persists records in the spray_records table of a SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - a single open connection, since SQLite has one writer
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, field, product, dose, notes
		FROM spray_records
		ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.ID, &r.Date, &r.Field, &r.Product, &r.Dose, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *Store) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	r := c.WithID(uuid.New().String())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spray_records (id, date, field, product, dose, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Date, r.Field, r.Product, r.Dose, r.Notes,
	)
	if err != nil {
		return record.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spray_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return backend.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spray_records`); err != nil {
		return fmt.Errorf("delete all records: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
