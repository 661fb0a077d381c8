// Package backend defines the persistence capability shared by every
// record storage strategy.
//
// Implementations live in subpackages and are chosen at construction time:
//
//   - remote: the records HTTP API
//   - local: a JSON array in a file on this machine
//   - pgstore: PostgreSQL, used behind the HTTP API
//   - sqlitestore: SQLite, used behind the HTTP API
//   - mock: in-memory, for tests
//
// Every implementation returns records newest first and assigns the record
// identifier on Create.
package backend

import (
	"context"
	"errors"

	"github.com/JonMunkholm/spraylog/internal/record"
)

// ErrNotFound is returned by Delete when no record has the given identifier.
var ErrNotFound = errors.New("record not found")

// Adapter is the capability set every backing store provides.
type Adapter interface {
	// List returns every stored record, newest first.
	List(ctx context.Context) ([]record.Record, error)

	// Create stores the candidate and returns its canonical stored form.
	Create(ctx context.Context, c record.Candidate) (record.Record, error)

	// Delete removes the record with the given identifier.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}
