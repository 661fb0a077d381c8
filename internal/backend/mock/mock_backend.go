// Package mock provides an in-memory backend.Adapter with failure injection.
package mock

import (
	"context"
	"strconv"
	"sync"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// Op names an adapter operation for failure injection.
type Op string

const (
	OpList      Op = "list"
	OpCreate    Op = "create"
	OpDelete    Op = "delete"
	OpDeleteAll Op = "delete_all"
)

var _ backend.Adapter = (*Mock)(nil)

// Mock is an in-memory adapter. Identifiers are sequential numbers.
type Mock struct {
	mu      sync.Mutex
	records []record.Record
	nextID  int
	fail    map[Op]error
	calls   map[Op]int
	closed  bool

	// Hook, if set, runs at the start of every operation outside the lock.
	// Tests use it to hold an operation in flight.
	Hook func(op Op)
}

// New returns a mock seeded with records (given newest first).
func New(seed ...record.Record) *Mock {
	m := &Mock{
		records: record.Clone(seed),
		nextID:  len(seed) + 1,
		fail:    make(map[Op]error),
		calls:   make(map[Op]int),
	}
	return m
}

// FailWith makes every later call of op return err. A nil err clears it.
func (m *Mock) FailWith(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls reports how many times op has been invoked.
func (m *Mock) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mock) begin(op Op) error {
	if m.Hook != nil {
		m.Hook(op)
	}
	m.mu.Lock()
	m.calls[op]++
	return m.fail[op]
}

func (m *Mock) List(ctx context.Context) ([]record.Record, error) {
	err := m.begin(OpList)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return record.Clone(m.records), nil
}

func (m *Mock) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	err := m.begin(OpCreate)
	defer m.mu.Unlock()
	if err != nil {
		return record.Record{}, err
	}
	r := c.WithID(strconv.Itoa(m.nextID))
	m.nextID++
	m.records = append([]record.Record{r}, m.records...)
	return r, nil
}

func (m *Mock) Delete(ctx context.Context, id string) error {
	err := m.begin(OpDelete)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i:i], m.records[i+1:]...)
			return nil
		}
	}
	return backend.ErrNotFound
}

func (m *Mock) DeleteAll(ctx context.Context) error {
	err := m.begin(OpDeleteAll)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	m.records = nil
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
