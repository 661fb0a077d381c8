// Package recordstore owns the authoritative, in-memory list of spraying
// records and keeps it consistent with a backend.Adapter.
//
// # Lifecycle
//
// A Store is constructed around one adapter, loaded, mutated, and closed:
//
//	store := recordstore.New(adapter)
//	defer store.Close()
//	if err := store.Load(ctx); err != nil { ... }
//	created, err := store.Create(ctx, candidate)
//
// # State
//
// A Store starts Idle, enters Loading on Load and ends in Ready or Error.
// Error is left only by calling Load again. Mutations are accepted in Ready.
//
// # Consistency
//
// Writes are confirmed before they are shown: Create prepends the record
// returned by the adapter only after the adapter succeeded, and a failed
// Create, Delete or DeleteAll leaves the list untouched. Load and every
// mutation pass through a one-slot gate, so they never interleave. Readers
// always receive a copy of a complete list.
package recordstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/export"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// State is the load state of a Store.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent, read-only view of a Store.
type Snapshot struct {
	State   State
	Records []record.Record
	// Err is the *LoadError when State is StateError.
	Err error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxWait sets how long a mutation queues behind another before failing
// with ErrBusy.
func WithMaxWait(d time.Duration) Option {
	return func(s *Store) {
		s.gate = newGate(d)
	}
}

// Store is the single source of truth for the current record list.
type Store struct {
	adapter backend.Adapter
	gate    *gate
	logger  *slog.Logger

	mu      sync.RWMutex
	state   State
	records []record.Record
	loadErr error
	closed  bool

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// New creates an idle Store backed by adapter.
func New(adapter backend.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		gate:    newGate(DefaultMaxWait),
		logger:  slog.Default(),
		records: []record.Record{},
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current load state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Records returns a copy of the current record list, newest first.
func (s *Store) Records() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return record.Clone(s.records)
}

// Snapshot returns the current state and a copy of the record list.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:   s.state,
		Records: record.Clone(s.records),
		Err:     s.loadErr,
	}
}

// Load replaces the record list with the adapter's current list. On failure
// the store enters StateError and Load returns a *LoadError; the previously
// loaded list is kept but should be considered stale.
func (s *Store) Load(ctx context.Context) error {
	if err := s.gate.acquire(ctx); err != nil {
		return err
	}
	defer s.gate.release()

	if err := s.update(func() error {
		if s.closed {
			return ErrClosed
		}
		s.state = StateLoading
		s.loadErr = nil
		return nil
	}); err != nil {
		return err
	}

	records, err := s.adapter.List(ctx)
	if err != nil {
		loadErr := &LoadError{Err: err}
		s.logger.Warn("load records failed", "error", err)
		_ = s.update(func() error {
			s.state = StateError
			s.loadErr = loadErr
			return nil
		})
		return loadErr
	}

	s.logger.Debug("records loaded", "count", len(records))
	return s.update(func() error {
		s.state = StateReady
		s.records = record.Clone(records)
		return nil
	})
}

// Create stores c and, once the adapter confirms, prepends the stored record.
func (s *Store) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	if err := c.Validate(); err != nil {
		return record.Record{}, err
	}

	var created record.Record
	err := s.mutate(ctx, OpCreate, "", func() error {
		r, err := s.adapter.Create(ctx, c)
		if err != nil {
			return err
		}
		created = r
		return nil
	}, func() {
		s.records = append([]record.Record{created}, s.records...)
	})
	if err != nil {
		return record.Record{}, err
	}
	return created, nil
}

// Delete removes the record with identifier id once the adapter confirms.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, OpDelete, id, func() error {
		return s.adapter.Delete(ctx, id)
	}, func() {
		for i, r := range s.records {
			if r.ID == id {
				s.records = append(s.records[:i:i], s.records[i+1:]...)
				return
			}
		}
	})
}

// DeleteAll removes every record once the adapter confirms. Callers obtain
// the user's confirmation before calling it.
func (s *Store) DeleteAll(ctx context.Context) error {
	return s.mutate(ctx, OpDeleteAll, "", func() error {
		return s.adapter.DeleteAll(ctx)
	}, func() {
		s.records = []record.Record{}
	})
}

// mutate runs write against the adapter and, only if it succeeds, applies
// commit to the in-memory list.
func (s *Store) mutate(ctx context.Context, op Op, id string, write func() error, commit func()) error {
	if err := s.gate.acquire(ctx); err != nil {
		return err
	}
	defer s.gate.release()

	s.mu.RLock()
	closed, state := s.closed, s.state
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if state != StateReady {
		return ErrNotReady
	}

	if err := write(); err != nil {
		s.logger.Warn("record mutation failed", "op", op, "id", id, "error", err)
		return &MutationError{Op: op, ID: id, Err: err}
	}

	s.logger.Debug("record mutation applied", "op", op, "id", id)
	return s.update(func() error {
		commit()
		return nil
	})
}

// update applies fn under the write lock and notifies subscribers when fn
// succeeds.
func (s *Store) update(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// Export encodes the current list as CSV. It returns export.ErrNothingToExport
// when the list is empty.
func (s *Store) Export() ([]byte, error) {
	return export.Encode(s.Records())
}

// Busy reports whether a load or mutation is in flight.
func (s *Store) Busy() bool {
	return s.gate.busy()
}

// Subscribe returns a channel that receives a Snapshot after every state
// change and every applied mutation. Only the latest snapshot is buffered; a
// slow reader skips intermediate ones. The returned function unsubscribes.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.subs == nil {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Close closes subscriber channels and the adapter. Later operations return
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.subMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subs = nil
	s.subMu.Unlock()

	return s.adapter.Close()
}
