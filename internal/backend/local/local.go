// Package local implements backend.Adapter as a single JSON array of
// records stored under one fixed key in a data directory on this machine.
//
// The whole array is rewritten on every mutation (temp file + rename) while
// holding an inter-process file lock, so two CLI invocations never interleave
// a read-modify-write. A payload that does not parse is treated as an empty
// list rather than an error.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// StorageKey is the fixed key the record array is stored under.
const StorageKey = "spuitregistraties"

// lockTimeout bounds how long an operation waits for the file lock.
const lockTimeout = 3 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides identifier generation (uuid by default).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

var _ backend.Adapter = (*Store)(nil)

// Store keeps records in <dir>/<StorageKey>.json.
type Store struct {
	filePath string
	fileLock *flock.Flock
	mu       sync.Mutex
	logger   *slog.Logger
	newID    func() string
}

// New opens (creating if needed) the data directory dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("local: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: storage unavailable: %w", err)
	}

	filePath := filepath.Join(dir, StorageKey+".json")
	s := &Store{
		filePath: filePath,
		fileLock: flock.New(filePath + ".lock"),
		logger:   slog.Default(),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file the records are stored in.
func (s *Store) Path() string {
	return s.filePath
}

// List returns every stored record. Records written without an identifier
// are assigned one and the array is rewritten.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	var out []record.Record
	err := s.withLock(ctx, func() error {
		records, err := s.read()
		if err != nil {
			return err
		}

		missing := false
		for i := range records {
			if records[i].ID == "" {
				records[i].ID = s.newID()
				missing = true
			}
		}
		if missing {
			if err := s.write(records); err != nil {
				return err
			}
		}

		out = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, c record.Candidate) (record.Record, error) {
	var created record.Record
	err := s.withLock(ctx, func() error {
		records, err := s.read()
		if err != nil {
			return err
		}

		created = c.WithID(s.newID())
		return s.write(append([]record.Record{created}, records...))
	})
	if err != nil {
		return record.Record{}, err
	}
	return created, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withLock(ctx, func() error {
		records, err := s.read()
		if err != nil {
			return err
		}

		for i, r := range records {
			if r.ID == id {
				return s.write(append(records[:i:i], records[i+1:]...))
			}
		}
		return backend.ErrNotFound
	})
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		return s.write([]record.Record{})
	})
}

// Close is a no-op; the lock is released after every operation.
func (s *Store) Close() error {
	return nil
}

// withLock serializes fn against this process and every other process
// sharing the data directory.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("local: failed to acquire lock: %w", err)
	}
	if !locked {
		return errors.New("local: could not acquire file lock")
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// read loads the stored array. A missing or empty file is an empty list;
// so is a payload that is not a JSON array of records.
func (s *Store) read() ([]record.Record, error) {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local: storage unavailable: %w", err)
	}
	if len(data) == 0 {
		return []record.Record{}, nil
	}

	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("ignoring unreadable local records",
			"path", s.filePath,
			"error", err,
		)
		return []record.Record{}, nil
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

// write replaces the stored array atomically.
func (s *Store) write(records []record.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("local: encode records: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("local: storage unavailable: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("local: storage unavailable: %w", err)
	}
	return nil
}
