package recordstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by mutations attempted before a successful Load.
	ErrNotReady = errors.New("record store is not ready")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("record store is closed")
)

// Op names a mutating operation.
type Op string

const (
	OpCreate    Op = "create"
	OpDelete    Op = "delete"
	OpDeleteAll Op = "delete_all"
)

// opMessages are the user-facing prefixes shown when an operation fails.
var opMessages = map[Op]string{
	OpCreate:    "Opslaan mislukt",
	OpDelete:    "Verwijderen mislukt",
	OpDeleteAll: "Wissen mislukt",
}

// LoadError reports that the backing store could not list the records.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load records: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadFailedMessage prefixes the cause of a failed load.
const LoadFailedMessage = "Kan gegevens niet laden"

// Message is the description shown in place of the record list.
func (e *LoadError) Message() string {
	if e.Err == nil {
		return LoadFailedMessage
	}
	return LoadFailedMessage + ": " + e.Err.Error()
}

// MutationError reports that the backing store rejected a write. The record
// sequence is unchanged when it is returned.
type MutationError struct {
	Op  Op
	ID  string // record identifier, for deletes
	Err error
}

func (e *MutationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Message is the user-facing description, e.g. "Opslaan mislukt: <cause>".
func (e *MutationError) Message() string {
	prefix, ok := opMessages[e.Op]
	if !ok {
		prefix = string(e.Op) + " failed"
	}
	return prefix + ": " + e.Err.Error()
}
