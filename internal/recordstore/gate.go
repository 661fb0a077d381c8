package recordstore

// gate.go serializes operations that replace or mutate the record sequence.
//
// The gate is a one-slot semaphore. A second mutation issued while one is
// outstanding queues for up to maxWait and then fails with ErrBusy, so no
// update is lost and no two mutations interleave.

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when another operation held the store for longer than
// the configured wait. Clients may retry after a short delay.
var ErrBusy = errors.New("another record operation is still in progress, please try again")

// DefaultMaxWait is how long a mutation waits for the one before it.
const DefaultMaxWait = 30 * time.Second

type gate struct {
	slot    chan struct{}
	maxWait time.Duration
}

func newGate(maxWait time.Duration) *gate {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &gate{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// acquire takes the slot. The caller must call release when done.
func (g *gate) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		return nil
	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own wait limit.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
}

func (g *gate) release() {
	<-g.slot
}

// busy reports whether an operation currently holds the slot.
func (g *gate) busy() bool {
	return len(g.slot) > 0
}
