package engine

import (
	"context"
	"sync"

	"github.com/marloweapp/marlowe/internal/event"
)

// Status is the durability state of a dispatched batch.
type Status string

const (
	// StatusPending means the batch has been applied in memory but not
	// yet written to the log.
	StatusPending Status = "pending"
	// StatusDurable means the batch is in the log.
	StatusDurable Status = "durable"
	// StatusFailed means the append failed; see Receipt.Err.
	StatusFailed Status = "failed"
)

// Receipt tracks a dispatched batch from apply to durability.
type Receipt struct {
	events []event.Event

	mu     sync.Mutex
	status Status
	err    error
	done   chan struct{}
}

func newReceipt(events []event.Event) *Receipt {
	return &Receipt{
		events: events,
		status: StatusPending,
		done:   make(chan struct{}),
	}
}

// Events returns the batch this receipt tracks.
func (r *Receipt) Events() []event.Event { return r.events }

// Status reports the current durability state.
func (r *Receipt) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Err returns the append error, if any. Only meaningful once the
// status is no longer pending.
func (r *Receipt) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the batch is durable or failed, or the context ends.
// Returns the append error (nil on durable).
func (r *Receipt) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Receipt) resolve(err error) {
	r.mu.Lock()
	if err != nil {
		r.status = StatusFailed
		r.err = err
	} else {
		r.status = StatusDurable
	}
	r.mu.Unlock()
	close(r.done)
}
