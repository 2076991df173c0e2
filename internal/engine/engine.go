// Package engine is the document store: it holds the materialized
// document, routes event batches through the reducers, and schedules
// appends to the durable log.
//
// Thread-safety model:
//   - Dispatch: called by the single logical actor (one goroutine)
//   - Document: safe from any goroutine (snapshot read under lock)
//   - the durability queue is drained by exactly one appender goroutine,
//     preserving batch order
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// appendQueueSize bounds the number of batches awaiting durability.
// Dispatch blocks when the queue is full rather than dropping a batch.
const appendQueueSize = 64

// Engine is an explicit store handle. Construct one per database; there is
// no package-level instance, so tests can run isolated engines side by side.
type Engine struct {
	store  *store.Store
	logger *slog.Logger

	mu  sync.RWMutex
	doc document.Document

	jobs chan appendJob
	done chan struct{}
	wg   sync.WaitGroup

	failedMu sync.Mutex
	failed   []FailedBatch
}

type appendJob struct {
	events  []event.Event
	receipt *Receipt
}

// FailedBatch records a batch whose durability step failed after the
// in-memory apply already succeeded. There is no automatic retry; the
// caller decides what recovery looks like.
type FailedBatch struct {
	Events []event.Event
	Err    error
}

// New creates an Engine over the given store and starts the appender.
// The engine starts with an empty document; call Rebuild to materialize
// the persisted log.
func New(s *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:  s,
		logger: logger,
		doc:    document.Empty(),
		jobs:   make(chan appendJob, appendQueueSize),
		done:   make(chan struct{}),
	}
	go e.runAppender()
	return e
}

// Document returns the current materialized document snapshot.
// The document is copy-on-write, so the returned value is safe to read
// while later dispatches build new versions.
func (e *Engine) Document() document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Dispatch applies a batch to the document through the matching reducers
// in the given order, then schedules the batch for append to the log.
//
// The apply phase is all-or-nothing: the first reducer failure aborts the
// whole batch and leaves the document unchanged. The batch is NOT
// re-sorted; the caller is responsible for correct ordering within a
// single batch.
//
// A nil error means the in-memory apply succeeded. Durability is
// asynchronous: consult the returned Receipt for pending/durable/failed.
func (e *Engine) Dispatch(ctx context.Context, events []event.Event) (*Receipt, error) {
	if len(events) == 0 {
		r := newReceipt(nil)
		r.resolve(nil)
		return r, nil
	}

	e.mu.Lock()
	next := e.doc
	for i, ev := range events {
		var err error
		next, err = document.Apply(next, ev)
		if err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("dispatch batch aborted at event %d: %w", i, err)
		}
	}
	e.doc = next
	e.mu.Unlock()

	// Hand off to the appender. The caller already has its success; from
	// here on a failure surfaces through the receipt and the log only.
	receipt := newReceipt(events)
	e.wg.Add(1)
	select {
	case e.jobs <- appendJob{events: events, receipt: receipt}:
	case <-ctx.Done():
		// The apply already happened; queue the batch regardless so the
		// document and log cannot diverge on a caller timeout.
		e.jobs <- appendJob{events: events, receipt: receipt}
	}
	return receipt, nil
}

// runAppender drains the durability queue in order.
func (e *Engine) runAppender() {
	defer close(e.done)
	for job := range e.jobs {
		err := e.store.Append(context.Background(), job.events)
		if err != nil {
			perr := &PersistenceError{BatchSize: len(job.events), Err: err}
			e.logger.Error("event batch append failed; document and log have diverged",
				"batch_size", len(job.events),
				"first_event", job.events[0].ID,
				"error", err)
			e.failedMu.Lock()
			e.failed = append(e.failed, FailedBatch{Events: job.events, Err: perr})
			e.failedMu.Unlock()
			job.receipt.resolve(perr)
		} else {
			job.receipt.resolve(nil)
		}
		e.wg.Done()
	}
}

// Flush blocks until every queued batch has reached the log (or failed).
func (e *Engine) Flush() {
	e.wg.Wait()
}

// PendingAppends reports how many batches are still waiting for the
// appender. Zero after Flush.
func (e *Engine) PendingAppends() int {
	return len(e.jobs)
}

// FailedBatches returns batches whose append failed after a successful
// in-memory apply.
func (e *Engine) FailedBatches() []FailedBatch {
	e.failedMu.Lock()
	defer e.failedMu.Unlock()
	out := make([]FailedBatch, len(e.failed))
	copy(out, e.failed)
	return out
}

// Close drains the durability queue and stops the appender.
func (e *Engine) Close() {
	e.wg.Wait()
	close(e.jobs)
	<-e.done
}
