package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/event"
)

// ReplayStats summarizes a replay pass over the log.
type ReplayStats struct {
	Applied int
	Skipped int
}

// Replay materializes a document from scratch. Events are sorted into
// the canonical total order first, so the result is independent of the
// input ordering.
//
// Unlike Dispatch, replay skips events that fail to apply instead of
// aborting: a merged log may legitimately contain events that conflict
// (two devices creating the same entity), and replay must converge to
// the same document everywhere regardless.
func Replay(events []event.Event, logger *slog.Logger) (document.Document, ReplayStats) {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	event.SortEvents(sorted)

	doc := document.Empty()
	var stats ReplayStats
	for _, ev := range sorted {
		next, err := document.Apply(doc, ev)
		if err != nil {
			stats.Skipped++
			logger.Warn("replay skipped event",
				"event_id", ev.ID,
				"event_type", ev.Type,
				"error", err)
			continue
		}
		doc = next
		stats.Applied++
	}
	return doc, stats
}

// Rebuild discards the in-memory document and rematerializes it from
// the persisted log. Call after Import or on startup.
func (e *Engine) Rebuild(ctx context.Context) (ReplayStats, error) {
	events, err := e.store.LoadAll(ctx)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("rebuild: %w", err)
	}
	doc, stats := Replay(events, e.logger)

	e.mu.Lock()
	e.doc = doc
	e.mu.Unlock()

	if stats.Skipped > 0 {
		e.logger.Warn("rebuild finished with skipped events",
			"applied", stats.Applied, "skipped", stats.Skipped)
	}
	return stats, nil
}
