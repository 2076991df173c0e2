// Package harness runs YAML conformance scenarios: event batches
// dispatched through a real engine and store, assertions and golden
// files over the materialized document.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// defaultStart keeps scenario output stable when no start is given.
const defaultStart = "2025-03-01T09:00:00.000Z"

// defaultDevice authors scenario events unless a step overrides it.
const defaultDevice = "dev-harness"

// Result captures one scenario execution.
type Result struct {
	Document   document.Document
	Dispatched int
	Rejected   int
}

// Run executes a scenario against a fresh store and engine.
//
// After the batches are dispatched, the persisted log is replayed from
// scratch and must materialize the same document as the live engine; a
// mismatch is an error regardless of the scenario's assertions.
func Run(s *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "marlowe-harness-*")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	defer st.Close()

	eng := engine.New(st, nil)
	defer eng.Close()

	clock, err := scenarioClock(s)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	res := &Result{}
	ctx := context.Background()
	for i, batch := range s.Batches {
		events, err := buildBatch(clock, batch)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: batch %d: %w", s.Name, i, err)
		}

		_, err = eng.Dispatch(ctx, events)
		if batch.Expect == "" {
			if err != nil {
				return nil, fmt.Errorf("scenario %s: batch %d: unexpected dispatch error: %w", s.Name, i, err)
			}
			res.Dispatched++
			continue
		}

		if err == nil {
			return nil, fmt.Errorf("scenario %s: batch %d: expected %s, dispatch succeeded", s.Name, i, batch.Expect)
		}
		if code := document.CodeOf(err); string(code) != batch.Expect {
			return nil, fmt.Errorf("scenario %s: batch %d: expected %s, got %s (%v)", s.Name, i, batch.Expect, code, err)
		}
		res.Rejected++
	}

	eng.Flush()
	if failed := eng.FailedBatches(); len(failed) > 0 {
		return nil, fmt.Errorf("scenario %s: %d batches failed to persist", s.Name, len(failed))
	}

	res.Document = eng.Document()

	if err := verifyReplay(ctx, st, res.Document); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	for i, a := range s.Assertions {
		if err := a.Check(res.Document); err != nil {
			return nil, fmt.Errorf("scenario %s: assertion %d: %w", s.Name, i, err)
		}
	}
	return res, nil
}

func scenarioClock(s *Scenario) (*event.FixedClock, error) {
	startStr := s.Start
	if startStr == "" {
		startStr = defaultStart
	}
	start, err := time.Parse(event.TimestampFormat, startStr)
	if err != nil {
		return nil, fmt.Errorf("bad start timestamp %q: %w", startStr, err)
	}
	return event.NewFixedClock(start, time.Second), nil
}

func buildBatch(clock event.Clock, batch Batch) ([]event.Event, error) {
	events := make([]event.Event, 0, len(batch.Events))
	for _, step := range batch.Events {
		device := step.Device
		if device == "" {
			device = defaultDevice
		}
		payload := step.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		ev, err := event.NewValidated(clock, device, step.Type, step.Entity, payload)
		if err != nil {
			// A scenario may deliberately dispatch an invalid payload;
			// construct the event unvalidated and let dispatch reject it.
			if batch.Expect == "" {
				return nil, err
			}
			ev = event.New(clock, device, step.Type, step.Entity, payload)
		}
		events = append(events, ev)
	}
	return events, nil
}

// verifyReplay rematerializes the persisted log and compares fingerprints
// with the live document.
func verifyReplay(ctx context.Context, st *store.Store, live document.Document) error {
	events, err := st.LoadAll(ctx)
	if err != nil {
		return err
	}
	replayed, stats := engine.Replay(events, nil)
	if stats.Skipped > 0 {
		return errors.New("replay skipped events the engine accepted")
	}

	livePrint, err := live.Fingerprint()
	if err != nil {
		return err
	}
	replayPrint, err := replayed.Fingerprint()
	if err != nil {
		return err
	}
	if livePrint != replayPrint {
		return fmt.Errorf("replay diverged: live %s, replayed %s", livePrint, replayPrint)
	}
	return nil
}
