package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic reconciliation passes.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewScheduler builds a scheduler over one reconciler. spec is a cron
// expression or an @every duration, e.g. "@every 15m".
func NewScheduler(r *Reconciler, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:       cron.New(),
		reconciler: r,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	summary, err := s.reconciler.Run(context.Background())
	if errors.Is(err, ErrRunInProgress) {
		// Dropped by design; the previous pass is still going.
		s.logger.Debug("skipped overlapping reconciliation run")
		return
	}
	if err != nil {
		s.logger.Error("scheduled reconciliation failed", "error", err)
		return
	}
	s.logger.Debug("scheduled reconciliation finished",
		"pushed", summary.Pushed, "pulled", summary.Pulled, "errors", summary.Errors)
}

// Start begins firing scheduled passes.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
