package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// ErrRunInProgress is returned when a reconciliation run is requested
// while another is active. The overlapping request is dropped, not queued.
var ErrRunInProgress = errors.New("reconciliation already running")

// ErrAlreadyLinked is returned by Link when the appointment already has a
// sync link in this calendar.
var ErrAlreadyLinked = errors.New("appointment already linked")

// Summary aggregates one reconciliation run. Per-link provider failures
// are counted here, never raised to the caller.
type Summary struct {
	Links   int
	Pushed  int
	Pulled  int
	Noops   int
	Deleted int
	Errors  int
}

// Reconciler drives bidirectional sync between the document's
// appointments and one external calendar.
type Reconciler struct {
	store      *store.Store
	engine     *engine.Engine
	provider   Provider
	calendarID string
	deviceID   string
	clock      event.Clock
	logger     *slog.Logger

	busy atomic.Bool
}

// Config wires a Reconciler. CalendarID is the external calendar the
// links of this device point at.
type Config struct {
	Store      *store.Store
	Engine     *engine.Engine
	Provider   Provider
	CalendarID string
	DeviceID   string
	Clock      event.Clock
	Logger     *slog.Logger
}

// New builds a Reconciler.
func New(cfg Config) *Reconciler {
	clock := cfg.Clock
	if clock == nil {
		clock = event.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:      cfg.Store,
		engine:     cfg.Engine,
		provider:   cfg.Provider,
		calendarID: cfg.CalendarID,
		deviceID:   cfg.DeviceID,
		clock:      clock,
		logger:     logger,
	}
}

// Link associates a local appointment with an external event, creating
// both the external event (when no external id is given) and the sync
// link row. The first reconciliation pass then keeps them aligned.
// An appointment already linked in this calendar returns the existing
// link and ErrAlreadyLinked; the external calendar is not touched.
func (r *Reconciler) Link(ctx context.Context, appointmentID, externalEventID string) (store.SyncLink, error) {
	appt, ok := r.engine.Document().Appointments[appointmentID]
	if !ok {
		return store.SyncLink{}, fmt.Errorf("link appointment %s: not in document", appointmentID)
	}

	// The existence check must come before CreateEvent: failing on the
	// pair index afterwards would leave an orphan external event.
	existing, err := r.store.GetSyncLinkByAppointment(ctx, r.provider.Name(), r.calendarID, appointmentID)
	if err == nil {
		return existing, fmt.Errorf("link appointment %s: %w", appointmentID, ErrAlreadyLinked)
	}
	if !errors.Is(err, store.ErrLinkNotFound) {
		return store.SyncLink{}, fmt.Errorf("link appointment %s: %w", appointmentID, err)
	}

	if externalEventID == "" {
		id, err := r.provider.CreateEvent(ctx, r.calendarID, externalFromAppointment(appt, r.calendarID))
		if err != nil {
			return store.SyncLink{}, &ProviderError{Provider: r.provider.Name(), Op: "create event", Err: err}
		}
		externalEventID = id
	}

	link := store.SyncLink{
		ID:                 event.NewID(),
		AppointmentID:      appointmentID,
		Provider:           r.provider.Name(),
		ExternalCalendarID: r.calendarID,
		ExternalEventID:    externalEventID,
	}
	if err := r.store.PutSyncLink(ctx, link); err != nil {
		return store.SyncLink{}, fmt.Errorf("link appointment %s: %w", appointmentID, err)
	}
	return link, nil
}

// Run executes one reconciliation pass over every link of this
// provider/calendar pair. At most one run is active per Reconciler; an
// overlapping request returns ErrRunInProgress.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Summary{}, ErrRunInProgress
	}
	defer r.busy.Store(false)

	authorized, err := r.provider.Authorized(ctx)
	if err != nil {
		return Summary{}, &ProviderError{Provider: r.provider.Name(), Op: "authorize", Err: err}
	}
	if !authorized {
		return Summary{}, &ProviderError{Provider: r.provider.Name(), Op: "authorize", Err: errors.New("not authorized")}
	}

	links, err := r.store.ListSyncLinks(ctx, r.provider.Name(), r.calendarID)
	if err != nil {
		return Summary{}, fmt.Errorf("list sync links: %w", err)
	}

	var summary Summary
	summary.Links = len(links)
	for _, link := range links {
		if err := r.reconcileLink(ctx, link, &summary); err != nil {
			summary.Errors++
			r.logger.Warn("link reconciliation failed",
				"link_id", link.ID,
				"appointment_id", link.AppointmentID,
				"error", err)
		}
	}

	r.logger.Info("reconciliation pass finished",
		"links", summary.Links,
		"pushed", summary.Pushed,
		"pulled", summary.Pulled,
		"noops", summary.Noops,
		"deleted", summary.Deleted,
		"errors", summary.Errors)
	return summary, nil
}

func (r *Reconciler) reconcileLink(ctx context.Context, link store.SyncLink, summary *Summary) error {
	appt, ok := r.engine.Document().Appointments[link.AppointmentID]
	if !ok {
		// Local entity is gone; the link is stale, not retryable.
		if err := r.store.DeleteSyncLink(ctx, link.ID); err != nil {
			return fmt.Errorf("delete stale link: %w", err)
		}
		summary.Deleted++
		return nil
	}

	external, externalExists, err := r.fetchExternal(ctx, link)
	if err != nil {
		return err
	}

	ts := Timestamps{
		LocalUpdatedAt:         parseLocalTime(appt.UpdatedAt),
		LastSyncedAt:           link.LastSyncedAt,
		LastExternalModifiedAt: link.LastExternalModifiedAt,
	}
	if externalExists {
		ts.ExternalModifiedAt = external.ModifiedAt
	}

	dir := Resolve(ts, appt.Status == document.AppointmentScheduled)

	switch dir {
	case DirectionPush:
		wrote, err := r.push(ctx, link, appt, external, externalExists)
		if err != nil {
			return err
		}
		if wrote {
			summary.Pushed++
		} else {
			summary.Noops++
		}
	case DirectionPull:
		pulled, err := r.pull(ctx, appt, external)
		if err != nil {
			return err
		}
		if pulled {
			summary.Pulled++
		} else {
			summary.Noops++
		}
	case DirectionNoop:
		summary.Noops++
	}

	// Cursors advance on every outcome so an unchanged pair is never
	// reprocessed.
	return r.store.AdvanceSyncCursors(ctx, link.ID, r.clock.Now(), ts.ExternalModifiedAt)
}

func (r *Reconciler) fetchExternal(ctx context.Context, link store.SyncLink) (ExternalEvent, bool, error) {
	external, err := r.provider.GetEvent(ctx, link.ExternalCalendarID, link.ExternalEventID)
	if errors.Is(err, ErrEventNotFound) {
		return ExternalEvent{}, false, nil
	}
	if err != nil {
		return ExternalEvent{}, false, &ProviderError{Provider: r.provider.Name(), Op: "get event", Err: err}
	}
	return external, true, nil
}

// push writes local changes out. Returns whether a provider write
// actually happened.
func (r *Reconciler) push(ctx context.Context, link store.SyncLink, appt document.Appointment, external ExternalEvent, externalExists bool) (bool, error) {
	if !externalExists {
		// The external side was deleted; the local record recreates it.
		id, err := r.provider.CreateEvent(ctx, link.ExternalCalendarID, externalFromAppointment(appt, link.ExternalCalendarID))
		if err != nil {
			return false, &ProviderError{Provider: r.provider.Name(), Op: "create event", Err: err}
		}
		link.ExternalEventID = id
		if err := r.store.PutSyncLink(ctx, link); err != nil {
			return false, fmt.Errorf("update link external id: %w", err)
		}
		return true, nil
	}

	patch := diffAppointment(appt, external)
	if patch.Empty() {
		return false, nil
	}
	if err := r.provider.UpdateEvent(ctx, link.ExternalCalendarID, link.ExternalEventID, patch); err != nil {
		return false, &ProviderError{Provider: r.provider.Name(), Op: "update event", Err: err}
	}
	return true, nil
}

// pull routes the external snapshot through dispatch as an ordinary
// appointment.updated event, so the change is logged and merged like any
// locally authored edit.
func (r *Reconciler) pull(ctx context.Context, appt document.Appointment, external ExternalEvent) (bool, error) {
	payload := pullPayload(appt, external)
	if len(payload) == 0 {
		return false, nil
	}

	ev, err := event.NewValidated(r.clock, r.deviceID, event.TypeAppointmentUpdated, appt.ID, payload)
	if err != nil {
		return false, fmt.Errorf("build pull event: %w", err)
	}
	if _, err := r.engine.Dispatch(ctx, []event.Event{ev}); err != nil {
		return false, fmt.Errorf("dispatch pull event: %w", err)
	}
	return true, nil
}

func parseLocalTime(s string) *time.Time {
	t, err := time.Parse(event.TimestampFormat, s)
	if err != nil {
		return nil
	}
	return &t
}
