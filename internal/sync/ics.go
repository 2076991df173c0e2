package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	syncpkg "sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// ICSProvider is a calendar backend over plain .ics files in a directory,
// one file per calendar. It is the device-local provider: phone calendar
// apps and desktop clients both read and write these files, which is what
// makes the reconciler's change detection necessary.
type ICSProvider struct {
	dir string
	mu  syncpkg.Mutex
}

// NewICSProvider stores calendars under dir as <calendarID>.ics.
func NewICSProvider(dir string) *ICSProvider {
	return &ICSProvider{dir: dir}
}

func (p *ICSProvider) Name() string { return "ics" }

// Authorized reports whether the calendar directory is usable.
func (p *ICSProvider) Authorized(ctx context.Context) (bool, error) {
	info, err := os.Stat(p.dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat calendar dir: %w", err)
	}
	return info.IsDir(), nil
}

func (p *ICSProvider) calendarPath(calendarID string) string {
	return filepath.Join(p.dir, calendarID+".ics")
}

// loadCalendar reads and decodes one calendar file. A missing file is an
// empty calendar, not an error.
func (p *ICSProvider) loadCalendar(calendarID string) (*ical.Calendar, error) {
	data, err := os.ReadFile(p.calendarPath(calendarID))
	if os.IsNotExist(err) {
		return newCalendar(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read calendar %s: %w", calendarID, err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(string(data))).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode calendar %s: %w", calendarID, err)
	}
	return cal, nil
}

func (p *ICSProvider) saveCalendar(calendarID string, cal *ical.Calendar) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create calendar dir: %w", err)
	}

	var buf strings.Builder
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar %s: %w", calendarID, err)
	}
	tmp := p.calendarPath(calendarID) + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write calendar %s: %w", calendarID, err)
	}
	if err := os.Rename(tmp, p.calendarPath(calendarID)); err != nil {
		return fmt.Errorf("replace calendar %s: %w", calendarID, err)
	}
	return nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//marlowe//EN")
	return cal
}

// GetEvent looks an event up by UID.
func (p *ICSProvider) GetEvent(ctx context.Context, calendarID, eventID string) (ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cal, err := p.loadCalendar(calendarID)
	if err != nil {
		return ExternalEvent{}, err
	}
	comp := findEvent(cal, eventID)
	if comp == nil {
		return ExternalEvent{}, ErrEventNotFound
	}
	return parseComponent(comp, calendarID), nil
}

// ListEvents returns the calendar's events starting within [from, to),
// ordered by start time.
func (p *ICSProvider) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cal, err := p.loadCalendar(calendarID)
	if err != nil {
		return nil, err
	}

	var events []ExternalEvent
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev := parseComponent(comp, calendarID)
		if ev.StartsAt.Before(from) || !ev.StartsAt.Before(to) {
			continue
		}
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events, nil
}

// CreateEvent appends a VEVENT and returns its UID.
func (p *ICSProvider) CreateEvent(ctx context.Context, calendarID string, ev ExternalEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cal, err := p.loadCalendar(calendarID)
	if err != nil {
		return "", err
	}

	uid := ev.ID
	if uid == "" {
		uid = uuid.NewString()
	}

	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetText(ical.PropSummary, ev.Title)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	comp.Props.SetDateTime(ical.PropDateTimeStart, ev.StartsAt.UTC())
	comp.Props.SetDateTime(ical.PropDateTimeEnd, ev.EndsAt.UTC())
	comp.Props.SetDateTime(ical.PropLastModified, time.Now().UTC())
	if ev.Location != "" {
		comp.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Notes != "" {
		comp.Props.SetText(ical.PropDescription, ev.Notes)
	}
	cal.Children = append(cal.Children, comp)

	if err := p.saveCalendar(calendarID, cal); err != nil {
		return "", err
	}
	return uid, nil
}

// UpdateEvent applies a patch to an existing VEVENT and bumps its
// LAST-MODIFIED stamp.
func (p *ICSProvider) UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cal, err := p.loadCalendar(calendarID)
	if err != nil {
		return err
	}
	comp := findEvent(cal, eventID)
	if comp == nil {
		return ErrEventNotFound
	}

	if patch.Title != nil {
		comp.Props.SetText(ical.PropSummary, *patch.Title)
	}
	if patch.StartsAt != nil {
		comp.Props.SetDateTime(ical.PropDateTimeStart, patch.StartsAt.UTC())
	}
	if patch.EndsAt != nil {
		comp.Props.SetDateTime(ical.PropDateTimeEnd, patch.EndsAt.UTC())
	}
	if patch.Location != nil {
		comp.Props.SetText(ical.PropLocation, *patch.Location)
	}
	if patch.Notes != nil {
		comp.Props.SetText(ical.PropDescription, *patch.Notes)
	}
	comp.Props.SetDateTime(ical.PropLastModified, time.Now().UTC())

	return p.saveCalendar(calendarID, cal)
}

func findEvent(cal *ical.Calendar, uid string) *ical.Component {
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if prop := comp.Props.Get(ical.PropUID); prop != nil && prop.Value == uid {
			return comp
		}
	}
	return nil
}

func parseComponent(comp *ical.Component, calendarID string) ExternalEvent {
	ev := ExternalEvent{CalendarID: calendarID}

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.ID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.StartsAt = t
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.EndsAt = t
		}
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		ev.Location = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		ev.Notes = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLastModified); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.ModifiedAt = &t
		}
	}
	return ev
}
