package sync

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSProvider_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewICSProvider(dir)

	ok, err := p.Authorized(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	starts := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	id, err := p.CreateEvent(ctx, "personal", ExternalEvent{
		Title:    "Kickoff",
		StartsAt: starts,
		EndsAt:   starts.Add(time.Hour),
		Location: "Room A",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := os.ReadFile(dir + "/personal.ics")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "BEGIN:VCALENDAR"))
	assert.Contains(t, string(data), "SUMMARY:Kickoff")

	got, err := p.GetEvent(ctx, "personal", id)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", got.Title)
	assert.Equal(t, "Room A", got.Location)
	assert.True(t, got.StartsAt.Equal(starts))
	require.NotNil(t, got.ModifiedAt)

	title := "Kickoff (moved)"
	notes := "Bring the deck"
	require.NoError(t, p.UpdateEvent(ctx, "personal", id, EventPatch{Title: &title, Notes: &notes}))

	got, err = p.GetEvent(ctx, "personal", id)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff (moved)", got.Title)
	assert.Equal(t, "Bring the deck", got.Notes)
}

func TestICSProvider_ListEventsWindow(t *testing.T) {
	ctx := context.Background()
	p := NewICSProvider(t.TempDir())

	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"Early", "Late", "NextWeek"} {
		starts := day.Add(time.Duration(i*3) * 24 * time.Hour).Add(10 * time.Hour)
		_, err := p.CreateEvent(ctx, "personal", ExternalEvent{
			Title:    title,
			StartsAt: starts,
			EndsAt:   starts.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	events, err := p.ListEvents(ctx, "personal", day, day.Add(4*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Early", events[0].Title)
	assert.Equal(t, "Late", events[1].Title)

	events, err = p.ListEvents(ctx, "empty", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestICSProvider_MissingEvent(t *testing.T) {
	ctx := context.Background()
	p := NewICSProvider(t.TempDir())

	_, err := p.GetEvent(ctx, "personal", "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)

	err = p.UpdateEvent(ctx, "personal", "nope", EventPatch{})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestICSProvider_UnauthorizedWhenDirMissing(t *testing.T) {
	p := NewICSProvider(t.TempDir() + "/does-not-exist")
	ok, err := p.Authorized(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
