package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "reminders/internal/pkg/errors"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestNewReminder_TrimsName(t *testing.T) {
	now := at(7, 0)
	r, err := NewReminder("id-1", "  Buy milk \n", at(9, 0), now)
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", r.Name)
	assert.Equal(t, now, r.CreatedAt)
	assert.False(t, r.IsCompleted)
	assert.Nil(t, r.CompletedAt)
	assert.Nil(t, r.NotificationID)
}

func TestNewReminder_RejectsBlankName(t *testing.T) {
	for _, name := range []string{"", "  ", "\t\n"} {
		_, err := NewReminder("id-1", name, at(9, 0), at(7, 0))
		assert.ErrorIs(t, err, appErrors.ErrInvalidName)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
	}
}

func TestMarkCompletedThenIncomplete_RoundTrip(t *testing.T) {
	r, err := NewReminder("id-1", "Stretch", at(9, 0), at(7, 0))
	require.NoError(t, err)
	r = r.WithNotificationID(NotificationIDFor(r.ID))

	done := r.MarkCompleted(at(9, 5))
	require.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, at(9, 5), *done.CompletedAt)

	reopened := done.MarkIncomplete()
	assert.False(t, reopened.IsCompleted)
	assert.Nil(t, reopened.CompletedAt)
	assert.Equal(t, r, reopened)

	// the original value is untouched
	assert.False(t, r.IsCompleted)
}

func TestLeadTimeOfDay(t *testing.T) {
	tests := []struct {
		name   string
		target time.Time
		want   string
	}{
		{"regular", at(9, 0), "08:50"},
		{"crosses hour", at(13, 5), "12:55"},
		{"wraps midnight", at(0, 5), "23:55"},
		{"exact midnight", at(0, 10), "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reminder{ID: "x", Name: "x", NotificationTime: tt.target}
			assert.Equal(t, tt.want, r.LeadTimeOfDay().String())
		})
	}
}

func TestIsOverdueAt_UsesTimeOfDayOnly(t *testing.T) {
	// created on a different date; only the clock matters
	r := Reminder{ID: "x", Name: "x", NotificationTime: time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)}

	assert.False(t, r.IsOverdueAt(at(8, 59)))
	assert.False(t, r.IsOverdueAt(at(9, 0)))
	assert.True(t, r.IsOverdueAt(at(9, 1)))

	completed := r.MarkCompleted(at(8, 0))
	assert.False(t, completed.IsOverdueAt(at(23, 0)))
}

func TestPrimaryNotificationID_FallsBackToDerived(t *testing.T) {
	r := Reminder{ID: "abc"}
	assert.Equal(t, "reminder-abc", r.PrimaryNotificationID())

	r = r.WithNotificationID("custom")
	assert.Equal(t, "custom", r.PrimaryNotificationID())
}

func TestEqual_ByID(t *testing.T) {
	a := Reminder{ID: "1", Name: "a"}
	b := Reminder{ID: "1", Name: "b"}
	c := Reminder{ID: "2", Name: "a"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:45")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 45}, tod)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}
