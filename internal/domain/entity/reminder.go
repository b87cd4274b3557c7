package entity

import (
	"fmt"
	"strings"
	"time"

	"reminders/internal/domain/constant"
	appErrors "reminders/internal/pkg/errors"
)

// Reminder represents a daily reminder and its completion state.
// It is a value: every mutation returns a new Reminder.
type Reminder struct {
	ID               string
	Name             string
	NotificationTime time.Time // only hour and minute are significant
	IsCompleted      bool
	CompletedAt      *time.Time // set iff IsCompleted
	CreatedAt        time.Time
	NotificationID   *string // nil until a schedule attempt has been made
}

// NewReminder builds an incomplete reminder with a trimmed, non-empty name.
func NewReminder(id, name string, notificationTime, now time.Time) (Reminder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Reminder{}, appErrors.ErrInvalidName
	}
	return Reminder{
		ID:               id,
		Name:             name,
		NotificationTime: notificationTime,
		CreatedAt:        now,
	}, nil
}

// NotificationIDFor derives the primary alert identifier of a reminder id.
func NotificationIDFor(id string) string {
	return constant.PrimaryIDPrefix + id
}

// MarkCompleted returns a copy completed at the given time.
func (r Reminder) MarkCompleted(at time.Time) Reminder {
	r.IsCompleted = true
	r.CompletedAt = &at
	return r
}

// MarkIncomplete returns a copy with the completion state cleared.
func (r Reminder) MarkIncomplete() Reminder {
	r.IsCompleted = false
	r.CompletedAt = nil
	return r
}

// WithNotificationID returns a copy addressed by the given alert identifier.
func (r Reminder) WithNotificationID(id string) Reminder {
	r.NotificationID = &id
	return r
}

// PrimaryNotificationID returns the stored alert identifier, or the derived one if none is stored.
func (r Reminder) PrimaryNotificationID() string {
	if r.NotificationID != nil && *r.NotificationID != "" {
		return *r.NotificationID
	}
	return NotificationIDFor(r.ID)
}

// TimeOfDay returns the target hour and minute.
func (r Reminder) TimeOfDay() TimeOfDay {
	return TimeOfDayOf(r.NotificationTime)
}

// LeadTimeOfDay returns the time-of-day the alert actually fires.
func (r Reminder) LeadTimeOfDay() TimeOfDay {
	return r.TimeOfDay().Add(-constant.NotificationLeadTime)
}

// IsOverdue reports whether the reminder is open and its time has passed today.
func (r Reminder) IsOverdue() bool {
	return r.IsOverdueAt(time.Now())
}

// IsOverdueAt is IsOverdue evaluated at now.
func (r Reminder) IsOverdueAt(now time.Time) bool {
	if r.IsCompleted {
		return false
	}
	return now.After(r.TimeOfDay().On(now))
}

// Equal compares reminders by identity.
func (r Reminder) Equal(other Reminder) bool {
	return r.ID == other.ID
}

func (r Reminder) String() string {
	return fmt.Sprintf("%s %q at %s", r.ID, r.Name, r.TimeOfDay())
}
