// Package notification describes the local-notification delivery service the
// scheduler talks to: triggers, pending requests, and where fired alerts go.
package notification

import (
	"context"
	"fmt"
	"time"

	"reminders/internal/domain/entity"
)

// Trigger is either a daily wall-clock trigger or a one-shot delay.
type Trigger struct {
	Hour    int
	Minute  int
	Delay   time.Duration
	Repeats bool
}

// Daily fires every day at tod.
func Daily(tod entity.TimeOfDay) Trigger {
	return Trigger{Hour: tod.Hour, Minute: tod.Minute, Repeats: true}
}

// After fires once, delay after registration.
func After(delay time.Duration) Trigger {
	return Trigger{Delay: delay}
}

// TimeOfDay returns the wall-clock time of a daily trigger.
func (t Trigger) TimeOfDay() entity.TimeOfDay {
	return entity.TimeOfDay{Hour: t.Hour, Minute: t.Minute}
}

// Validate rejects triggers the delivery service cannot register.
func (t Trigger) Validate() error {
	if t.Repeats {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("daily trigger out of range: %02d:%02d", t.Hour, t.Minute)
		}
		return nil
	}
	if t.Delay <= 0 {
		return fmt.Errorf("one-shot trigger needs a positive delay, got %s", t.Delay)
	}
	return nil
}

func (t Trigger) String() string {
	if t.Repeats {
		return fmt.Sprintf("daily at %s", t.TimeOfDay())
	}
	return fmt.Sprintf("once after %s", t.Delay)
}

// Payload identifies the reminder an alert belongs to.
type Payload struct {
	ReminderID   string `json:"reminder_id"`
	ReminderName string `json:"reminder_name"`
}

// Request is a pending or to-be-registered alert.
type Request struct {
	Identifier string
	Title      string
	Body       string
	Category   string
	Trigger    Trigger
	Payload    Payload
}

// Center is the local-notification delivery service.
type Center interface {
	// RequestPermission reports whether alerts may be delivered.
	RequestPermission(ctx context.Context) (bool, error)
	// Add registers req, replacing any pending request with the same identifier.
	Add(ctx context.Context, req Request) error
	// Remove drops the given identifiers. Unknown identifiers are ignored.
	Remove(ctx context.Context, identifiers ...string) error
	// RemoveAll drops every pending request.
	RemoveAll(ctx context.Context) error
	// ListPending returns a snapshot of pending requests.
	ListPending(ctx context.Context) ([]Request, error)
}

// Sink receives alerts when their trigger fires.
type Sink interface {
	Deliver(ctx context.Context, req Request) error
}
