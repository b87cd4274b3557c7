package service

import (
	"context"

	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/domain/notification"
)

// NotificationScheduler translates reminders into local alerts and back.
// It never touches the reminder store.
type NotificationScheduler interface {
	// RequestPermission asks the notification center whether alerts may be delivered.
	RequestPermission(ctx context.Context) (bool, error)
	// Schedule registers the daily primary alert of a reminder, firing at its lead time.
	// It returns the identifier the alert was registered under.
	Schedule(ctx context.Context, reminder entity.Reminder) (string, error)
	// Cancel removes a pending alert. Unknown identifiers are a no-op.
	Cancel(ctx context.Context, notificationID string) error
	// CancelAll removes every pending alert.
	CancelAll(ctx context.Context) error
	// ListPending returns the pending alerts as of the call.
	ListPending(ctx context.Context) ([]notification.Request, error)
	// HandleAction reacts to a user action on a delivered alert. Only the
	// notification side is handled here; completing the reminder is up to the caller.
	HandleAction(ctx context.Context, actionID string, payload notification.Payload) error
	// StateOf reports where the reminder's alerts are in the scheduling lifecycle.
	StateOf(ctx context.Context, reminder entity.Reminder) (constant.NotificationState, error)
}
