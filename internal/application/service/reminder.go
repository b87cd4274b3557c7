package service

import (
	"context"

	"reminders/internal/application/dto"
	"reminders/internal/domain/entity"
)

// ReminderService coordinates the reminder store with the notification scheduler.
// The store is the source of truth: alerts are registered after a successful
// write and removed before a delete.
type ReminderService interface {
	// AddReminder validates and saves a new reminder, then schedules its alert.
	// A scheduling failure is returned together with the saved reminder, which is kept.
	AddReminder(ctx context.Context, req dto.CreateReminderRequest) (entity.Reminder, error)
	// CompleteReminder marks a reminder complete and cancels its alert on a best-effort basis.
	CompleteReminder(ctx context.Context, reminderID string) (entity.Reminder, error)
	// ReopenReminder clears the completion state and schedules the alert again on a best-effort basis.
	ReopenReminder(ctx context.Context, reminderID string) (entity.Reminder, error)
	// DeleteReminder cancels the reminder's alert, then deletes it.
	DeleteReminder(ctx context.Context, reminderID string) error
	// ClearCompleted cancels and deletes every completed reminder. It returns how many were removed.
	ClearCompleted(ctx context.Context) (int, error)
	// RestoreSchedules registers the alert of every active reminder, e.g. after a restart.
	RestoreSchedules(ctx context.Context) (int, error)
	// HandleNotificationAction applies a user action on a delivered alert.
	HandleNotificationAction(ctx context.Context, req dto.NotificationActionRequest) error
	// GetReminder retrieves a reminder by its ID.
	GetReminder(ctx context.Context, reminderID string) (entity.Reminder, error)
}
