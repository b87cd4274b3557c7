package repository

import (
	"context"
	"time"

	"reminders/internal/domain/entity"
)

// ReminderRepository defines the interface for reminder data operations.
// Writes to the same id are linearizable.
type ReminderRepository interface {
	// GetAll retrieves every reminder, ordered by notification time then name.
	GetAll(ctx context.Context) ([]entity.Reminder, error)
	// GetByID retrieves a reminder by its ID. Returns ErrReminderNotFound if absent.
	GetByID(ctx context.Context, id string) (entity.Reminder, error)
	// Add stores a new reminder.
	Add(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error)
	// Update replaces an existing reminder as a whole.
	Update(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error)
	// Delete deletes a reminder by its ID.
	Delete(ctx context.Context, id string) error
	// GetActive retrieves reminders that are not completed, by notification time.
	GetActive(ctx context.Context) ([]entity.Reminder, error)
	// GetCompleted retrieves completed reminders, most recently completed first.
	GetCompleted(ctx context.Context) ([]entity.Reminder, error)
	// MarkComplete completes a reminder at the given time.
	MarkComplete(ctx context.Context, id string, completedAt time.Time) (entity.Reminder, error)
	// MarkIncomplete clears a reminder's completion state.
	MarkIncomplete(ctx context.Context, id string) (entity.Reminder, error)
	// DeleteAllCompleted deletes every completed reminder.
	DeleteAllCompleted(ctx context.Context) error
}
