package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reminders/internal/domain/entity"
	"reminders/internal/domain/repository"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/eventbus"

	"gorm.io/gorm"
)

// reminderRecord is the persisted form of entity.Reminder.
type reminderRecord struct {
	ID               string    `gorm:"primaryKey;size:64"`
	Name             string    `gorm:"not null"`
	NotificationTime time.Time `gorm:"not null"`
	MinuteOfDay      int       `gorm:"not null;index"` // ordering key, hour*60+minute of NotificationTime
	IsCompleted      bool      `gorm:"not null;default:false;index"`
	CompletedAt      *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	NotificationID   *string   `gorm:"size:128"`
}

func (reminderRecord) TableName() string {
	return "reminders"
}

func toRecord(r entity.Reminder) reminderRecord {
	return reminderRecord{
		ID:               r.ID,
		Name:             r.Name,
		NotificationTime: r.NotificationTime,
		MinuteOfDay:      r.TimeOfDay().Minutes(),
		IsCompleted:      r.IsCompleted,
		CompletedAt:      r.CompletedAt,
		CreatedAt:        r.CreatedAt,
		NotificationID:   r.NotificationID,
	}
}

func (rec reminderRecord) toEntity() entity.Reminder {
	return entity.Reminder{
		ID:               rec.ID,
		Name:             rec.Name,
		NotificationTime: rec.NotificationTime,
		IsCompleted:      rec.IsCompleted,
		CompletedAt:      rec.CompletedAt,
		CreatedAt:        rec.CreatedAt,
		NotificationID:   rec.NotificationID,
	}
}

func toEntities(records []reminderRecord) []entity.Reminder {
	list := make([]entity.Reminder, 0, len(records))
	for _, rec := range records {
		list = append(list, rec.toEntity())
	}
	return list
}

type reminderRepository struct {
	db  *gorm.DB
	bus *eventbus.Bus
}

// NewReminderRepository creates a new instance of ReminderRepository. bus may be nil.
func NewReminderRepository(db *gorm.DB, bus *eventbus.Bus) repository.ReminderRepository {
	return &reminderRepository{db: db, bus: bus}
}

// GetAll retrieves all reminders ordered by time of day, then name.
func (r *reminderRepository) GetAll(ctx context.Context) ([]entity.Reminder, error) {
	var records []reminderRecord
	if err := r.db.WithContext(ctx).Order("minute_of_day asc, name asc").Find(&records).Error; err != nil {
		return nil, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	return toEntities(records), nil
}

// GetByID retrieves a reminder by its ID.
func (r *reminderRepository) GetByID(ctx context.Context, id string) (entity.Reminder, error) {
	var rec reminderRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return entity.Reminder{}, lookupError(id, err)
	}
	return rec.toEntity(), nil
}

// Add stores a new reminder. An existing id is a save failure.
func (r *reminderRepository) Add(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error) {
	rec := toRecord(reminder)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrSaveFailed, fmt.Errorf("create reminder %s: %w", reminder.ID, err))
	}
	r.bus.Publish(eventbus.Changed{Op: eventbus.OpAdded, ReminderID: reminder.ID})
	return rec.toEntity(), nil
}

// Update replaces an existing reminder.
func (r *reminderRepository) Update(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error) {
	return r.modify(ctx, reminder.ID, func(entity.Reminder) entity.Reminder { return reminder })
}

// Delete deletes a reminder by its ID.
func (r *reminderRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&reminderRecord{})
	if res.Error != nil {
		return appErrors.Wrap(appErrors.ErrDeleteFailed, fmt.Errorf("delete reminder %s: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", appErrors.ErrReminderNotFound, id)
	}
	r.bus.Publish(eventbus.Changed{Op: eventbus.OpDeleted, ReminderID: id})
	return nil
}

// GetActive retrieves reminders that are not completed.
func (r *reminderRepository) GetActive(ctx context.Context) ([]entity.Reminder, error) {
	var records []reminderRecord
	if err := r.db.WithContext(ctx).
		Where("is_completed = ?", false).
		Order("minute_of_day asc, name asc").
		Find(&records).Error; err != nil {
		return nil, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	return toEntities(records), nil
}

// GetCompleted retrieves completed reminders, most recently completed first.
func (r *reminderRepository) GetCompleted(ctx context.Context) ([]entity.Reminder, error) {
	var records []reminderRecord
	if err := r.db.WithContext(ctx).
		Where("is_completed = ?", true).
		Order("completed_at desc").
		Find(&records).Error; err != nil {
		return nil, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	return toEntities(records), nil
}

func (r *reminderRepository) MarkComplete(ctx context.Context, id string, completedAt time.Time) (entity.Reminder, error) {
	return r.modify(ctx, id, func(rem entity.Reminder) entity.Reminder { return rem.MarkCompleted(completedAt) })
}

func (r *reminderRepository) MarkIncomplete(ctx context.Context, id string) (entity.Reminder, error) {
	return r.modify(ctx, id, entity.Reminder.MarkIncomplete)
}

// DeleteAllCompleted deletes every completed reminder.
func (r *reminderRepository) DeleteAllCompleted(ctx context.Context) error {
	res := r.db.WithContext(ctx).Where("is_completed = ?", true).Delete(&reminderRecord{})
	if res.Error != nil {
		return appErrors.Wrap(appErrors.ErrDeleteFailed, fmt.Errorf("delete completed reminders: %w", res.Error))
	}
	r.bus.Publish(eventbus.Changed{Op: eventbus.OpCompletedPurge})
	return nil
}

// modify reads, transforms and saves one reminder inside a transaction.
func (r *reminderRepository) modify(ctx context.Context, id string, fn func(entity.Reminder) entity.Reminder) (entity.Reminder, error) {
	var updated entity.Reminder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec reminderRecord
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return lookupError(id, err)
		}
		updated = fn(rec.toEntity())
		updated.ID = rec.ID
		next := toRecord(updated)
		if err := tx.Save(&next).Error; err != nil {
			return appErrors.Wrap(appErrors.ErrSaveFailed, fmt.Errorf("update reminder %s: %w", id, err))
		}
		return nil
	})
	if err != nil {
		return entity.Reminder{}, err
	}
	r.bus.Publish(eventbus.Changed{Op: eventbus.OpUpdated, ReminderID: id})
	return updated, nil
}

func lookupError(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", appErrors.ErrReminderNotFound, id)
	}
	if errors.Is(err, appErrors.ErrNotFound) {
		return err
	}
	return appErrors.Wrap(appErrors.ErrFetchFailed, fmt.Errorf("find reminder %s: %w", id, err))
}
