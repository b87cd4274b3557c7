// Package memory is an in-process ReminderRepository with the same contract
// as the SQLite store. Used by tests and for running without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reminders/internal/domain/entity"
	"reminders/internal/domain/repository"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/eventbus"
)

type reminderRepository struct {
	mu    sync.RWMutex
	items map[string]entity.Reminder
	order []string // insertion order
	bus   *eventbus.Bus
}

// NewReminderRepository creates an empty in-memory repository. bus may be nil.
func NewReminderRepository(bus *eventbus.Bus) repository.ReminderRepository {
	return &reminderRepository{
		items: make(map[string]entity.Reminder),
		bus:   bus,
	}
}

func (r *reminderRepository) GetAll(ctx context.Context) ([]entity.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	list := r.snapshot(func(entity.Reminder) bool { return true })
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].TimeOfDay().Minutes(), list[j].TimeOfDay().Minutes()
		if a != b {
			return a < b
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, id string) (entity.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rem, ok := r.items[id]
	if !ok {
		return entity.Reminder{}, fmt.Errorf("%w: %s", appErrors.ErrReminderNotFound, id)
	}
	return rem, nil
}

func (r *reminderRepository) Add(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrSaveFailed, err)
	}
	r.mu.Lock()
	if _, exists := r.items[reminder.ID]; exists {
		r.mu.Unlock()
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrSaveFailed, fmt.Errorf("duplicate id %s", reminder.ID))
	}
	r.items[reminder.ID] = reminder
	r.order = append(r.order, reminder.ID)
	r.mu.Unlock()

	r.bus.Publish(eventbus.Changed{Op: eventbus.OpAdded, ReminderID: reminder.ID})
	return reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, reminder entity.Reminder) (entity.Reminder, error) {
	return r.modify(ctx, reminder.ID, func(entity.Reminder) entity.Reminder { return reminder })
}

func (r *reminderRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(appErrors.ErrDeleteFailed, err)
	}
	r.mu.Lock()
	if _, ok := r.items[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", appErrors.ErrReminderNotFound, id)
	}
	delete(r.items, id)
	r.removeFromOrder(func(v string) bool { return v == id })
	r.mu.Unlock()

	r.bus.Publish(eventbus.Changed{Op: eventbus.OpDeleted, ReminderID: id})
	return nil
}

func (r *reminderRepository) GetActive(ctx context.Context) ([]entity.Reminder, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, rem := range all {
		if !rem.IsCompleted {
			active = append(active, rem)
		}
	}
	return active, nil
}

func (r *reminderRepository) GetCompleted(ctx context.Context) ([]entity.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrFetchFailed, err)
	}
	list := r.snapshot(func(rem entity.Reminder) bool { return rem.IsCompleted })
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CompletedAt.After(*list[j].CompletedAt)
	})
	return list, nil
}

func (r *reminderRepository) MarkComplete(ctx context.Context, id string, completedAt time.Time) (entity.Reminder, error) {
	return r.modify(ctx, id, func(rem entity.Reminder) entity.Reminder { return rem.MarkCompleted(completedAt) })
}

func (r *reminderRepository) MarkIncomplete(ctx context.Context, id string) (entity.Reminder, error) {
	return r.modify(ctx, id, entity.Reminder.MarkIncomplete)
}

func (r *reminderRepository) DeleteAllCompleted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(appErrors.ErrDeleteFailed, err)
	}
	r.mu.Lock()
	for id, rem := range r.items {
		if rem.IsCompleted {
			delete(r.items, id)
		}
	}
	r.removeFromOrder(func(v string) bool { _, ok := r.items[v]; return !ok })
	r.mu.Unlock()

	r.bus.Publish(eventbus.Changed{Op: eventbus.OpCompletedPurge})
	return nil
}

// modify performs a read-modify-write of one reminder under the write lock.
func (r *reminderRepository) modify(ctx context.Context, id string, fn func(entity.Reminder) entity.Reminder) (entity.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrSaveFailed, err)
	}
	r.mu.Lock()
	current, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return entity.Reminder{}, fmt.Errorf("%w: %s", appErrors.ErrReminderNotFound, id)
	}
	updated := fn(current)
	updated.ID = current.ID
	r.items[id] = updated
	r.mu.Unlock()

	r.bus.Publish(eventbus.Changed{Op: eventbus.OpUpdated, ReminderID: id})
	return updated, nil
}

func (r *reminderRepository) snapshot(keep func(entity.Reminder) bool) []entity.Reminder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]entity.Reminder, 0, len(r.order))
	for _, id := range r.order {
		if rem := r.items[id]; keep(rem) {
			list = append(list, rem)
		}
	}
	return list
}

func (r *reminderRepository) removeFromOrder(drop func(string) bool) {
	kept := r.order[:0]
	for _, v := range r.order {
		if !drop(v) {
			kept = append(kept, v)
		}
	}
	r.order = kept
}
