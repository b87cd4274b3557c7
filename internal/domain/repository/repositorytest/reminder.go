// Package repositorytest holds the behaviour every ReminderRepository must share.
package repositorytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"reminders/internal/domain/entity"
	"reminders/internal/domain/repository"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository publishing to bus.
type Factory func(t *testing.T, bus *eventbus.Bus) repository.ReminderRepository

var base = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func mustReminder(t *testing.T, id, name string, hour, minute int) entity.Reminder {
	t.Helper()
	r, err := entity.NewReminder(id, name, at(hour, minute), base)
	require.NoError(t, err)
	return r
}

func ids(list []entity.Reminder) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Changed
}

func (r *recorder) record(ev eventbus.Changed) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) ops() []eventbus.Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.Op, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Op)
	}
	return out
}

// Run exercises newRepo against the shared repository contract.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("AddThenGetByID", func(t *testing.T) {
		repo := newRepo(t, nil)
		r := mustReminder(t, "a", "Water plants", 8, 30).WithNotificationID("reminder-a")

		saved, err := repo.Add(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, "a", saved.ID)

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Water plants", got.Name)
		assert.Equal(t, entity.TimeOfDay{Hour: 8, Minute: 30}, got.TimeOfDay())
		assert.False(t, got.IsCompleted)
		assert.Nil(t, got.CompletedAt)
		require.NotNil(t, got.NotificationID)
		assert.Equal(t, "reminder-a", *got.NotificationID)
	})

	t.Run("AddDuplicateFails", func(t *testing.T) {
		repo := newRepo(t, nil)
		r := mustReminder(t, "a", "One", 9, 0)
		_, err := repo.Add(ctx, r)
		require.NoError(t, err)

		_, err = repo.Add(ctx, r)
		assert.ErrorIs(t, err, appErrors.ErrSaveFailed)
		assert.ErrorIs(t, err, appErrors.ErrPersistence)
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		repo := newRepo(t, nil)
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	})

	t.Run("GetAllOrdersByTimeThenName", func(t *testing.T) {
		repo := newRepo(t, nil)
		for _, r := range []entity.Reminder{
			mustReminder(t, "late", "Zebra", 21, 0),
			mustReminder(t, "b", "Bravo", 7, 15),
			mustReminder(t, "a", "Alpha", 7, 15),
			mustReminder(t, "early", "Yoga", 6, 0),
		} {
			_, err := repo.Add(ctx, r)
			require.NoError(t, err)
		}

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "a", "b", "late"}, ids(all))
	})

	t.Run("CompleteAndReopen", func(t *testing.T) {
		repo := newRepo(t, nil)
		_, err := repo.Add(ctx, mustReminder(t, "a", "Stretch", 10, 0))
		require.NoError(t, err)

		doneAt := base.Add(11 * time.Hour)
		done, err := repo.MarkComplete(ctx, "a", doneAt)
		require.NoError(t, err)
		assert.True(t, done.IsCompleted)
		require.NotNil(t, done.CompletedAt)
		assert.True(t, doneAt.Equal(*done.CompletedAt))

		stored, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.True(t, stored.IsCompleted)

		reopened, err := repo.MarkIncomplete(ctx, "a")
		require.NoError(t, err)
		assert.False(t, reopened.IsCompleted)
		assert.Nil(t, reopened.CompletedAt)
	})

	t.Run("MarkCompleteMissing", func(t *testing.T) {
		repo := newRepo(t, nil)
		_, err := repo.MarkComplete(ctx, "nope", base)
		assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
		_, err = repo.MarkIncomplete(ctx, "nope")
		assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
	})

	t.Run("UpdateReplacesFields", func(t *testing.T) {
		repo := newRepo(t, nil)
		r := mustReminder(t, "a", "Old", 10, 0)
		_, err := repo.Add(ctx, r)
		require.NoError(t, err)

		r.Name = "New"
		r.NotificationTime = at(12, 45)
		_, err = repo.Update(ctx, r)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, entity.TimeOfDay{Hour: 12, Minute: 45}, got.TimeOfDay())

		_, err = repo.Update(ctx, mustReminder(t, "ghost", "x", 1, 0))
		assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
	})

	t.Run("ActiveAndCompleted", func(t *testing.T) {
		repo := newRepo(t, nil)
		for _, r := range []entity.Reminder{
			mustReminder(t, "a", "A", 9, 0),
			mustReminder(t, "b", "B", 8, 0),
			mustReminder(t, "c", "C", 7, 0),
		} {
			_, err := repo.Add(ctx, r)
			require.NoError(t, err)
		}
		_, err := repo.MarkComplete(ctx, "a", base.Add(1*time.Hour))
		require.NoError(t, err)
		_, err = repo.MarkComplete(ctx, "c", base.Add(2*time.Hour))
		require.NoError(t, err)

		active, err := repo.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(active))

		completed, err := repo.GetCompleted(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, ids(completed), "most recently completed first")
	})

	t.Run("DeleteAndDeleteAllCompleted", func(t *testing.T) {
		repo := newRepo(t, nil)
		for _, r := range []entity.Reminder{
			mustReminder(t, "a", "A", 9, 0),
			mustReminder(t, "b", "B", 8, 0),
			mustReminder(t, "c", "C", 7, 0),
		} {
			_, err := repo.Add(ctx, r)
			require.NoError(t, err)
		}

		require.NoError(t, repo.Delete(ctx, "a"))
		assert.ErrorIs(t, repo.Delete(ctx, "a"), appErrors.ErrReminderNotFound)

		_, err := repo.MarkComplete(ctx, "b", base)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteAllCompleted(ctx))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(all))
	})

	t.Run("PublishesChanges", func(t *testing.T) {
		bus := eventbus.New()
		rec := &recorder{}
		bus.Subscribe(rec.record)
		repo := newRepo(t, bus)

		_, err := repo.Add(ctx, mustReminder(t, "a", "A", 9, 0))
		require.NoError(t, err)
		_, err = repo.MarkComplete(ctx, "a", base)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteAllCompleted(ctx))
		_, err = repo.Add(ctx, mustReminder(t, "b", "B", 9, 0))
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, "b"))

		// failed writes publish nothing
		_, _ = repo.MarkComplete(ctx, "ghost", base)
		_ = repo.Delete(ctx, "ghost")

		assert.Equal(t, []eventbus.Op{
			eventbus.OpAdded,
			eventbus.OpUpdated,
			eventbus.OpCompletedPurge,
			eventbus.OpAdded,
			eventbus.OpDeleted,
		}, rec.ops())
	})

	t.Run("ConcurrentCompletesOfSameID", func(t *testing.T) {
		repo := newRepo(t, nil)
		_, err := repo.Add(ctx, mustReminder(t, "a", "A", 9, 0))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.MarkComplete(ctx, "a", base.Add(time.Duration(i)*time.Minute))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.True(t, got.IsCompleted)
		assert.Equal(t, "A", got.Name)
	})
}
