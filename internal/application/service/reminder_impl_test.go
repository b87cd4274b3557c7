package service

import (
	"context"
	"fmt"
	"testing"

	"reminders/internal/application/dto"
	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/infrastructure/database/memory"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	calls *callLog
	repo  *recordingRepo
	sched *fakeScheduler
	svc   ReminderService
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	calls := &callLog{}
	repo := &recordingRepo{ReminderRepository: memory.NewReminderRepository(nil), log: calls, failOn: map[string]error{}}
	sched := &fakeScheduler{log: calls}
	svc := NewReminderService(repo, sched, logger.Nop(), nil, WithClock(clock), WithIDGenerator(sequentialIDs()))
	return &fixture{calls: calls, repo: repo, sched: sched, svc: svc}
}

// seed adds a reminder and forgets the calls it made.
func (f *fixture) seed(t *testing.T, name, at string) entity.Reminder {
	t.Helper()
	r, err := f.svc.AddReminder(context.Background(), dto.CreateReminderRequest{Name: name, Time: at})
	require.NoError(t, err)
	f.calls.mu.Lock()
	f.calls.calls = nil
	f.calls.mu.Unlock()
	return r
}

func assertCompletionInvariant(t *testing.T, r entity.Reminder) {
	t.Helper()
	assert.Equal(t, r.IsCompleted, r.CompletedAt != nil, "isCompleted iff completedAt is set")
}

func TestAddReminder_RejectsBlankNameWithoutSideEffects(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddReminder(context.Background(), dto.CreateReminderRequest{Name: "   ", Time: "09:00"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidName)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.calls.all())
}

func TestAddReminder_RejectsBadTime(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddReminder(context.Background(), dto.CreateReminderRequest{Name: "Tea", Time: "25:99"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTimeOfDay)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.calls.all())
}

func TestAddReminder_SchedulesDailyAlertTenMinutesEarly(t *testing.T) {
	ctx := context.Background()
	center := newFakeCenter()
	scheduler := NewSchedulerService(center, logger.Nop(), nil, clock)
	svc := NewReminderService(memory.NewReminderRepository(nil), scheduler, logger.Nop(), nil, WithClock(clock))

	r, err := svc.AddReminder(ctx, dto.CreateReminderRequest{Name: " Buy milk ", Time: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", r.Name)
	require.NotNil(t, r.NotificationID)
	assertCompletionInvariant(t, r)

	pending, err := scheduler.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, *r.NotificationID, pending[0].Identifier)
	assert.Equal(t, "08:50", pending[0].Trigger.TimeOfDay().String())
	assert.True(t, pending[0].Trigger.Repeats)
}

func TestAddReminder_PersistsBeforeScheduling(t *testing.T) {
	f := newFixture(t)

	r, err := f.svc.AddReminder(context.Background(), dto.CreateReminderRequest{Name: "Tea", Time: "16:00"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "reminder-id-1", *r.NotificationID)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Equal(t, []string{"store.Add", "scheduler.Schedule"}, f.calls.all())
}

func TestAddReminder_StoreFailureSkipsScheduling(t *testing.T) {
	f := newFixture(t)
	f.repo.failOn["Add"] = appErrors.Wrap(appErrors.ErrSaveFailed, errDiskFull)

	_, err := f.svc.AddReminder(context.Background(), dto.CreateReminderRequest{Name: "Tea", Time: "16:00"})
	assert.ErrorIs(t, err, appErrors.ErrSaveFailed)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, f.calls.count("scheduler.Schedule"))
}

func TestAddReminder_SchedulingFailureKeepsReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sched.scheduleErr = appErrors.ErrPermissionDenied

	r, err := f.svc.AddReminder(ctx, dto.CreateReminderRequest{Name: "Tea", Time: "16:00"})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	assert.ErrorIs(t, err, appErrors.ErrScheduling)
	assert.Equal(t, "id-1", r.ID, "saved reminder is returned with the error")

	stored, err := f.repo.ReminderRepository.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Tea", stored.Name)
}

func TestCompleteReminder_PersistsThenCancels(t *testing.T) {
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")

	done, err := f.svc.CompleteReminder(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	assertCompletionInvariant(t, done)
	assert.Equal(t, []string{"store.GetByID", "store.MarkComplete", "scheduler.Cancel"}, f.calls.all())
}

func TestCompleteReminder_NotFoundNeverCancels(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CompleteReminder(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Zero(t, f.calls.count("scheduler.Cancel"))
}

func TestCompleteReminder_StoreFailureNeverCancels(t *testing.T) {
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")
	f.repo.failOn["MarkComplete"] = errDiskFull

	_, err := f.svc.CompleteReminder(context.Background(), r.ID)
	assert.ErrorIs(t, err, appErrors.ErrSaveFailed)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, f.calls.count("scheduler.Cancel"))
}

func TestCompleteReminder_CancelFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")
	f.sched.cancelErr = appErrors.SchedulingFailed("center unavailable")

	done, err := f.svc.CompleteReminder(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
}

func TestDeleteReminder_CancelsBeforeDeleting(t *testing.T) {
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")
	f.sched.cancelErr = appErrors.SchedulingFailed("center unavailable")

	require.NoError(t, f.svc.DeleteReminder(context.Background(), r.ID))
	assert.Equal(t, []string{"store.GetByID", "scheduler.Cancel", "store.Delete"}, f.calls.all())

	_, err := f.svc.GetReminder(context.Background(), r.ID)
	assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
}

func TestDeleteReminder_StoreFailure(t *testing.T) {
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")
	f.repo.failOn["Delete"] = errDiskFull

	err := f.svc.DeleteReminder(context.Background(), r.ID)
	assert.ErrorIs(t, err, appErrors.ErrDeleteFailed)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, f.calls.count("scheduler.Cancel"), "alert is gone even though the delete failed")
}

func TestDeleteReminder_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.DeleteReminder(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
	assert.Zero(t, f.calls.count("scheduler.Cancel"))
	assert.Zero(t, f.calls.count("store.Delete"))
}

func TestReopenReminder_RoundTripsAndReschedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.seed(t, "Tea", "16:00")
	_, err := f.svc.CompleteReminder(ctx, r.ID)
	require.NoError(t, err)

	reopened, err := f.svc.ReopenReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, reopened.IsCompleted)
	assert.Nil(t, reopened.CompletedAt)
	assertCompletionInvariant(t, reopened)
	assert.Equal(t, r.Name, reopened.Name)
	assert.Equal(t, r.NotificationTime, reopened.NotificationTime)
	assert.Equal(t, r.CreatedAt, reopened.CreatedAt)
	assert.Equal(t, r.NotificationID, reopened.NotificationID)
	assert.Equal(t, 1, f.calls.count("scheduler.Schedule"))

	_, err = f.svc.ReopenReminder(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
}

func TestClearCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seed(t, "A", "08:00")
	f.seed(t, "B", "09:00")
	c := f.seed(t, "C", "10:00")
	_, err := f.svc.CompleteReminder(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteReminder(ctx, c.ID)
	require.NoError(t, err)

	removed, err := f.svc.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err := f.repo.ReminderRepository.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].Name)
}

func TestRestoreSchedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.seed(t, "A", "08:00")
	f.seed(t, "B", "09:00")
	_, err := f.svc.CompleteReminder(ctx, a.ID)
	require.NoError(t, err)

	n, err := f.svc.RestoreSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only active reminders")

	f.sched.scheduleErr = appErrors.ErrPermissionDenied
	n, err = f.svc.RestoreSchedules(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleNotificationAction(t *testing.T) {
	ctx := context.Background()

	t.Run("CompleteFollowsThroughToStore", func(t *testing.T) {
		f := newFixture(t)
		r := f.seed(t, "Tea", "16:00")

		err := f.svc.HandleNotificationAction(ctx, dto.NotificationActionRequest{ActionID: constant.ActionComplete, ReminderID: r.ID, ReminderName: r.Name})
		require.NoError(t, err)

		got, err := f.svc.GetReminder(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.IsCompleted)
		assert.Equal(t, "scheduler.HandleAction:"+constant.ActionComplete, f.calls.all()[0])

		// a second complete on an already completed reminder changes nothing
		require.NoError(t, f.svc.HandleNotificationAction(ctx, dto.NotificationActionRequest{ActionID: constant.ActionComplete, ReminderID: r.ID}))
		assert.Equal(t, 1, f.calls.count("store.MarkComplete"))
	})

	t.Run("SnoozeLeavesReminderOpen", func(t *testing.T) {
		f := newFixture(t)
		r := f.seed(t, "Tea", "16:00")

		require.NoError(t, f.svc.HandleNotificationAction(ctx, dto.NotificationActionRequest{ActionID: constant.ActionSnooze, ReminderID: r.ID, ReminderName: r.Name}))
		got, err := f.svc.GetReminder(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, got.IsCompleted)
		assert.Zero(t, f.calls.count("store.MarkComplete"))
	})

	t.Run("SchedulerErrorStopsFlow", func(t *testing.T) {
		f := newFixture(t)
		r := f.seed(t, "Tea", "16:00")
		f.sched.actionErr = appErrors.ErrInvalidAction

		err := f.svc.HandleNotificationAction(ctx, dto.NotificationActionRequest{ActionID: constant.ActionComplete, ReminderID: r.ID})
		assert.ErrorIs(t, err, appErrors.ErrInvalidAction)
		assert.Zero(t, f.calls.count("store.MarkComplete"))
	})

	t.Run("UnknownReminder", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.HandleNotificationAction(ctx, dto.NotificationActionRequest{ActionID: constant.ActionComplete, ReminderID: "missing"})
		assert.ErrorIs(t, err, appErrors.ErrReminderNotFound)
	})
}
