package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reminders/internal/application/dto"
	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/domain/repository"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"
	"reminders/internal/pkg/metrics"

	"github.com/google/uuid"
)

type reminderService struct {
	reminderRepo repository.ReminderRepository
	scheduler    NotificationScheduler
	log          logger.Logger
	metrics      *metrics.Recorder
	now          func() time.Time
	newID        func() string
}

// ReminderServiceOption configures a ReminderService.
type ReminderServiceOption func(*reminderService)

// WithClock sets the source of "now". Its location decides the zone of new reminders.
func WithClock(now func() time.Time) ReminderServiceOption {
	return func(s *reminderService) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) ReminderServiceOption {
	return func(s *reminderService) { s.newID = newID }
}

// NewReminderService creates a new instance of ReminderService implementation. rec may be nil.
func NewReminderService(
	reminderRepo repository.ReminderRepository,
	scheduler NotificationScheduler,
	log logger.Logger,
	rec *metrics.Recorder,
	opts ...ReminderServiceOption,
) ReminderService {
	s := &reminderService{
		reminderRepo: reminderRepo,
		scheduler:    scheduler,
		log:          log.With("reminders"),
		metrics:      rec,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddReminder saves first and schedules second. The saved reminder is never rolled back.
func (s *reminderService) AddReminder(ctx context.Context, req dto.CreateReminderRequest) (reminder entity.Reminder, err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowAdd, err) }()

	tod, err := entity.ParseTimeOfDay(req.Time)
	if err != nil {
		return entity.Reminder{}, appErrors.Wrap(appErrors.ErrInvalidTimeOfDay, err)
	}
	now := s.now()
	id := s.newID()
	reminder, err = entity.NewReminder(id, req.Name, tod.On(now), now)
	if err != nil {
		return entity.Reminder{}, err
	}
	reminder = reminder.WithNotificationID(entity.NotificationIDFor(id))

	saved, err := s.reminderRepo.Add(ctx, reminder)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to save reminder %q", reminder.Name), err)
		return entity.Reminder{}, storeError(appErrors.ErrSaveFailed, err)
	}
	s.log.Info(fmt.Sprintf("Saved reminder %s", saved))

	if _, err := s.scheduler.Schedule(ctx, saved); err != nil {
		s.log.Warn(fmt.Sprintf("Reminder %s saved but not scheduled: %v", saved.ID, err))
		return saved, err
	}
	return saved, nil
}

// CompleteReminder persists completion, then cancels the primary alert.
func (s *reminderService) CompleteReminder(ctx context.Context, reminderID string) (completed entity.Reminder, err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowComplete, err) }()

	reminder, err := s.lookup(ctx, reminderID)
	if err != nil {
		return entity.Reminder{}, err
	}

	completed, err = s.reminderRepo.MarkComplete(ctx, reminder.ID, s.now())
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to complete reminder %s", reminder.ID), err)
		return entity.Reminder{}, storeError(appErrors.ErrSaveFailed, err)
	}

	s.cancelBestEffort(ctx, completed)
	s.log.Info(fmt.Sprintf("Completed reminder %s", completed.ID))
	return completed, nil
}

func (s *reminderService) ReopenReminder(ctx context.Context, reminderID string) (reopened entity.Reminder, err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowReopen, err) }()

	reopened, err = s.reminderRepo.MarkIncomplete(ctx, reminderID)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			s.log.Error(fmt.Sprintf("Failed to reopen reminder %s", reminderID), err)
		}
		return entity.Reminder{}, storeError(appErrors.ErrSaveFailed, err)
	}

	if _, err := s.scheduler.Schedule(ctx, reopened); err != nil {
		s.log.Warn(fmt.Sprintf("Reopened reminder %s but could not schedule it: %v", reopened.ID, err))
	}
	s.log.Info(fmt.Sprintf("Reopened reminder %s", reopened.ID))
	return reopened, nil
}

// DeleteReminder cancels the alert before deleting so no alert outlives its reminder.
func (s *reminderService) DeleteReminder(ctx context.Context, reminderID string) (err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowDelete, err) }()

	reminder, err := s.lookup(ctx, reminderID)
	if err != nil {
		return err
	}

	s.cancelBestEffort(ctx, reminder)

	if err := s.reminderRepo.Delete(ctx, reminder.ID); err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete reminder %s", reminder.ID), err)
		return storeError(appErrors.ErrDeleteFailed, err)
	}
	s.log.Info(fmt.Sprintf("Deleted reminder %s", reminder.ID))
	return nil
}

func (s *reminderService) ClearCompleted(ctx context.Context) (removed int, err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowClear, err) }()

	completed, err := s.reminderRepo.GetCompleted(ctx)
	if err != nil {
		return 0, storeError(appErrors.ErrFetchFailed, err)
	}
	for _, reminder := range completed {
		s.cancelBestEffort(ctx, reminder)
	}
	if err := s.reminderRepo.DeleteAllCompleted(ctx); err != nil {
		s.log.Error("Failed to delete completed reminders", err)
		return 0, storeError(appErrors.ErrDeleteFailed, err)
	}
	s.log.Info(fmt.Sprintf("Cleared %d completed reminders", len(completed)))
	return len(completed), nil
}

func (s *reminderService) RestoreSchedules(ctx context.Context) (int, error) {
	s.log.Info("Restoring alerts from the reminder store...")
	active, err := s.reminderRepo.GetActive(ctx)
	if err != nil {
		s.log.Error("Failed to retrieve reminders for restore", err)
		return 0, storeError(appErrors.ErrFetchFailed, err)
	}

	scheduled := 0
	for _, reminder := range active {
		if _, err := s.scheduler.Schedule(ctx, reminder); err != nil {
			s.log.Error(fmt.Sprintf("Failed to schedule reminder %s during restore", reminder.ID), err)
			continue
		}
		scheduled++
	}
	s.log.Info(fmt.Sprintf("Restore complete. Scheduled: %d of %d active", scheduled, len(active)))
	return scheduled, nil
}

// HandleNotificationAction runs the notification side first; a complete action
// then completes the reminder in the store.
func (s *reminderService) HandleNotificationAction(ctx context.Context, req dto.NotificationActionRequest) (err error) {
	defer func() { s.metrics.ObserveFlow(metrics.FlowAction, err) }()

	if err := s.scheduler.HandleAction(ctx, req.ActionID, req.Payload()); err != nil {
		return err
	}
	if req.ActionID != constant.ActionComplete {
		return nil
	}

	reminder, err := s.lookup(ctx, req.ReminderID)
	if err != nil {
		return err
	}
	if reminder.IsCompleted {
		return nil
	}
	_, err = s.CompleteReminder(ctx, reminder.ID)
	return err
}

func (s *reminderService) GetReminder(ctx context.Context, reminderID string) (entity.Reminder, error) {
	return s.lookup(ctx, reminderID)
}

func (s *reminderService) lookup(ctx context.Context, reminderID string) (entity.Reminder, error) {
	reminder, err := s.reminderRepo.GetByID(ctx, reminderID)
	if err != nil {
		return entity.Reminder{}, storeError(appErrors.ErrFetchFailed, err)
	}
	return reminder, nil
}

// cancelBestEffort removes a reminder's primary alert. Failures are only logged.
func (s *reminderService) cancelBestEffort(ctx context.Context, reminder entity.Reminder) {
	if err := s.scheduler.Cancel(ctx, reminder.PrimaryNotificationID()); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cancel alert of reminder %s", reminder.ID), err)
	}
}

// storeError keeps classified store errors and classifies the rest as kind.
func storeError(kind, err error) error {
	if errors.Is(err, appErrors.ErrNotFound) || errors.Is(err, appErrors.ErrPersistence) {
		return err
	}
	return appErrors.Wrap(kind, err)
}
