package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/domain/notification"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"
	"reminders/internal/pkg/metrics"
)

const (
	alertTitle        = "Reminder"
	snoozedAlertTitle = "Snoozed Reminder"
	alertBodyFormat   = "Time for: %s"
)

type schedulerService struct {
	center  notification.Center
	log     logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	mu         sync.Mutex // guards lastSnooze
	lastSnooze int64
}

// NewSchedulerService creates a new instance of NotificationScheduler implementation.
// rec may be nil; now defaults to time.Now.
func NewSchedulerService(center notification.Center, log logger.Logger, rec *metrics.Recorder, now func() time.Time) NotificationScheduler {
	if now == nil {
		now = time.Now
	}
	return &schedulerService{
		center:  center,
		log:     log.With("scheduler"),
		metrics: rec,
		now:     now,
	}
}

func (s *schedulerService) RequestPermission(ctx context.Context) (bool, error) {
	granted, err := s.center.RequestPermission(ctx)
	if err != nil {
		return false, appErrors.Wrap(appErrors.ErrSchedulingFailed, err)
	}
	return granted, nil
}

// Schedule registers the reminder's daily alert. Nothing is registered on failure.
func (s *schedulerService) Schedule(ctx context.Context, reminder entity.Reminder) (string, error) {
	granted, err := s.RequestPermission(ctx)
	if err != nil {
		return "", err
	}
	if !granted {
		s.log.Warn(fmt.Sprintf("Notification permission denied, reminder %s not scheduled", reminder.ID))
		return "", appErrors.ErrPermissionDenied
	}

	if reminder.NotificationTime.IsZero() {
		return "", fmt.Errorf("%w: reminder %s has no notification time", appErrors.ErrInvalidTime, reminder.ID)
	}
	trigger := notification.Daily(reminder.LeadTimeOfDay())
	if err := trigger.Validate(); err != nil {
		return "", appErrors.Wrap(appErrors.ErrInvalidTime, err)
	}

	identifier := reminder.PrimaryNotificationID()
	req := notification.Request{
		Identifier: identifier,
		Title:      alertTitle,
		Body:       fmt.Sprintf(alertBodyFormat, reminder.Name),
		Category:   constant.CategoryReminderAlert,
		Trigger:    trigger,
		Payload:    notification.Payload{ReminderID: reminder.ID, ReminderName: reminder.Name},
	}
	if err := s.center.Add(ctx, req); err != nil {
		if errors.Is(err, appErrors.ErrScheduling) {
			return "", err
		}
		return "", appErrors.Wrap(appErrors.ErrSchedulingFailed, err)
	}

	s.metrics.IncNotification(metrics.NotificationScheduled)
	s.log.Info(fmt.Sprintf("Scheduled alert %s for reminder %s %s", identifier, reminder.ID, trigger))
	return identifier, nil
}

// Cancel removes a pending alert. Removing an unknown identifier succeeds.
func (s *schedulerService) Cancel(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return nil
	}
	if err := s.center.Remove(ctx, notificationID); err != nil {
		return appErrors.Wrap(appErrors.ErrSchedulingFailed, err)
	}
	s.metrics.IncNotification(metrics.NotificationCancelled)
	s.log.Debug(fmt.Sprintf("Cancelled alert %s", notificationID))
	return nil
}

func (s *schedulerService) CancelAll(ctx context.Context) error {
	if err := s.center.RemoveAll(ctx); err != nil {
		return appErrors.Wrap(appErrors.ErrSchedulingFailed, err)
	}
	s.metrics.SetPending(0)
	s.log.Info("Cancelled all pending alerts")
	return nil
}

func (s *schedulerService) ListPending(ctx context.Context) ([]notification.Request, error) {
	pending, err := s.center.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrSchedulingFailed, err)
	}
	s.metrics.SetPending(len(pending))
	return pending, nil
}

// HandleAction implements the alert action state machine.
func (s *schedulerService) HandleAction(ctx context.Context, actionID string, payload notification.Payload) error {
	if payload.ReminderID == "" {
		return fmt.Errorf("%w: missing reminder id", appErrors.ErrInvalidAction)
	}

	switch actionID {
	case constant.ActionComplete:
		// Cancellation failure leaves a retryable, idempotent cleanup; not surfaced.
		if err := s.Cancel(ctx, entity.NotificationIDFor(payload.ReminderID)); err != nil {
			s.log.Error(fmt.Sprintf("Failed to cancel alert of completed reminder %s", payload.ReminderID), err)
		}
		return nil
	case constant.ActionSnooze:
		return s.snooze(ctx, payload)
	case constant.ActionDefault, "":
		s.log.Info(fmt.Sprintf("Alert of reminder %s opened", payload.ReminderID))
		return nil
	default:
		s.log.Warn(fmt.Sprintf("Ignoring unknown action %q for reminder %s", actionID, payload.ReminderID))
		return nil
	}
}

// snooze registers a one-shot side alert. The primary alert is left alone.
func (s *schedulerService) snooze(ctx context.Context, payload notification.Payload) error {
	if strings.TrimSpace(payload.ReminderName) == "" {
		return fmt.Errorf("%w: snooze needs the reminder name", appErrors.ErrInvalidAction)
	}

	identifier := fmt.Sprintf("%s%s-%d", constant.SnoozeIDPrefix, payload.ReminderID, s.snoozeStamp())
	req := notification.Request{
		Identifier: identifier,
		Title:      snoozedAlertTitle,
		Body:       fmt.Sprintf(alertBodyFormat, payload.ReminderName),
		Category:   constant.CategoryReminderAlert,
		Trigger:    notification.After(constant.SnoozeDelay),
		Payload:    payload,
	}
	if err := s.center.Add(ctx, req); err != nil {
		s.log.Error(fmt.Sprintf("Failed to snooze reminder %s", payload.ReminderID), err)
		return appErrors.SchedulingFailed(err.Error())
	}

	s.metrics.IncNotification(metrics.NotificationSnoozed)
	s.log.Info(fmt.Sprintf("Snoozed reminder %s as %s for %s", payload.ReminderID, identifier, constant.SnoozeDelay))
	return nil
}

// snoozeStamp returns the action time in unix nanos, strictly increasing across calls.
func (s *schedulerService) snoozeStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now().UnixNano()
	if stamp <= s.lastSnooze {
		stamp = s.lastSnooze + 1
	}
	s.lastSnooze = stamp
	return stamp
}

func (s *schedulerService) StateOf(ctx context.Context, reminder entity.Reminder) (constant.NotificationState, error) {
	pending, err := s.ListPending(ctx)
	if err != nil {
		return constant.StateUnscheduled, err
	}
	primary := reminder.PrimaryNotificationID()
	snoozePrefix := constant.SnoozeIDPrefix + reminder.ID + "-"
	state := constant.StateUnscheduled
	for _, req := range pending {
		switch {
		case strings.HasPrefix(req.Identifier, snoozePrefix):
			return constant.StateSnoozedPending, nil
		case req.Identifier == primary:
			state = constant.StateScheduled
		}
	}
	return state, nil
}
