package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reminders/internal/application/dto"
	"reminders/internal/application/service"
	"reminders/internal/domain/entity"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReminderLister serves filtered reminder views.
type ReminderLister interface {
	List(ctx context.Context, req dto.ListRemindersRequest) ([]entity.Reminder, error)
}

// ReminderHandler exposes the reminder use-cases as JSON endpoints.
type ReminderHandler struct {
	reminderService service.ReminderService
	lister          ReminderLister
	scheduler       service.NotificationScheduler
	log             logger.Logger
	now             func() time.Time
}

// NewReminderHandler creates a new ReminderHandler. now defaults to time.Now.
func NewReminderHandler(
	reminderService service.ReminderService,
	lister ReminderLister,
	scheduler service.NotificationScheduler,
	log logger.Logger,
	now func() time.Time,
) *ReminderHandler {
	if now == nil {
		now = time.Now
	}
	return &ReminderHandler{
		reminderService: reminderService,
		lister:          lister,
		scheduler:       scheduler,
		log:             log,
		now:             now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Create handles POST /reminders.
func (h *ReminderHandler) Create(c echo.Context) error {
	var req dto.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	reminder, err := h.reminderService.AddReminder(c.Request().Context(), req)
	if err != nil && !(reminder.ID != "" && errors.Is(err, appErrors.ErrScheduling)) {
		return h.respondError(c, err)
	}

	resp := dto.CreateReminderResponse{
		Reminder:  dto.ToReminderResponse(reminder, h.now()),
		Scheduled: err == nil,
	}
	if err != nil {
		resp.Warning = fmt.Sprintf("saved but not scheduled: %v", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /reminders?filter=&q=&sort=&order=.
func (h *ReminderHandler) List(c echo.Context) error {
	var req dto.ListRemindersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid query"})
	}
	list, err := h.lister.List(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderResponseList(list, h.now()))
}

// Get handles GET /reminders/:id.
func (h *ReminderHandler) Get(c echo.Context) error {
	reminder, err := h.reminderService.GetReminder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderResponse(reminder, h.now()))
}

// Complete handles POST /reminders/:id/complete.
func (h *ReminderHandler) Complete(c echo.Context) error {
	reminder, err := h.reminderService.CompleteReminder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderResponse(reminder, h.now()))
}

// Reopen handles POST /reminders/:id/reopen.
func (h *ReminderHandler) Reopen(c echo.Context) error {
	reminder, err := h.reminderService.ReopenReminder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderResponse(reminder, h.now()))
}

// Delete handles DELETE /reminders/:id.
func (h *ReminderHandler) Delete(c echo.Context) error {
	if err := h.reminderService.DeleteReminder(c.Request().Context(), c.Param("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearCompleted handles DELETE /reminders/completed.
func (h *ReminderHandler) ClearCompleted(c echo.Context) error {
	removed, err := h.reminderService.ClearCompleted(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

// Pending handles GET /notifications/pending.
func (h *ReminderHandler) Pending(c echo.Context) error {
	pending, err := h.scheduler.ListPending(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	list := make([]dto.PendingNotificationResponse, 0, len(pending))
	for _, req := range pending {
		list = append(list, dto.ToPendingNotificationResponse(req))
	}
	return c.JSON(http.StatusOK, list)
}

// Action handles POST /notifications/actions, the inbound side of a delivered alert.
func (h *ReminderHandler) Action(c echo.Context) error {
	var req dto.NotificationActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := h.reminderService.HandleNotificationAction(c.Request().Context(), req); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReminderHandler) respondError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(fmt.Sprintf("%s %s failed", c.Request().Method, c.Path()), err)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrScheduling):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
