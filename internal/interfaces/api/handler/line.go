package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"reminders/internal/application/dto"
	"reminders/internal/application/service"
	"reminders/internal/domain/constant"
	"reminders/internal/infrastructure/line"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// LineClient is the part of the LINE client the webhook needs.
type LineClient interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
	SendMessages(ctx context.Context, replyToken string, messages ...linebot.SendingMessage) error
}

// LineHandler handles incoming LINE webhook events.
type LineHandler struct {
	lineClient      LineClient
	reminderService service.ReminderService
	log             logger.Logger
}

// NewLineHandler creates a new LineHandler.
func NewLineHandler(lineClient LineClient, reminderService service.ReminderService, log logger.Logger) *LineHandler {
	return &LineHandler{
		lineClient:      lineClient,
		reminderService: reminderService,
		log:             log,
	}
}

// HandleWebhook is the main entry point for webhook requests.
func (h *LineHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.lineClient.ParseRequest(c.Request())
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.log.Warn("Invalid LINE signature received")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		h.log.Error("Failed to parse LINE webhook request", err)
		return c.String(http.StatusInternalServerError, "Error parsing request")
	}

	for _, event := range events {
		h.log.Debug(fmt.Sprintf("Processing event type: %s", event.Type))
		switch event.Type {
		case linebot.EventTypePostback:
			h.handlePostbackEvent(ctx, event)
		case linebot.EventTypeFollow:
			h.log.Info(fmt.Sprintf("Followed by %s", userID(event)))
		default:
			h.log.Debug(fmt.Sprintf("Unhandled event type: %s", event.Type))
		}
	}

	// LINE retries on anything but 200, so event-level failures are only logged.
	return c.String(http.StatusOK, "OK")
}

// handlePostbackEvent turns a quick-reply tap on a delivered alert into a notification action.
func (h *LineHandler) handlePostbackEvent(ctx context.Context, event *linebot.Event) {
	if event.Postback == nil {
		return
	}
	actionID, payload, err := line.DecodeActionData(event.Postback.Data)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Ignoring postback from %s: %v", userID(event), err))
		return
	}

	req := dto.NotificationActionRequest{
		ActionID:     actionID,
		ReminderID:   payload.ReminderID,
		ReminderName: payload.ReminderName,
	}
	reply := postbackReply(actionID, payload.ReminderName)
	if err := h.reminderService.HandleNotificationAction(ctx, req); err != nil {
		h.log.Error(fmt.Sprintf("Failed to handle %s for reminder %s", actionID, payload.ReminderID), err)
		reply = "Sorry, that did not work."
		if errors.Is(err, appErrors.ErrNotFound) {
			reply = "That reminder no longer exists."
		}
	}
	if reply == "" {
		return
	}
	if err := h.lineClient.SendMessages(ctx, event.ReplyToken, linebot.NewTextMessage(reply)); err != nil {
		h.log.Error("Failed to send postback reply", err)
	}
}

func postbackReply(actionID, name string) string {
	switch actionID {
	case constant.ActionComplete:
		return fmt.Sprintf("Completed: %s", name)
	case constant.ActionSnooze:
		return fmt.Sprintf("Snoozed %q for %d minutes.", name, int(constant.SnoozeDelay.Minutes()))
	default:
		return ""
	}
}

func userID(event *linebot.Event) string {
	if event.Source == nil {
		return "unknown"
	}
	return event.Source.UserID
}
