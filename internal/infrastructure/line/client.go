// Package line delivers fired alerts to a LINE user and decodes the postback
// actions the user sends back.
package line

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"reminders/internal/domain/constant"
	"reminders/internal/domain/notification"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Postback data keys.
const (
	keyAction       = "action"
	keyReminderID   = "reminder_id"
	keyReminderName = "reminder_name"
)

// Client wraps the linebot.Client.
type Client struct {
	bot         *linebot.Client
	recipientID string
	log         logger.Logger
}

// NewClient creates a LINE Bot client that pushes alerts to recipientID.
func NewClient(channelSecret, channelToken, recipientID string, log logger.Logger, opts ...linebot.ClientOption) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, fmt.Errorf("LINE channel secret and access token must be set")
	}
	bot, err := linebot.New(channelSecret, channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE Bot client: %w", err)
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{bot: bot, recipientID: recipientID, log: log}, nil
}

// Deliver pushes a fired alert with complete and snooze quick replies.
func (c *Client) Deliver(ctx context.Context, req notification.Request) error {
	text := req.Title
	if req.Body != "" {
		text += "\n" + req.Body
	}
	textMsg := linebot.NewTextMessage(text)
	var msg linebot.SendingMessage = textMsg
	if req.Category == constant.CategoryReminderAlert && req.Payload.ReminderID != "" {
		msg = textMsg.WithQuickReplies(linebot.NewQuickReplyItems(
			linebot.NewQuickReplyButton("", postback("Mark Complete", constant.ActionComplete, req.Payload)),
			linebot.NewQuickReplyButton("", postback("Snooze 10m", constant.ActionSnooze, req.Payload)),
		))
	}
	if err := c.PushMessages(ctx, c.recipientID, msg); err != nil {
		return fmt.Errorf("push alert %s: %w", req.Identifier, err)
	}
	return nil
}

func postback(label, actionID string, payload notification.Payload) *linebot.PostbackAction {
	return &linebot.PostbackAction{
		Label:       label,
		Data:        EncodeActionData(actionID, payload),
		DisplayText: label,
	}
}

// SendMessages sends one or more messages using the ReplyMessage API.
func (c *Client) SendMessages(ctx context.Context, replyToken string, messages ...linebot.SendingMessage) error {
	if _, err := c.bot.ReplyMessage(replyToken, messages...).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug("Successfully sent reply message.")
	return nil
}

// PushMessages sends one or more messages using the PushMessage API.
func (c *Client) PushMessages(ctx context.Context, to string, messages ...linebot.SendingMessage) error {
	if _, err := c.bot.PushMessage(to, messages...).WithContext(ctx).Do(); err != nil {
		return err
	}
	c.log.Debug(fmt.Sprintf("Successfully sent push message to %s.", to))
	return nil
}

// ParseRequest parses and verifies incoming webhook requests.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

// EncodeActionData builds postback data naming the action and the reminder.
func EncodeActionData(actionID string, payload notification.Payload) string {
	v := url.Values{}
	v.Set(keyAction, actionID)
	v.Set(keyReminderID, payload.ReminderID)
	v.Set(keyReminderName, payload.ReminderName)
	return v.Encode()
}

// DecodeActionData parses postback data produced by EncodeActionData.
func DecodeActionData(data string) (string, notification.Payload, error) {
	v, err := url.ParseQuery(data)
	if err != nil {
		return "", notification.Payload{}, appErrors.Wrap(appErrors.ErrInvalidAction, err)
	}
	payload := notification.Payload{
		ReminderID:   v.Get(keyReminderID),
		ReminderName: v.Get(keyReminderName),
	}
	if payload.ReminderID == "" {
		return "", notification.Payload{}, fmt.Errorf("%w: postback without reminder id", appErrors.ErrInvalidAction)
	}
	return v.Get(keyAction), payload, nil
}
