package dto

import (
	"time"

	"reminders/internal/domain/entity"
	"reminders/internal/domain/notification"
)

// ReminderResponse is the DTO for sending reminder information to the client.
type ReminderResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Time           string     `json:"time"`       // HH:MM target
	AlertTime      string     `json:"alert_time"` // HH:MM the primary alert fires
	IsCompleted    bool       `json:"is_completed"`
	IsOverdue      bool       `json:"is_overdue"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	NotificationID *string    `json:"notification_id,omitempty"`
}

// ToReminderResponse converts an entity.Reminder to a ReminderResponse DTO, evaluated at now.
func ToReminderResponse(r entity.Reminder, now time.Time) ReminderResponse {
	return ReminderResponse{
		ID:             r.ID,
		Name:           r.Name,
		Time:           r.TimeOfDay().String(),
		AlertTime:      r.LeadTimeOfDay().String(),
		IsCompleted:    r.IsCompleted,
		IsOverdue:      r.IsOverdueAt(now),
		CompletedAt:    r.CompletedAt,
		CreatedAt:      r.CreatedAt,
		NotificationID: r.NotificationID,
	}
}

// ToReminderResponseList converts a slice of entity.Reminder to a slice of ReminderResponse DTOs.
func ToReminderResponseList(reminders []entity.Reminder, now time.Time) []ReminderResponse {
	list := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		list[i] = ToReminderResponse(r, now)
	}
	return list
}

// CreateReminderRequest is the DTO for creating a new reminder.
type CreateReminderRequest struct {
	Name string `json:"name"`
	Time string `json:"time"` // HH:MM, 24h
}

// CreateReminderResponse reports a saved reminder and whether its alert was registered.
type CreateReminderResponse struct {
	Reminder  ReminderResponse `json:"reminder"`
	Scheduled bool             `json:"scheduled"`
	Warning   string           `json:"warning,omitempty"`
}

// ListRemindersRequest selects, searches and orders reminders.
type ListRemindersRequest struct {
	Filter string `query:"filter"` // all, active, completed, overdue
	Query  string `query:"q"`
	Sort   string `query:"sort"`  // name, notificationTime, createdAt, completedAt
	Order  string `query:"order"` // asc (default) or desc
}

// NotificationActionRequest is a user response to a delivered alert.
type NotificationActionRequest struct {
	ActionID     string `json:"action_id"`
	ReminderID   string `json:"reminder_id"`
	ReminderName string `json:"reminder_name"`
}

// Payload returns the notification payload the action refers to.
func (r NotificationActionRequest) Payload() notification.Payload {
	return notification.Payload{ReminderID: r.ReminderID, ReminderName: r.ReminderName}
}

// PendingNotificationResponse describes one pending alert.
type PendingNotificationResponse struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	ReminderID string `json:"reminder_id"`
	Repeats    bool   `json:"repeats"`
	FireTime   string `json:"fire_time,omitempty"` // HH:MM, daily alerts only
	Delay      string `json:"delay,omitempty"`     // one-shot alerts only
}

// ToPendingNotificationResponse converts a pending notification.Request.
func ToPendingNotificationResponse(req notification.Request) PendingNotificationResponse {
	resp := PendingNotificationResponse{
		Identifier: req.Identifier,
		Title:      req.Title,
		Body:       req.Body,
		ReminderID: req.Payload.ReminderID,
		Repeats:    req.Trigger.Repeats,
	}
	if req.Trigger.Repeats {
		resp.FireTime = req.Trigger.TimeOfDay().String()
	} else {
		resp.Delay = req.Trigger.Delay.String()
	}
	return resp
}
