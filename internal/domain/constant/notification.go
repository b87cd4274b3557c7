package constant

import "time"

const (
	// NotificationLeadTime is how long before the target time-of-day the alert fires.
	NotificationLeadTime = 10 * time.Minute
	// SnoozeDelay is the delay of the one-shot alert created by a snooze action.
	SnoozeDelay = 10 * time.Minute
)

// Action identifiers carried by notification responses.
const (
	ActionComplete = "COMPLETE_ACTION"
	ActionSnooze   = "SNOOZE_ACTION"
	ActionDefault  = "DEFAULT_ACTION"
)

// Identifier prefixes for pending alerts.
const (
	PrimaryIDPrefix = "reminder-"
	SnoozeIDPrefix  = "snooze-"
)

// CategoryReminderAlert groups alerts that offer complete and snooze actions.
const CategoryReminderAlert = "REMINDER_ALERT"
