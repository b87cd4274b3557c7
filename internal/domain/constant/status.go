package constant

// NotificationState defines where a reminder's notification identity sits in
// the scheduling lifecycle.
type NotificationState int

const (
	// StateUnscheduled means no primary alert is pending for the reminder.
	StateUnscheduled NotificationState = iota
	// StateScheduled means the daily primary alert is pending.
	StateScheduled
	// StateSnoozedPending means a one-shot snooze alert is pending next to the primary alert.
	StateSnoozedPending
)

func (s NotificationState) Int() int {
	return int(s)
}

func (s NotificationState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateSnoozedPending:
		return "snoozed"
	default:
		return "unscheduled"
	}
}
