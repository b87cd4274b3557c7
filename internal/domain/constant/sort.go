package constant

import "fmt"

// SortField names a reminder attribute the query layer can order by.
type SortField string

const (
	SortByName             SortField = "name"
	SortByNotificationTime SortField = "notificationTime"
	SortByCreatedAt        SortField = "createdAt"
	SortByCompletedAt      SortField = "completedAt"
)

// ParseSortField maps an API value to a SortField. Empty means notification time.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "", SortByNotificationTime:
		return SortByNotificationTime, nil
	case SortByName, SortByCreatedAt, SortByCompletedAt:
		return SortField(s), nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// Filter selects a subset of reminders.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterOverdue   Filter = "overdue"
)

// ParseFilter maps an API value to a Filter. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive, FilterCompleted, FilterOverdue:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}
