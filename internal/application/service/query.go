package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"reminders/internal/application/dto"
	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/domain/repository"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/eventbus"
	"reminders/internal/pkg/logger"
)

// Active returns the reminders that are not completed.
func Active(reminders []entity.Reminder) []entity.Reminder {
	return filter(reminders, func(r entity.Reminder) bool { return !r.IsCompleted })
}

// Completed returns the completed reminders.
func Completed(reminders []entity.Reminder) []entity.Reminder {
	return filter(reminders, func(r entity.Reminder) bool { return r.IsCompleted })
}

// Overdue returns the active reminders whose time of day has passed at now.
func Overdue(reminders []entity.Reminder, now time.Time) []entity.Reminder {
	return filter(reminders, func(r entity.Reminder) bool { return r.IsOverdueAt(now) })
}

// Search matches query case-insensitively against names. An empty query matches everything.
func Search(reminders []entity.Reminder, query string) []entity.Reminder {
	if query == "" {
		return append([]entity.Reminder(nil), reminders...)
	}
	q := strings.ToLower(query)
	return filter(reminders, func(r entity.Reminder) bool { return strings.Contains(strings.ToLower(r.Name), q) })
}

// SortBy returns a stably sorted copy. Ties keep their input order in both directions.
// A missing CompletedAt sorts as the earliest possible time.
func SortBy(reminders []entity.Reminder, field constant.SortField, ascending bool) []entity.Reminder {
	sorted := append([]entity.Reminder(nil), reminders...)
	less := lessFor(field)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return less(sorted[i], sorted[j])
		}
		return less(sorted[j], sorted[i])
	})
	return sorted
}

func lessFor(field constant.SortField) func(a, b entity.Reminder) bool {
	switch field {
	case constant.SortByName:
		return func(a, b entity.Reminder) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case constant.SortByCreatedAt:
		return func(a, b entity.Reminder) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case constant.SortByCompletedAt:
		return func(a, b entity.Reminder) bool { return completedAt(a).Before(completedAt(b)) }
	default:
		return func(a, b entity.Reminder) bool { return a.TimeOfDay().Minutes() < b.TimeOfDay().Minutes() }
	}
}

func completedAt(r entity.Reminder) time.Time {
	if r.CompletedAt == nil {
		return time.Time{}
	}
	return *r.CompletedAt
}

func filter(reminders []entity.Reminder, keep func(entity.Reminder) bool) []entity.Reminder {
	out := make([]entity.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// QueryService serves filtered, searched and sorted views of the store.
// The loaded reminder set is cached until the store publishes a change.
type QueryService struct {
	reminderRepo repository.ReminderRepository
	log          logger.Logger
	now          func() time.Time
	unsubscribe  func()

	mu       sync.Mutex
	cached   []entity.Reminder
	valid    bool
	loads    int
	revision uint64 // bumped on every change, guards against caching stale loads
}

// NewQueryService creates a query service invalidated by bus. now defaults to time.Now.
func NewQueryService(reminderRepo repository.ReminderRepository, bus *eventbus.Bus, log logger.Logger, now func() time.Time) *QueryService {
	if now == nil {
		now = time.Now
	}
	q := &QueryService{
		reminderRepo: reminderRepo,
		log:          log.With("query"),
		now:          now,
		unsubscribe:  func() {},
	}
	if bus != nil {
		q.unsubscribe = bus.Subscribe(q.invalidate)
	}
	return q
}

// Close stops listening for store changes.
func (q *QueryService) Close() {
	q.unsubscribe()
}

func (q *QueryService) invalidate(ev eventbus.Changed) {
	q.mu.Lock()
	q.valid = false
	q.cached = nil
	q.revision++
	q.mu.Unlock()
	q.log.Debug(fmt.Sprintf("Reminder list invalidated (%s %s)", ev.Op, ev.ReminderID))
}

// All returns every reminder in store order.
func (q *QueryService) All(ctx context.Context) ([]entity.Reminder, error) {
	q.mu.Lock()
	if q.valid {
		list := append([]entity.Reminder(nil), q.cached...)
		q.mu.Unlock()
		return list, nil
	}
	rev := q.revision
	q.mu.Unlock()

	list, err := q.reminderRepo.GetAll(ctx)
	if err != nil {
		return nil, storeError(appErrors.ErrFetchFailed, err)
	}

	q.mu.Lock()
	q.loads++
	if q.revision == rev {
		q.cached = append([]entity.Reminder(nil), list...)
		q.valid = true
	}
	q.mu.Unlock()
	return list, nil
}

// List applies the request's filter, then search, then sort.
func (q *QueryService) List(ctx context.Context, req dto.ListRemindersRequest) ([]entity.Reminder, error) {
	f, err := constant.ParseFilter(req.Filter)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInvalidQuery, err)
	}
	field, err := constant.ParseSortField(req.Sort)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInvalidQuery, err)
	}
	var ascending bool
	switch strings.ToLower(req.Order) {
	case "", "asc":
		ascending = true
	case "desc":
		ascending = false
	default:
		return nil, fmt.Errorf("%w: unknown order %q", appErrors.ErrInvalidQuery, req.Order)
	}

	list, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	switch f {
	case constant.FilterActive:
		list = Active(list)
	case constant.FilterCompleted:
		list = Completed(list)
	case constant.FilterOverdue:
		list = Overdue(list, q.now())
	}
	list = Search(list, req.Query)
	if req.Sort == "" && req.Order == "" {
		return list, nil
	}
	return SortBy(list, field, ascending), nil
}
