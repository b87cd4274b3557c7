// Package scheduler is the local notification center: pending alerts are cron
// entries, and a fired entry is handed to a notification.Sink.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reminders/internal/domain/notification"
	appErrors "reminders/internal/pkg/errors"
	"reminders/internal/pkg/logger"
	"reminders/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

const deliverTimeout = 30 * time.Second

type pendingEntry struct {
	entryID cron.EntryID
	req     notification.Request
}

// LocalCenter implements notification.Center on top of robfig/cron.
type LocalCenter struct {
	cron       *cron.Cron
	sink       notification.Sink
	log        logger.Logger
	metrics    *metrics.Recorder
	permission bool
	location   *time.Location

	mu      sync.Mutex // guards pending
	pending map[string]pendingEntry
}

// Option configures a LocalCenter.
type Option func(*LocalCenter)

// WithPermission sets whether alerts may be delivered. Defaults to true.
func WithPermission(granted bool) Option {
	return func(c *LocalCenter) { c.permission = granted }
}

// WithLocation sets the zone daily triggers are evaluated in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *LocalCenter) { c.location = loc }
}

// WithMetrics counts deliveries and tracks the pending gauge.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *LocalCenter) { c.metrics = rec }
}

// NewLocalCenter creates a center that hands fired alerts to sink.
// Call Start to begin firing and Stop on shutdown.
func NewLocalCenter(sink notification.Sink, log logger.Logger, opts ...Option) *LocalCenter {
	c := &LocalCenter{
		sink:       sink,
		log:        log,
		permission: true,
		location:   time.Local,
		pending:    make(map[string]pendingEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cron = cron.New(cron.WithSeconds(), cron.WithLocation(c.location))
	return c
}

// Start starts the cron scheduler in its own goroutine.
func (c *LocalCenter) Start() {
	c.cron.Start()
	c.log.Info(fmt.Sprintf("Local notification center started (location %s).", c.location))
}

// Stop stops the cron scheduler and waits for running deliveries to complete.
func (c *LocalCenter) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.log.Info("Local notification center stopped.")
}

func (c *LocalCenter) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.permission, nil
}

// Add registers req, replacing any pending request with the same identifier.
// Nothing is registered when cron rejects the trigger.
func (c *LocalCenter) Add(ctx context.Context, req notification.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.permission {
		return appErrors.ErrPermissionDenied
	}
	if req.Identifier == "" {
		return fmt.Errorf("notification request needs an identifier")
	}
	if err := req.Trigger.Validate(); err != nil {
		return err
	}

	schedule, err := c.scheduleFor(req.Trigger)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.pending[req.Identifier]; ok {
		c.cron.Remove(old.entryID)
	}
	identifier := req.Identifier
	var entryID cron.EntryID
	entryID = c.cron.Schedule(schedule, cron.FuncJob(func() { c.fire(identifier, entryID) }))
	c.pending[identifier] = pendingEntry{entryID: entryID, req: req}
	c.metrics.SetPending(len(c.pending))

	c.log.Debug(fmt.Sprintf("Registered alert %s (%s) as cron entry %d", identifier, req.Trigger, entryID))
	return nil
}

// Remove drops the given identifiers. Unknown identifiers are ignored.
func (c *LocalCenter) Remove(ctx context.Context, identifiers ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range identifiers {
		if entry, ok := c.pending[id]; ok {
			c.cron.Remove(entry.entryID)
			delete(c.pending, id)
			c.log.Debug(fmt.Sprintf("Removed alert %s (cron entry %d)", id, entry.entryID))
		}
	}
	c.metrics.SetPending(len(c.pending))
	return nil
}

// RemoveAll drops every pending request.
func (c *LocalCenter) RemoveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.pending {
		c.cron.Remove(entry.entryID)
		delete(c.pending, id)
	}
	c.metrics.SetPending(0)
	return nil
}

// ListPending returns the pending requests ordered by identifier.
func (c *LocalCenter) ListPending(ctx context.Context) ([]notification.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	list := make([]notification.Request, 0, len(c.pending))
	for _, entry := range c.pending {
		list = append(list, entry.req)
	}
	c.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Identifier < list[j].Identifier })
	return list, nil
}

// NextFire reports when the pending alert fires next. Zero if unknown or not yet started.
func (c *LocalCenter) NextFire(identifier string) time.Time {
	c.mu.Lock()
	entry, ok := c.pending[identifier]
	c.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return c.cron.Entry(entry.entryID).Next
}

func (c *LocalCenter) scheduleFor(t notification.Trigger) (cron.Schedule, error) {
	if t.Repeats {
		spec := fmt.Sprintf("0 %d %d * * *", t.Minute, t.Hour)
		schedule, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid daily trigger %q: %w", spec, err)
		}
		return schedule, nil
	}
	return onceSchedule{at: time.Now().In(c.location).Add(t.Delay)}, nil
}

// fire delivers a pending alert. One-shot alerts are unregistered first.
func (c *LocalCenter) fire(identifier string, entryID cron.EntryID) {
	c.mu.Lock()
	entry, ok := c.pending[identifier]
	if !ok || entry.entryID != entryID {
		c.mu.Unlock()
		return // replaced or removed while queued
	}
	if !entry.req.Trigger.Repeats {
		c.cron.Remove(entryID)
		delete(c.pending, identifier)
		c.metrics.SetPending(len(c.pending))
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	c.log.Info(fmt.Sprintf("Alert %s fired for reminder %s", identifier, entry.req.Payload.ReminderID))
	if err := c.sink.Deliver(ctx, entry.req); err != nil {
		c.metrics.IncNotification(metrics.NotificationFailed)
		c.log.Error(fmt.Sprintf("Failed to deliver alert %s", identifier), err)
		return
	}
	c.metrics.IncNotification(metrics.NotificationDelivered)
}

// onceSchedule fires at a single instant. cron never reruns an entry whose
// next activation is the zero time.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}
