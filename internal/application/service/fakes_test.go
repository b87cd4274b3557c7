package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"reminders/internal/domain/constant"
	"reminders/internal/domain/entity"
	"reminders/internal/domain/notification"
	"reminders/internal/domain/repository"
)

// callLog records collaborator calls across fakes so ordering is observable.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.all() {
		if c == call {
			n++
		}
	}
	return n
}

// fakeCenter is an in-memory notification.Center.
type fakeCenter struct {
	mu        sync.Mutex
	granted   bool
	addErr    error
	removeErr error
	pending   map[string]notification.Request
	adds      int
}

func newFakeCenter() *fakeCenter {
	return &fakeCenter{granted: true, pending: make(map[string]notification.Request)}
}

func (c *fakeCenter) RequestPermission(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.granted, nil
}

func (c *fakeCenter) Add(_ context.Context, req notification.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds++
	if c.addErr != nil {
		return c.addErr
	}
	c.pending[req.Identifier] = req
	return nil
}

func (c *fakeCenter) Remove(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	for _, id := range ids {
		delete(c.pending, id)
	}
	return nil
}

func (c *fakeCenter) RemoveAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]notification.Request)
	return nil
}

func (c *fakeCenter) ListPending(context.Context) ([]notification.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := make([]notification.Request, 0, len(c.pending))
	for _, req := range c.pending {
		list = append(list, req)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Identifier < list[j].Identifier })
	return list, nil
}

// fakeScheduler records every call into a shared log.
type fakeScheduler struct {
	log         *callLog
	scheduleErr error
	cancelErr   error
	actionErr   error
}

func (s *fakeScheduler) RequestPermission(context.Context) (bool, error) { return true, nil }

func (s *fakeScheduler) Schedule(_ context.Context, r entity.Reminder) (string, error) {
	s.log.add("scheduler.Schedule")
	if s.scheduleErr != nil {
		return "", s.scheduleErr
	}
	return r.PrimaryNotificationID(), nil
}

func (s *fakeScheduler) Cancel(context.Context, string) error {
	s.log.add("scheduler.Cancel")
	return s.cancelErr
}

func (s *fakeScheduler) CancelAll(context.Context) error {
	s.log.add("scheduler.CancelAll")
	return nil
}

func (s *fakeScheduler) ListPending(context.Context) ([]notification.Request, error) {
	return nil, nil
}

func (s *fakeScheduler) HandleAction(_ context.Context, actionID string, _ notification.Payload) error {
	s.log.add("scheduler.HandleAction:" + actionID)
	return s.actionErr
}

func (s *fakeScheduler) StateOf(context.Context, entity.Reminder) (constant.NotificationState, error) {
	return constant.StateUnscheduled, nil
}

// recordingRepo wraps a repository, logging calls and injecting failures by method name.
type recordingRepo struct {
	repository.ReminderRepository
	log    *callLog
	failOn map[string]error
}

func (r *recordingRepo) call(name string) error {
	r.log.add("store." + name)
	return r.failOn[name]
}

func (r *recordingRepo) GetByID(ctx context.Context, id string) (entity.Reminder, error) {
	if err := r.call("GetByID"); err != nil {
		return entity.Reminder{}, err
	}
	return r.ReminderRepository.GetByID(ctx, id)
}

func (r *recordingRepo) Add(ctx context.Context, rem entity.Reminder) (entity.Reminder, error) {
	if err := r.call("Add"); err != nil {
		return entity.Reminder{}, err
	}
	return r.ReminderRepository.Add(ctx, rem)
}

func (r *recordingRepo) Delete(ctx context.Context, id string) error {
	if err := r.call("Delete"); err != nil {
		return err
	}
	return r.ReminderRepository.Delete(ctx, id)
}

func (r *recordingRepo) MarkComplete(ctx context.Context, id string, at time.Time) (entity.Reminder, error) {
	if err := r.call("MarkComplete"); err != nil {
		return entity.Reminder{}, err
	}
	return r.ReminderRepository.MarkComplete(ctx, id, at)
}

func (r *recordingRepo) MarkIncomplete(ctx context.Context, id string) (entity.Reminder, error) {
	if err := r.call("MarkIncomplete"); err != nil {
		return entity.Reminder{}, err
	}
	return r.ReminderRepository.MarkIncomplete(ctx, id)
}

func (r *recordingRepo) GetAll(ctx context.Context) ([]entity.Reminder, error) {
	if err := r.call("GetAll"); err != nil {
		return nil, err
	}
	return r.ReminderRepository.GetAll(ctx)
}

func (r *recordingRepo) DeleteAllCompleted(ctx context.Context) error {
	if err := r.call("DeleteAllCompleted"); err != nil {
		return err
	}
	return r.ReminderRepository.DeleteAllCompleted(ctx)
}

var errDiskFull = errors.New("disk full")
