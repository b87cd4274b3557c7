package scheduler

import (
	"context"
	"errors"
	"fmt"

	"reminders/internal/domain/notification"
	"reminders/internal/pkg/logger"
)

// LogSink writes fired alerts to the log.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, req notification.Request) error {
	s.log.Info(fmt.Sprintf("🔔 %s: %s [%s]", req.Title, req.Body, req.Identifier))
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []notification.Sink

func (m MultiSink) Deliver(ctx context.Context, req notification.Request) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
