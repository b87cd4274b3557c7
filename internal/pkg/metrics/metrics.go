// Package metrics exposes reminder flow and notification counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Flow names.
const (
	FlowAdd      = "add"
	FlowComplete = "complete"
	FlowDelete   = "delete"
	FlowReopen   = "reopen"
	FlowClear    = "clear_completed"
	FlowAction   = "action"
)

// Notification event kinds.
const (
	NotificationScheduled = "scheduled"
	NotificationCancelled = "cancelled"
	NotificationSnoozed   = "snoozed"
	NotificationDelivered = "delivered"
	NotificationFailed    = "failed"
)

// Recorder owns the collectors. A nil *Recorder records nothing.
type Recorder struct {
	flows         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pending       prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reminders",
			Name:      "flow_total",
			Help:      "Use-case invocations by flow and result.",
		}, []string{"flow", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reminders",
			Name:      "notifications_total",
			Help:      "Notification side effects by kind.",
		}, []string{"kind"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reminders",
			Name:      "pending_alerts",
			Help:      "Alerts currently registered with the notification center.",
		}),
	}
	reg.MustRegister(r.flows, r.notifications, r.pending)
	return r
}

// ObserveFlow counts one flow invocation as ok or error.
func (r *Recorder) ObserveFlow(flow string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.flows.WithLabelValues(flow, result).Inc()
}

// IncNotification counts one notification side effect.
func (r *Recorder) IncNotification(kind string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(kind).Inc()
}

// SetPending records the size of the pending set.
func (r *Recorder) SetPending(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}
