// Package metrics exposes Prometheus counters for the review workflow. All
// methods are safe on a nil *Metrics so components can run without it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeForbidden = "forbidden"
	OutcomeInvalid   = "invalid"
	OutcomeStale     = "stale"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
	OutcomeDropped   = "dropped"
)

// Metrics holds the workflow collectors
type Metrics struct {
	transitions      *prometheus.CounterVec
	bulkItems        *prometheus.CounterVec
	dispatch         *prometheus.CounterVec
	scheduledPublish *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_review_transitions_total",
				Help: "Workflow transition attempts by kind, transition and outcome",
			},
			[]string{"kind", "transition", "outcome"},
		),
		bulkItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_review_bulk_items_total",
				Help: "Items processed by bulk operations by transition and outcome",
			},
			[]string{"transition", "outcome"},
		),
		dispatch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_review_notifications_total",
				Help: "Workflow event deliveries by observer and outcome",
			},
			[]string{"observer", "outcome"},
		),
		scheduledPublish: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_review_scheduled_publish_total",
				Help: "Scheduled publish attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.transitions, m.bulkItems, m.dispatch, m.scheduledPublish)
	}
	return m
}

// Transition counts one single-item workflow attempt
func (m *Metrics) Transition(kind, transition, outcome string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.transitions.WithLabelValues(kind, transition, outcome).Inc()
}

// BulkItem counts one id processed by a bulk run
func (m *Metrics) BulkItem(transition, outcome string) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues(transition, outcome).Inc()
}

// Dispatch counts one event delivery to an observer
func (m *Metrics) Dispatch(observer, outcome string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(observer, outcome).Inc()
}

// ScheduledPublish counts one publish attempt by the scheduler
func (m *Metrics) ScheduledPublish(outcome string) {
	if m == nil {
		return
	}
	m.scheduledPublish.WithLabelValues(outcome).Inc()
}
