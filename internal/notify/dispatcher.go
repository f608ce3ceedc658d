// Package notify delivers workflow events to observers after a transition has
// committed. Delivery is best-effort: the workflow never waits on observers
// and never rolls back because one of them failed.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/workflow"
	"github.com/rs/zerolog"
)

// Dispatcher is the surface the workflow service depends on
type Dispatcher interface {
	Notify(ctx context.Context, event models.Event) error
}

// Observer receives every dispatched event
type Observer interface {
	Name() string
	Update(ctx context.Context, event models.Event) error
}

// Manager fans events out to observers from a fixed worker pool
type Manager struct {
	observers map[string]Observer
	events    chan models.Event
	workers   int
	log       zerolog.Logger
	metrics   *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager starts workers goroutines reading from a queue of queueSize
func NewManager(workers, queueSize int, log zerolog.Logger, m *metrics.Metrics) *Manager {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	nm := &Manager{
		observers: make(map[string]Observer),
		events:    make(chan models.Event, queueSize),
		workers:   workers,
		log:       log.With().Str("component", "notify").Logger(),
		metrics:   m,
	}

	for i := 0; i < workers; i++ {
		nm.wg.Add(1)
		go nm.processEvents()
	}

	nm.log.Info().Int("workers", workers).Int("queue_size", queueSize).Msg("Notification manager started")
	return nm
}

// Subscribe registers observer, replacing any with the same name
func (nm *Manager) Subscribe(observer Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.observers[observer.Name()] = observer
	nm.log.Info().Str("observer", observer.Name()).Msg("Observer subscribed")
}

// Unsubscribe removes observer
func (nm *Manager) Unsubscribe(observer Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.observers, observer.Name())
	nm.log.Info().Str("observer", observer.Name()).Msg("Observer unsubscribed")
}

// Notify enqueues event without blocking. A full queue or a stopped manager
// drops the event and returns ErrDispatchFailure.
func (nm *Manager) Notify(_ context.Context, event models.Event) error {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	if nm.closed {
		nm.metrics.Dispatch("queue", metrics.OutcomeDropped)
		return fmt.Errorf("%w: manager stopped", workflow.ErrDispatchFailure)
	}

	select {
	case nm.events <- event:
		return nil
	default:
		nm.metrics.Dispatch("queue", metrics.OutcomeDropped)
		return fmt.Errorf("%w: queue full, dropping event %s", workflow.ErrDispatchFailure, event.ID)
	}
}

// Deliver runs every observer for event on the calling goroutine and returns
// the number of observers that failed
func (nm *Manager) Deliver(ctx context.Context, event models.Event) int {
	nm.mu.RLock()
	observers := make([]Observer, 0, len(nm.observers))
	for _, obs := range nm.observers {
		observers = append(observers, obs)
	}
	nm.mu.RUnlock()

	failed := 0
	for _, observer := range observers {
		if err := nm.update(ctx, observer, event); err != nil {
			failed++
			nm.metrics.Dispatch(observer.Name(), metrics.OutcomeError)
			nm.log.Error().
				Err(err).
				Str("observer", observer.Name()).
				Str("event_id", event.ID).
				Str("record_id", event.RecordID).
				Msg("Observer update failed")
			continue
		}
		nm.metrics.Dispatch(observer.Name(), metrics.OutcomeSuccess)
	}
	return failed
}

// update isolates observer panics so one bad observer cannot kill a worker
func (nm *Manager) update(ctx context.Context, observer Observer, event models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: observer panicked: %v", workflow.ErrDispatchFailure, r)
		}
	}()
	return observer.Update(ctx, event)
}

func (nm *Manager) processEvents() {
	defer nm.wg.Done()
	for event := range nm.events {
		nm.Deliver(context.Background(), event)
	}
}

// Shutdown stops accepting events, drains the queue and waits for workers
func (nm *Manager) Shutdown() {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return
	}
	nm.closed = true
	close(nm.events)
	nm.mu.Unlock()

	nm.wg.Wait()
	nm.log.Info().Msg("Notification manager shutdown complete")
}

// Noop discards every event
type Noop struct{}

func (Noop) Notify(context.Context, models.Event) error { return nil }
