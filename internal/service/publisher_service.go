package service

import (
	"context"
	"sync"
	"time"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/repository"
	"github.com/rs/zerolog"
)

// publisherService sweeps Approved records whose schedule is due and
// publishes them as the system actor
type publisherService struct {
	content   repository.ContentRepository
	review    ReviewService
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

// NewPublisherService creates the scheduled publisher. now defaults to time.Now.
func NewPublisherService(content repository.ContentRepository, review ReviewService, cfg config.SchedulerConfig, m *metrics.Metrics, log zerolog.Logger, now func() time.Time) PublisherService {
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &publisherService{
		content:   content,
		review:    review,
		interval:  interval,
		batchSize: batch,
		metrics:   m,
		log:       log.With().Str("service", "publisher").Logger(),
		now:       now,
	}
}

// StartProcessor runs the sweep on a ticker until the context is cancelled
// or StopProcessor is called. It blocks; run it in a goroutine.
func (s *publisherService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("Scheduled publisher started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			s.log.Info().Msg("Scheduled publisher stopping")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(loopCtx); err != nil {
				s.log.Error().Err(err).Msg("Scheduled publish sweep failed")
			}
		}
	}
}

// StopProcessor stops the loop and waits for an in-flight sweep to finish
func (s *publisherService) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info().Msg("Scheduled publisher stopped")
}

// RunOnce publishes every due record once. A record that fails stays
// Approved and is retried on the next sweep.
func (s *publisherService) RunOnce(ctx context.Context) (*PublishSummary, error) {
	now := s.now().UTC()
	due, err := s.content.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return nil, err
	}

	summary := &PublishSummary{
		Due:       len(due),
		Published: []string{},
		Failed:    []string{},
	}
	actor := models.SystemActor()

	for _, record := range due {
		if ctx.Err() != nil {
			s.log.Warn().Str("record_id", record.ID).Msg("Sweep cancelled before record was published")
			break
		}

		_, err := s.review.Publish(ctx, record.ID, actor, AtVersion(record.Version))
		if err != nil {
			summary.Failed = append(summary.Failed, record.ID)
			s.metrics.ScheduledPublish(outcomeOf(err))
			s.log.Warn().
				Err(err).
				Str("record_id", record.ID).
				Int64("version", record.Version).
				Msg("Scheduled publish failed")
			continue
		}

		summary.Published = append(summary.Published, record.ID)
		s.metrics.ScheduledPublish(metrics.OutcomeSuccess)
	}

	if summary.Due > 0 {
		s.log.Info().
			Int("due", summary.Due).
			Int("published", len(summary.Published)).
			Int("failed", len(summary.Failed)).
			Msg("Scheduled publish sweep completed")
	}
	return summary, nil
}
