package service

import (
	"context"
	"time"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/notify"
	"github.com/content-review-api/internal/repository"
	"github.com/rs/zerolog"
)

// TransitionOptions carries optional per-call preconditions
type TransitionOptions struct {
	// ExpectedVersion, when set, must equal the stored version at read time.
	// A mismatch fails with ErrStaleState before the transition is evaluated.
	ExpectedVersion *int64
}

// AtVersion builds options that pin the caller-observed version
func AtVersion(v int64) TransitionOptions {
	return TransitionOptions{ExpectedVersion: &v}
}

// ScheduleRequest is the naive date, time and timezone label from the portal
type ScheduleRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// ReviewService defines the single-item review workflow
type ReviewService interface {
	Create(ctx context.Context, actor models.Actor, in models.NewContent) (*models.ContentRecord, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.ContentRecord, error)
	List(ctx context.Context, actor models.Actor, filter models.ContentFilter) ([]*models.ContentRecord, error)
	Stats(ctx context.Context, actor models.Actor) ([]models.StatusCount, error)
	Events(ctx context.Context, id string, actor models.Actor) ([]models.Event, error)

	SubmitForReview(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error)
	Approve(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error)
	Reject(ctx context.Context, id string, actor models.Actor, reason string, opts TransitionOptions) (*models.ContentRecord, error)
	RevertToDraft(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error)
	Publish(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error)
	Schedule(ctx context.Context, id string, actor models.Actor, req ScheduleRequest, opts TransitionOptions) (*models.ContentRecord, error)

	// Transition runs any status edge by name; bulk runs go through it
	Transition(ctx context.Context, id string, t models.Transition, actor models.Actor, reason string, opts TransitionOptions) (*models.ContentRecord, error)
}

// BulkService applies one transition across many records
type BulkService interface {
	BulkApply(ctx context.Context, ids []string, t models.Transition, actor models.Actor) (*models.BulkResult, error)
}

// PublishSummary reports one scheduled publish sweep
type PublishSummary struct {
	Due       int      `json:"due"`
	Published []string `json:"published"`
	Failed    []string `json:"failed"`
}

// PublisherService publishes approved content whose schedule has come due
type PublisherService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	RunOnce(ctx context.Context) (*PublishSummary, error)
}

// Services holds all service interfaces
type Services struct {
	Review    ReviewService
	Bulk      BulkService
	Publisher PublisherService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, dispatcher notify.Dispatcher, m *metrics.Metrics) *Services {
	reviewSvc := NewReviewService(repos, dispatcher, m, log, time.Now)
	bulkSvc := NewBulkService(reviewSvc, cfg.Bulk, m, log)
	publisherSvc := NewPublisherService(repos.Content, reviewSvc, cfg.Scheduler, m, log, time.Now)

	return &Services{
		Review:    reviewSvc,
		Bulk:      bulkSvc,
		Publisher: publisherSvc,
	}
}
