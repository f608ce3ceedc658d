package service

import (
	"context"
	"fmt"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/validation"
	"github.com/content-review-api/internal/workflow"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// bulkService runs the single-item workflow for each id of a batch. The
// batch is not atomic; every id is reported in exactly one bucket.
type bulkService struct {
	review      ReviewService
	validator   *validation.Validator
	maxItems    int
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewBulkService creates a BulkService on top of review
func NewBulkService(review ReviewService, cfg config.BulkConfig, m *metrics.Metrics, log zerolog.Logger) BulkService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &bulkService{
		review:      review,
		validator:   validation.NewValidator(),
		maxItems:    cfg.MaxItems,
		concurrency: concurrency,
		metrics:     m,
		log:         log.With().Str("service", "bulk").Logger(),
	}
}

// BulkApply applies t to every id with bounded parallelism. Ids with no
// such edge from their current status are skipped; every other refusal or
// error is a failure for that id only.
func (s *bulkService) BulkApply(ctx context.Context, ids []string, t models.Transition, actor models.Actor) (*models.BulkResult, error) {
	switch t {
	case models.TransitionReject:
		return nil, &workflow.ValidationError{
			Field:   "transition",
			Message: "bulk reject is not supported; reject items individually with a reason",
			Value:   string(t),
		}
	case models.TransitionSubmit, models.TransitionApprove, models.TransitionRevert, models.TransitionPublish:
	default:
		return nil, &workflow.ValidationError{Field: "transition", Message: "unknown transition", Value: string(t)}
	}

	unique, errs := s.validator.ValidateBulkIDs(ids, s.maxItems)
	if len(errs) > 0 {
		return nil, errs
	}

	outcomes := make([]error, len(unique))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = fmt.Errorf("bulk run cancelled: %w", err)
				return nil
			}
			if !validation.IsValidID(id) {
				outcomes[i] = &workflow.ValidationError{Field: "id", Message: "invalid id format", Value: id}
				return nil
			}
			_, outcomes[i] = s.review.Transition(ctx, id, t, actor, "", TransitionOptions{})
			return nil
		})
	}
	_ = g.Wait()

	result := models.NewBulkResult(t)
	for i, id := range unique {
		err := outcomes[i]
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, id)
			s.metrics.BulkItem(string(t), metrics.OutcomeSuccess)
		case workflow.IsIllegalEdge(err):
			result.Skipped = append(result.Skipped, id)
			s.metrics.BulkItem(string(t), metrics.OutcomeSkipped)
		default:
			result.Failed[id] = err
			result.FailedOrder = append(result.FailedOrder, id)
			s.metrics.BulkItem(string(t), outcomeOf(err))
		}
	}

	s.log.Info().
		Str("transition", string(t)).
		Str("actor_role", string(actor.Role)).
		Int("requested", len(ids)).
		Int("succeeded", len(result.Succeeded)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.FailedOrder)).
		Msg("Bulk operation completed")

	return result, nil
}
