package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/notify"
	"github.com/content-review-api/internal/repository"
	"github.com/content-review-api/internal/scheduling"
	"github.com/content-review-api/internal/validation"
	"github.com/content-review-api/internal/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reviewService is the concrete implementation of ReviewService
type reviewService struct {
	repos      *repository.Repositories
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	validator  *validation.Validator
	log        zerolog.Logger
	now        func() time.Time
}

// NewReviewService creates the workflow service. now defaults to time.Now.
func NewReviewService(repos *repository.Repositories, dispatcher notify.Dispatcher, m *metrics.Metrics, log zerolog.Logger, now func() time.Time) ReviewService {
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &reviewService{
		repos:      repos,
		dispatcher: dispatcher,
		metrics:    m,
		validator:  validation.NewValidator(),
		log:        log.With().Str("service", "review").Logger(),
		now:        now,
	}
}

// Create stores a new draft at version 1
func (s *reviewService) Create(ctx context.Context, actor models.Actor, in models.NewContent) (*models.ContentRecord, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAgency {
		return nil, fmt.Errorf("%w: only agency users create content", workflow.ErrForbiddenTransition)
	}
	if errs := s.validator.ValidateNewContent(&in); len(errs) > 0 {
		return nil, errs
	}

	now := s.now().UTC()
	record := &models.ContentRecord{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		ClientID:     strings.TrimSpace(in.ClientID),
		Title:        strings.TrimSpace(in.Title),
		EmailSubject: in.EmailSubject,
		EmailBody:    in.EmailBody,
		Content:      in.Content,
		Images:       append([]string(nil), in.Images...),
		Status:       models.StatusDraft,
		Version:      1,
		CreatedBy:    actor.ID,
		UpdatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repos.Content.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	s.log.Info().
		Str("record_id", record.ID).
		Str("kind", string(record.Kind)).
		Str("client_id", record.ClientID).
		Msg("Draft created")
	return record, nil
}

// Get returns a record the actor is allowed to see. Client actors get
// ErrNotFound for records that belong to another client.
func (s *reviewService) Get(ctx context.Context, id string, actor models.Actor) (*models.ContentRecord, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleClient && record.ClientID != actor.ClientID {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return record, nil
}

// List returns records matching filter. Client actors only see their own.
func (s *reviewService) List(ctx context.Context, actor models.Actor, filter models.ContentFilter) ([]*models.ContentRecord, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleClient {
		filter.ClientID = actor.ClientID
	}
	records, err := s.repos.Content.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return records, nil
}

// Stats counts records per kind and status. Client actors only count their own.
func (s *reviewService) Stats(ctx context.Context, actor models.Actor) ([]models.StatusCount, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	var clientID string
	if actor.Role == models.RoleClient {
		clientID = actor.ClientID
	}
	counts, err := s.repos.Content.CountByStatus(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count content: %w", err)
	}
	return counts, nil
}

// Events returns the audit trail for one record, oldest first
func (s *reviewService) Events(ctx context.Context, id string, actor models.Actor) ([]models.Event, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	events, err := s.repos.Event.ListByRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *reviewService) SubmitForReview(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error) {
	return s.Transition(ctx, id, models.TransitionSubmit, actor, "", opts)
}

func (s *reviewService) Approve(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error) {
	return s.Transition(ctx, id, models.TransitionApprove, actor, "", opts)
}

func (s *reviewService) Reject(ctx context.Context, id string, actor models.Actor, reason string, opts TransitionOptions) (*models.ContentRecord, error) {
	return s.Transition(ctx, id, models.TransitionReject, actor, reason, opts)
}

func (s *reviewService) RevertToDraft(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error) {
	return s.Transition(ctx, id, models.TransitionRevert, actor, "", opts)
}

func (s *reviewService) Publish(ctx context.Context, id string, actor models.Actor, opts TransitionOptions) (*models.ContentRecord, error) {
	return s.Transition(ctx, id, models.TransitionPublish, actor, "", opts)
}

// Transition reads the record, checks scope, version and graph, then writes
// the next record with a compare-and-swap on the version it read. Nothing is
// written when any check fails. Conflicts are reported, never retried.
func (s *reviewService) Transition(ctx context.Context, id string, t models.Transition, actor models.Actor, reason string, opts TransitionOptions) (*models.ContentRecord, error) {
	record, err := s.transition(ctx, id, t, actor, reason, opts)
	kind := ""
	if record != nil {
		kind = string(record.Kind)
	}
	s.metrics.Transition(kind, string(t), outcomeOf(err))
	if err != nil {
		s.log.Debug().Err(err).
			Str("record_id", id).
			Str("transition", string(t)).
			Str("actor_role", string(actor.Role)).
			Msg("Transition refused")
		return nil, err
	}
	return record, nil
}

func (s *reviewService) transition(ctx context.Context, id string, t models.Transition, actor models.Actor, reason string, opts TransitionOptions) (*models.ContentRecord, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if _, ok := transitionSet[t]; !ok {
		return nil, &workflow.ValidationError{Field: "transition", Message: "unknown transition", Value: string(t)}
	}
	// Reason is checked before any storage access.
	if t == models.TransitionReject {
		if err := workflow.ValidateReason(reason); err != nil {
			return nil, err
		}
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(current, t, actor, opts); err != nil {
		return current, err
	}

	now := s.now().UTC()
	if t == models.TransitionPublish && actor.Role == models.RoleSystem {
		if current.ScheduledAt == nil || current.ScheduledAt.After(now) {
			return current, &workflow.TransitionError{
				Kind:       current.Kind,
				From:       current.Status,
				Transition: t,
				Role:       actor.Role,
				Reason:     "scheduled publish time has not been reached",
			}
		}
	}

	next, err := workflow.Apply(current, workflow.Change{
		Transition: t,
		Actor:      actor,
		Reason:     reason,
		Now:        now,
	})
	if err != nil {
		return current, err
	}

	if err := s.save(ctx, current, next); err != nil {
		return current, err
	}

	s.log.Info().
		Str("record_id", next.ID).
		Str("kind", string(next.Kind)).
		Str("transition", string(t)).
		Str("from", string(current.Status)).
		Str("to", string(next.Status)).
		Int64("version", next.Version).
		Str("actor_role", string(actor.Role)).
		Msg("Transition applied")

	s.emit(ctx, current, next, t, actor)
	return next, nil
}

// Schedule stores the resolved publish instant. The stored timezone label is
// used when the request carries none.
func (s *reviewService) Schedule(ctx context.Context, id string, actor models.Actor, req ScheduleRequest, opts TransitionOptions) (*models.ContentRecord, error) {
	record, err := s.schedule(ctx, id, actor, req, opts)
	kind := ""
	if record != nil {
		kind = string(record.Kind)
	}
	s.metrics.Transition(kind, string(models.TransitionSchedule), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *reviewService) schedule(ctx context.Context, id string, actor models.Actor, req ScheduleRequest, opts TransitionOptions) (*models.ContentRecord, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkScope(current, models.TransitionSchedule, actor); err != nil {
		return current, err
	}
	if err := checkVersion(current, opts); err != nil {
		return current, err
	}
	if !schedulable[current.Status] {
		return current, &workflow.TransitionError{
			Kind:       current.Kind,
			From:       current.Status,
			Transition: models.TransitionSchedule,
			Role:       actor.Role,
			Reason:     "content in this status cannot be scheduled",
		}
	}
	if actor.Role != models.RoleAgency {
		return current, &workflow.TransitionError{
			Kind:       current.Kind,
			From:       current.Status,
			Transition: models.TransitionSchedule,
			Role:       actor.Role,
			Reason:     "only agency users schedule content",
		}
	}

	label := strings.TrimSpace(req.Timezone)
	if label == "" {
		label = current.Timezone
	}
	now := s.now().UTC()
	resolved, err := scheduling.ResolveFuture(req.Date, req.Time, label, now)
	if err != nil {
		return current, err
	}

	next := current.Clone()
	at := resolved.At
	next.ScheduledAt = &at
	next.Timezone = resolved.Timezone
	next.Version = current.Version + 1
	next.UpdatedAt = now
	next.UpdatedBy = actor.ID

	if err := s.save(ctx, current, next); err != nil {
		return current, err
	}

	s.log.Info().
		Str("record_id", next.ID).
		Time("scheduled_at", at).
		Str("timezone", next.Timezone).
		Int64("version", next.Version).
		Msg("Publish scheduled")

	s.emit(ctx, current, next, models.TransitionSchedule, actor)
	return next, nil
}

// precheck runs the checks that do not depend on the graph, then the graph
func (s *reviewService) precheck(record *models.ContentRecord, t models.Transition, actor models.Actor, opts TransitionOptions) error {
	if err := checkScope(record, t, actor); err != nil {
		return err
	}
	if err := checkVersion(record, opts); err != nil {
		return err
	}
	return workflow.CanTransition(record, t, actor.Role)
}

func (s *reviewService) load(ctx context.Context, id string) (*models.ContentRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, workflow.NewValidationError("id", "id is required")
	}
	record, err := s.repos.Content.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load content %s: %w", id, err)
	}
	return record, nil
}

func (s *reviewService) save(ctx context.Context, current, next *models.ContentRecord) error {
	err := s.repos.Content.CompareAndSwap(ctx, current.ID, current.Version, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s changed after version %d was read", workflow.ErrStaleState, current.ID, current.Version)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, current.ID)
	default:
		return fmt.Errorf("failed to save content %s: %w", current.ID, err)
	}
}

// emit hands the committed change to the dispatcher. A dispatch failure is
// logged and swallowed; the write has already happened.
func (s *reviewService) emit(ctx context.Context, before, after *models.ContentRecord, t models.Transition, actor models.Actor) {
	event := models.Event{
		ID:              uuid.NewString(),
		RecordID:        after.ID,
		Kind:            after.Kind,
		ClientID:        after.ClientID,
		Transition:      t,
		FromStatus:      before.Status,
		ToStatus:        after.Status,
		Actor:           actor,
		RejectionReason: after.RejectionReason,
		Version:         after.Version,
		OccurredAt:      after.UpdatedAt,
	}
	if err := s.dispatcher.Notify(ctx, event); err != nil {
		s.log.Warn().
			Err(fmt.Errorf("%w: %v", workflow.ErrDispatchFailure, err)).
			Str("record_id", event.RecordID).
			Str("event_id", event.ID).
			Str("transition", string(t)).
			Msg("Workflow event not dispatched")
	}
}

var transitionSet = map[models.Transition]struct{}{
	models.TransitionSubmit:  {},
	models.TransitionApprove: {},
	models.TransitionReject:  {},
	models.TransitionRevert:  {},
	models.TransitionPublish: {},
}

var schedulable = map[models.Status]bool{
	models.StatusDraft:         true,
	models.StatusPendingReview: true,
	models.StatusApproved:      true,
}

func validateActor(actor models.Actor) error {
	switch actor.Role {
	case models.RoleAgency, models.RoleSystem:
		return nil
	case models.RoleClient:
		if strings.TrimSpace(actor.ClientID) == "" {
			return workflow.NewValidationError("client_id", "client actors must carry a client id")
		}
		return nil
	case "":
		return workflow.NewValidationError("role", "actor role is required")
	default:
		return &workflow.ValidationError{Field: "role", Message: "unknown actor role", Value: string(actor.Role)}
	}
}

// checkScope keeps client actors inside their own client's records
func checkScope(record *models.ContentRecord, t models.Transition, actor models.Actor) error {
	if actor.Role != models.RoleClient || record.ClientID == actor.ClientID {
		return nil
	}
	return &workflow.TransitionError{
		Kind:       record.Kind,
		From:       record.Status,
		Transition: t,
		Role:       actor.Role,
		Reason:     "record belongs to another client",
	}
}

func checkVersion(record *models.ContentRecord, opts TransitionOptions) error {
	if opts.ExpectedVersion == nil || *opts.ExpectedVersion == record.Version {
		return nil
	}
	return fmt.Errorf("%w: %s is at version %d, caller expected %d",
		workflow.ErrStaleState, record.ID, record.Version, *opts.ExpectedVersion)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, workflow.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, workflow.ErrForbiddenTransition):
		return metrics.OutcomeForbidden
	case errors.Is(err, workflow.ErrStaleState):
		return metrics.OutcomeStale
	case errors.Is(err, workflow.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
