package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/service"
	"github.com/content-review-api/internal/workflow"
)

// TransitionCall records one call into the mock review service
type TransitionCall struct {
	ID              string
	Transition      models.Transition
	Actor           models.Actor
	Reason          string
	ExpectedVersion *int64
}

// MockReviewService is a mock implementation of ReviewService. Transitions
// run through the real engine against the in-memory Records map; Err, when
// set, is returned from every call instead.
type MockReviewService struct {
	mu       sync.Mutex
	Records  map[string]*models.ContentRecord
	EventLog map[string][]models.Event
	Counts   []models.StatusCount
	Err      error
	Calls    []TransitionCall

	CreateFunc   func(ctx context.Context, actor models.Actor, in models.NewContent) (*models.ContentRecord, error)
	ScheduleFunc func(ctx context.Context, id string, actor models.Actor, req service.ScheduleRequest) (*models.ContentRecord, error)
	ListFilters  []models.ContentFilter
	StatsActors  []models.Actor
}

// Verify interface compliance
var _ service.ReviewService = (*MockReviewService)(nil)

func NewMockReviewService() *MockReviewService {
	return &MockReviewService{
		Records:  make(map[string]*models.ContentRecord),
		EventLog: make(map[string][]models.Event),
	}
}

// Put stores a copy of record
func (m *MockReviewService) Put(record *models.ContentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[record.ID] = record.Clone()
}

func (m *MockReviewService) Create(ctx context.Context, actor models.Actor, in models.NewContent) (*models.ContentRecord, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, in)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	now := time.Now().UTC()
	record := &models.ContentRecord{
		ID:           "new-content-id",
		Kind:         in.Kind,
		ClientID:     in.ClientID,
		Title:        in.Title,
		EmailSubject: in.EmailSubject,
		EmailBody:    in.EmailBody,
		Content:      in.Content,
		Images:       in.Images,
		Status:       models.StatusDraft,
		Version:      1,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Put(record)
	return record, nil
}

func (m *MockReviewService) Get(ctx context.Context, id string, actor models.Actor) (*models.ContentRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Records[id]
	if !ok || (actor.Role == models.RoleClient && r.ClientID != actor.ClientID) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return r.Clone(), nil
}

func (m *MockReviewService) List(ctx context.Context, actor models.Actor, filter models.ContentFilter) ([]*models.ContentRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListFilters = append(m.ListFilters, filter)

	out := make([]*models.ContentRecord, 0, len(m.Records))
	for _, r := range m.Records {
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockReviewService) Stats(ctx context.Context, actor models.Actor) ([]models.StatusCount, error) {
	m.mu.Lock()
	m.StatsActors = append(m.StatsActors, actor)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Counts, nil
}

func (m *MockReviewService) Events(ctx context.Context, id string, actor models.Actor) ([]models.Event, error) {
	if _, err := m.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EventLog[id], nil
}

func (m *MockReviewService) SubmitForReview(ctx context.Context, id string, actor models.Actor, opts service.TransitionOptions) (*models.ContentRecord, error) {
	return m.Transition(ctx, id, models.TransitionSubmit, actor, "", opts)
}

func (m *MockReviewService) Approve(ctx context.Context, id string, actor models.Actor, opts service.TransitionOptions) (*models.ContentRecord, error) {
	return m.Transition(ctx, id, models.TransitionApprove, actor, "", opts)
}

func (m *MockReviewService) Reject(ctx context.Context, id string, actor models.Actor, reason string, opts service.TransitionOptions) (*models.ContentRecord, error) {
	return m.Transition(ctx, id, models.TransitionReject, actor, reason, opts)
}

func (m *MockReviewService) RevertToDraft(ctx context.Context, id string, actor models.Actor, opts service.TransitionOptions) (*models.ContentRecord, error) {
	return m.Transition(ctx, id, models.TransitionRevert, actor, "", opts)
}

func (m *MockReviewService) Publish(ctx context.Context, id string, actor models.Actor, opts service.TransitionOptions) (*models.ContentRecord, error) {
	return m.Transition(ctx, id, models.TransitionPublish, actor, "", opts)
}

func (m *MockReviewService) Schedule(ctx context.Context, id string, actor models.Actor, req service.ScheduleRequest, opts service.TransitionOptions) (*models.ContentRecord, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, TransitionCall{ID: id, Transition: models.TransitionSchedule, Actor: actor, ExpectedVersion: opts.ExpectedVersion})
	m.mu.Unlock()
	if m.ScheduleFunc != nil {
		return m.ScheduleFunc(ctx, id, actor, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Get(ctx, id, actor)
}

func (m *MockReviewService) Transition(ctx context.Context, id string, t models.Transition, actor models.Actor, reason string, opts service.TransitionOptions) (*models.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, TransitionCall{ID: id, Transition: t, Actor: actor, Reason: reason, ExpectedVersion: opts.ExpectedVersion})

	if m.Err != nil {
		return nil, m.Err
	}
	current, ok := m.Records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != current.Version {
		return nil, workflow.ErrStaleState
	}
	next, err := workflow.Apply(current, workflow.Change{Transition: t, Actor: actor, Reason: reason, Now: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	m.Records[id] = next
	return next.Clone(), nil
}

// MockBulkService is a mock implementation of BulkService
type MockBulkService struct {
	BulkFunc func(ctx context.Context, ids []string, t models.Transition, actor models.Actor) (*models.BulkResult, error)
	Requests []models.BulkRequest
}

var _ service.BulkService = (*MockBulkService)(nil)

func NewMockBulkService() *MockBulkService {
	return &MockBulkService{}
}

func (m *MockBulkService) BulkApply(ctx context.Context, ids []string, t models.Transition, actor models.Actor) (*models.BulkResult, error) {
	m.Requests = append(m.Requests, models.BulkRequest{IDs: ids, Transition: t})
	if m.BulkFunc != nil {
		return m.BulkFunc(ctx, ids, t, actor)
	}
	result := models.NewBulkResult(t)
	result.Succeeded = append(result.Succeeded, ids...)
	return result, nil
}

// MockPublisherService is a mock implementation of PublisherService
type MockPublisherService struct {
	Summary *service.PublishSummary
	Runs    int
}

var _ service.PublisherService = (*MockPublisherService)(nil)

func NewMockPublisherService() *MockPublisherService {
	return &MockPublisherService{Summary: &service.PublishSummary{Published: []string{}, Failed: []string{}}}
}

func (m *MockPublisherService) StartProcessor(ctx context.Context) {}

func (m *MockPublisherService) StopProcessor() {}

func (m *MockPublisherService) RunOnce(ctx context.Context) (*service.PublishSummary, error) {
	m.Runs++
	return m.Summary, nil
}
