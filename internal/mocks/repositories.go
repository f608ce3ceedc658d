package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/notify"
	"github.com/content-review-api/internal/repository"
)

// MockContentRepository is a mock implementation of ContentRepository with
// per-method error injection
type MockContentRepository struct {
	mu      sync.Mutex
	Records map[string]*models.ContentRecord

	GetError    error
	CASError    error
	ListError   error
	CreateError error
	ListDueFunc func(ctx context.Context, now time.Time, limit int) ([]*models.ContentRecord, error)

	CASCalls int
}

// Verify interface compliance
var _ repository.ContentRepository = (*MockContentRepository)(nil)

func NewMockContentRepository(records ...*models.ContentRecord) *MockContentRepository {
	m := &MockContentRepository{Records: make(map[string]*models.ContentRecord)}
	for _, r := range records {
		m.Records[r.ID] = r.Clone()
	}
	return m
}

func (m *MockContentRepository) Create(ctx context.Context, record *models.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Records[record.ID] = record.Clone()
	return nil
}

func (m *MockContentRepository) Get(ctx context.Context, id string) (*models.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	r, ok := m.Records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return r.Clone(), nil
}

func (m *MockContentRepository) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, record *models.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CASCalls++
	if m.CASError != nil {
		return m.CASError
	}
	current, ok := m.Records[id]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	if current.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	m.Records[id] = record.Clone()
	return nil
}

func (m *MockContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]*models.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	out := make([]*models.ContentRecord, 0, len(m.Records))
	for _, r := range m.Records {
		if filter.ClientID != "" && r.ClientID != filter.ClientID {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *MockContentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ContentRecord, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*models.ContentRecord
	for _, r := range m.Records {
		if r.Status == models.StatusApproved && r.ScheduledAt != nil && !r.ScheduledAt.After(now) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *MockContentRepository) CountByStatus(ctx context.Context, clientID string) ([]models.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	counts := make(map[[2]string]int)
	for _, r := range m.Records {
		if clientID != "" && r.ClientID != clientID {
			continue
		}
		counts[[2]string{string(r.Kind), string(r.Status)}]++
	}
	out := make([]models.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.StatusCount{Kind: models.Kind(k[0]), Status: models.Status(k[1]), Count: n})
	}
	return out, nil
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mu          sync.Mutex
	Events      []models.Event
	AppendError error
}

var _ repository.EventRepository = (*MockEventRepository)(nil)

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Append(ctx context.Context, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendError != nil {
		return m.AppendError
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockEventRepository) ListByRecord(ctx context.Context, recordID string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.Events {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// MockDispatcher records every event it is handed. When Err is set the
// event is still recorded and Err is returned.
type MockDispatcher struct {
	mu     sync.Mutex
	events []models.Event
	Err    error
}

var _ notify.Dispatcher = (*MockDispatcher)(nil)

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Notify(ctx context.Context, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns a copy of the recorded events
func (m *MockDispatcher) Events() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Event(nil), m.events...)
}
