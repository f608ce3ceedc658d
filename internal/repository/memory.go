package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/content-review-api/internal/models"
)

// MemoryStore is an in-process ContentRepository and EventRepository. It
// backs STORAGE_DRIVER=memory and the package tests. Records are copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.ContentRecord
	events  map[string][]models.Event

	// GetHook, when set, runs after Get has read a record and before it
	// returns. Tests use it to interleave concurrent requests.
	GetHook func(id string)
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.ContentRecord),
		events:  make(map[string][]models.Event),
	}
}

// Seed inserts records as-is, replacing any with the same id
func (s *MemoryStore) Seed(records ...*models.ContentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ID] = r.Clone()
	}
}

func (s *MemoryStore) Create(_ context.Context, record *models.ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, record.ID)
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.ContentRecord, error) {
	s.mu.RLock()
	record, exists := s.records[id]
	var out *models.ContentRecord
	if exists {
		out = record.Clone()
	}
	hook := s.GetHook
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if hook != nil {
		hook(id)
	}
	return out, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, id string, expectedVersion int64, record *models.ContentRecord) error {
	if record.Version <= expectedVersion {
		return fmt.Errorf("new version %d must exceed expected version %d", record.Version, expectedVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: %s expected version %d, have %d", ErrVersionConflict, id, expectedVersion, current.Version)
	}

	next := record.Clone()
	next.ID = current.ID
	next.Kind = current.Kind
	next.ClientID = current.ClientID
	next.CreatedAt = current.CreatedAt
	next.CreatedBy = current.CreatedBy
	if current.PublishedAt != nil {
		t := *current.PublishedAt
		next.PublishedAt = &t
	}
	s.records[id] = next
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter models.ContentFilter) ([]*models.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*models.ContentRecord, 0, len(s.records))
	for _, r := range s.records {
		if filter.ClientID != "" && r.ClientID != filter.ClientID {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		items = append(items, r.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})

	offset := max(filter.Offset, 0)
	if offset >= len(items) {
		return []*models.ContentRecord{}, nil
	}
	items = items[offset:]
	if limit := normalizeLimit(filter.Limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]*models.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*models.ContentRecord
	for _, r := range s.records {
		if r.Status == models.StatusApproved && r.ScheduledAt != nil && !r.ScheduledAt.After(now) {
			due = append(due, r.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(*due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
		}
		return due[i].ID < due[j].ID
	})
	if limit = normalizeLimit(limit); len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context, clientID string) ([]models.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		kind   models.Kind
		status models.Status
	}
	tally := make(map[key]int)
	for _, r := range s.records {
		if clientID != "" && r.ClientID != clientID {
			continue
		}
		tally[key{r.Kind, r.Status}]++
	}

	counts := make([]models.StatusCount, 0, len(tally))
	for k, n := range tally {
		counts = append(counts, models.StatusCount{Kind: k.kind, Status: k.status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Kind != counts[j].Kind {
			return counts[i].Kind < counts[j].Kind
		}
		return counts[i].Status < counts[j].Status
	})
	return counts, nil
}

func (s *MemoryStore) Append(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events[event.RecordID] {
		if existing.ID == event.ID {
			return nil
		}
	}
	s.events[event.RecordID] = append(s.events[event.RecordID], event)
	return nil
}

func (s *MemoryStore) ListByRecord(_ context.Context, recordID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := append([]models.Event(nil), s.events[recordID]...)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].Version < events[j].Version
	})
	return events, nil
}
