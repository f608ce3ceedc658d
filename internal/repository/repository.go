package repository

import (
	"context"
	"errors"
	"time"

	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/internal/models"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by CompareAndSwap when the stored version
	// no longer matches the expected one
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyExists is returned by Create for a duplicate id
	ErrAlreadyExists = errors.New("record already exists")
)

// ContentRepository defines the storage contract the workflow relies on
type ContentRepository interface {
	Create(ctx context.Context, record *models.ContentRecord) error
	Get(ctx context.Context, id string) (*models.ContentRecord, error)
	// CompareAndSwap replaces the stored record only if its version still
	// equals expectedVersion. record.Version must be greater than
	// expectedVersion. published_at is never cleared by a swap.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, record *models.ContentRecord) error
	List(ctx context.Context, filter models.ContentFilter) ([]*models.ContentRecord, error)
	// ListDue returns Approved records whose scheduled_at is at or before now,
	// oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ContentRecord, error)
	// CountByStatus groups records by kind and status; a non-empty clientID
	// restricts the count to that client's records
	CountByStatus(ctx context.Context, clientID string) ([]models.StatusCount, error)
}

// EventRepository stores the workflow audit trail
type EventRepository interface {
	Append(ctx context.Context, event models.Event) error
	ListByRecord(ctx context.Context, recordID string) ([]models.Event, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Content ContentRepository
	Event   EventRepository
}

// New creates PostgreSQL-backed repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Content: NewContentRepo(db),
		Event:   NewEventRepo(db),
	}
}

// NewMemory creates in-process repositories sharing one store
func NewMemory() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		Content: store,
		Event:   store,
	}
}

const defaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}
