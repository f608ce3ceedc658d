package repository

import (
	"context"
	"database/sql"

	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/internal/models"
)

// eventRepo is the PostgreSQL implementation of EventRepository
type eventRepo struct {
	db *database.DB
}

// NewEventRepo creates a new workflow event repository
func NewEventRepo(db *database.DB) EventRepository {
	return &eventRepo{db: db}
}

// Append stores one workflow event
func (r *eventRepo) Append(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO workflow_events (id, record_id, kind, client_id, transition, from_status, to_status,
			actor_role, actor_id, rejection_reason, version, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.RecordID, event.Kind, event.ClientID, event.Transition,
		event.FromStatus, event.ToStatus, event.Actor.Role, event.Actor.ID,
		nullString(event.RejectionReason), event.Version, event.OccurredAt,
	)
	return err
}

// ListByRecord returns the events of one record in the order they happened
func (r *eventRepo) ListByRecord(ctx context.Context, recordID string) ([]models.Event, error) {
	query := `
		SELECT id, record_id, kind, client_id, transition, from_status, to_status,
			actor_role, actor_id, rejection_reason, version, occurred_at
		FROM workflow_events WHERE record_id = $1
		ORDER BY occurred_at, version
	`
	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var reason sql.NullString
		err := rows.Scan(
			&e.ID, &e.RecordID, &e.Kind, &e.ClientID, &e.Transition, &e.FromStatus, &e.ToStatus,
			&e.Actor.Role, &e.Actor.ID, &reason, &e.Version, &e.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		e.RejectionReason = reason.String
		// Client actors only ever act on their own client's records
		if e.Actor.Role == models.RoleClient {
			e.Actor.ClientID = e.ClientID
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
