package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const contentColumns = `id, kind, client_id, title, email_subject, email_body, content, images,
	status, rejection_reason, scheduled_at, timezone, published_at, version,
	created_by, updated_by, created_at, updated_at`

// contentRepo is the PostgreSQL implementation of ContentRepository
type contentRepo struct {
	db *database.DB
}

// NewContentRepo creates a new content repository
func NewContentRepo(db *database.DB) ContentRepository {
	return &contentRepo{db: db}
}

// Create inserts a new record
func (r *contentRepo) Create(ctx context.Context, record *models.ContentRecord) error {
	query := `
		INSERT INTO content_records (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Kind, record.ClientID, record.Title,
		record.EmailSubject, record.EmailBody, record.Content, pq.Array(nonNilImages(record.Images)),
		record.Status, nullString(record.RejectionReason), record.ScheduledAt, record.Timezone,
		record.PublishedAt, record.Version, record.CreatedBy, record.UpdatedBy,
		record.CreatedAt, record.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, record.ID)
	}
	return err
}

// Get retrieves a record by ID
func (r *contentRepo) Get(ctx context.Context, id string) (*models.ContentRecord, error) {
	// ids are UUID columns; anything else cannot name a stored row
	if !isUUID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	query := `SELECT ` + contentColumns + ` FROM content_records WHERE id = $1`

	record, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows || isInvalidText(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CompareAndSwap writes record only if the stored version equals
// expectedVersion. The conditional UPDATE is the single atomic step; zero
// rows affected means either the row is gone or someone else won the race.
func (r *contentRepo) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, record *models.ContentRecord) error {
	if record.Version <= expectedVersion {
		return fmt.Errorf("new version %d must exceed expected version %d", record.Version, expectedVersion)
	}
	if !isUUID(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	query := `
		UPDATE content_records SET
			title = $3, email_subject = $4, email_body = $5, content = $6, images = $7,
			status = $8, rejection_reason = $9, scheduled_at = $10, timezone = $11,
			published_at = COALESCE(published_at, $12), version = $13,
			updated_by = $14, updated_at = $15
		WHERE id = $1 AND version = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		id, expectedVersion,
		record.Title, record.EmailSubject, record.EmailBody, record.Content, pq.Array(nonNilImages(record.Images)),
		record.Status, nullString(record.RejectionReason), record.ScheduledAt, record.Timezone,
		record.PublishedAt, record.Version, record.UpdatedBy, record.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM content_records WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s expected version %d", ErrVersionConflict, id, expectedVersion)
}

// List retrieves records matching filter, newest first
func (r *contentRepo) List(ctx context.Context, filter models.ContentFilter) ([]*models.ContentRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.ClientID != "" {
		add("client_id = $%d", filter.ClientID)
	}
	if filter.Kind != "" {
		add("kind = $%d", filter.Kind)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := `SELECT ` + contentColumns + ` FROM content_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, normalizeLimit(filter.Limit), max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// ListDue retrieves approved records whose schedule has passed
func (r *contentRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ContentRecord, error) {
	query := `
		SELECT ` + contentColumns + ` FROM content_records
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at, id
		LIMIT $3
	`
	return r.query(ctx, query, models.StatusApproved, now, normalizeLimit(limit))
}

// CountByStatus returns record counts grouped by kind and status
func (r *contentRepo) CountByStatus(ctx context.Context, clientID string) ([]models.StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, status, COUNT(*) FROM content_records
		WHERE $1 = '' OR client_id = $1
		GROUP BY kind, status ORDER BY kind, status
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.StatusCount
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Kind, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *contentRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.ContentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ContentRecord
	for rows.Next() {
		record, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*models.ContentRecord, error) {
	var record models.ContentRecord
	var rejectionReason sql.NullString
	var scheduledAt, publishedAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.Kind, &record.ClientID, &record.Title,
		&record.EmailSubject, &record.EmailBody, &record.Content, pq.Array(&record.Images),
		&record.Status, &rejectionReason, &scheduledAt, &record.Timezone,
		&publishedAt, &record.Version, &record.CreatedBy, &record.UpdatedBy,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RejectionReason = rejectionReason.String
	if scheduledAt.Valid {
		t := scheduledAt.Time.UTC()
		record.ScheduledAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		record.PublishedAt = &t
	}
	return &record, nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isInvalidText reports invalid_text_representation, raised when an id
// cannot be cast to the column's uuid type
func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
