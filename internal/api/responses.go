package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/scheduling"
	"github.com/content-review-api/internal/validation"
	"github.com/content-review-api/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContentResponse is the wire form of a record. Status uses the spelling of
// the record's kind.
type ContentResponse struct {
	ID                 string     `json:"id"`
	Kind               string     `json:"kind"`
	ClientID           string     `json:"client_id"`
	Title              string     `json:"title"`
	EmailSubject       string     `json:"email_subject,omitempty"`
	EmailBody          string     `json:"email_body,omitempty"`
	Content            string     `json:"content,omitempty"`
	Images             []string   `json:"images,omitempty"`
	Status             string     `json:"status"`
	RejectionReason    *string    `json:"rejection_reason"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	ScheduledLocal     string     `json:"scheduled_local,omitempty"`
	Timezone           string     `json:"timezone,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	Version            int64      `json:"version"`
	AllowedTransitions []string   `json:"allowed_transitions"`
	CreatedBy          string     `json:"created_by,omitempty"`
	UpdatedBy          string     `json:"updated_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func newContentResponse(r *models.ContentRecord, actor models.Actor) ContentResponse {
	status, err := models.Spelling(r.Kind, r.Status)
	if err != nil {
		status = string(r.Status)
	}

	allowed := []string{}
	for _, t := range workflow.AllowedFor(r.Kind, r.Status, actor.Role) {
		allowed = append(allowed, string(t))
	}

	resp := ContentResponse{
		ID:                 r.ID,
		Kind:               string(r.Kind),
		ClientID:           r.ClientID,
		Title:              r.Title,
		EmailSubject:       r.EmailSubject,
		EmailBody:          r.EmailBody,
		Content:            r.Content,
		Images:             r.Images,
		Status:             status,
		Timezone:           r.Timezone,
		ScheduledAt:        r.ScheduledAt,
		PublishedAt:        r.PublishedAt,
		Version:            r.Version,
		AllowedTransitions: allowed,
		CreatedBy:          r.CreatedBy,
		UpdatedBy:          r.UpdatedBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.RejectionReason != "" {
		reason := r.RejectionReason
		resp.RejectionReason = &reason
	}
	if r.ScheduledAt != nil {
		resp.ScheduledLocal = scheduling.Display(*r.ScheduledAt, r.Timezone)
	}
	return resp
}

// EventResponse is the wire form of an audit trail entry
type EventResponse struct {
	ID              string       `json:"id"`
	Transition      string       `json:"transition"`
	From            string       `json:"from"`
	To              string       `json:"to"`
	Actor           models.Actor `json:"actor"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	Version         int64        `json:"version"`
	OccurredAt      time.Time    `json:"occurred_at"`
}

func newEventResponse(e models.Event) EventResponse {
	return EventResponse{
		ID:              e.ID,
		Transition:      string(e.Transition),
		From:            e.FromSpelling(),
		To:              e.ToSpelling(),
		Actor:           e.Actor,
		RejectionReason: e.RejectionReason,
		Version:         e.Version,
		OccurredAt:      e.OccurredAt,
	}
}

// StatusCountResponse is one row of /v1/stats
type StatusCountResponse struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// errorCode maps workflow errors onto HTTP status and a stable code
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, models.ErrUnknownKind),
		errors.Is(err, models.ErrUnknownStatus),
		errors.Is(err, models.ErrStatusOutsideWorkflow):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case workflow.IsIllegalEdge(err):
		return http.StatusConflict, "illegal_transition"
	case errors.Is(err, workflow.ErrForbiddenTransition):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, workflow.ErrStaleState):
		return http.StatusPreconditionFailed, "stale_state"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError writes err with its mapped status; server-side failures are
// logged and hidden from the caller
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	var fieldErrs validation.Errors
	var fieldErr *workflow.ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		body["details"] = fieldErrs
	case errors.As(err, &fieldErr):
		body["details"] = []workflow.ValidationError{*fieldErr}
	}
	c.JSON(status, body)
}
