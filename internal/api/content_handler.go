package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/service"
	"github.com/content-review-api/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContentHandler handles single-record endpoints
type ContentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(services *service.Services, log zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		services: services,
		log:      log.With().Str("handler", "content").Logger(),
	}
}

type createContentRequest struct {
	Kind         string   `json:"kind"`
	ClientID     string   `json:"client_id"`
	Title        string   `json:"title"`
	EmailSubject string   `json:"email_subject"`
	EmailBody    string   `json:"email_body"`
	Content      string   `json:"content"`
	Images       []string `json:"images"`
}

type transitionRequest struct {
	Reason          string `json:"reason"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type scheduleRequest struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	Timezone        string `json:"timezone"`
	ExpectedVersion *int64 `json:"expected_version"`
}

// CreateContent handles POST /v1/content
func (h *ContentHandler) CreateContent(c *gin.Context) {
	var req createContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	actor := actorFrom(c)
	record, err := h.services.Review.Create(c.Request.Context(), actor, models.NewContent{
		Kind:         kind,
		ClientID:     req.ClientID,
		Title:        req.Title,
		EmailSubject: req.EmailSubject,
		EmailBody:    req.EmailBody,
		Content:      req.Content,
		Images:       req.Images,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setETag(c, record.Version)
	c.JSON(http.StatusCreated, newContentResponse(record, actor))
}

// ListContent handles GET /v1/content?client_id=&kind=&status=&limit=&offset=
func (h *ContentHandler) ListContent(c *gin.Context) {
	filter := models.ContentFilter{ClientID: c.Query("client_id")}

	if k := c.Query("kind"); k != "" {
		kind, err := models.ParseKind(k)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		filter.Kind = kind
	}

	if s := c.Query("status"); s != "" {
		status, err := parseStatusFilter(filter.Kind, s)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		respondError(c, h.log, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		respondError(c, h.log, err)
		return
	}

	actor := actorFrom(c)
	records, err := h.services.Review.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]ContentResponse, 0, len(records))
	for _, r := range records {
		items = append(items, newContentResponse(r, actor))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GetContent handles GET /v1/content/:id
func (h *ContentHandler) GetContent(c *gin.Context) {
	actor := actorFrom(c)
	record, err := h.services.Review.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setETag(c, record.Version)
	c.JSON(http.StatusOK, newContentResponse(record, actor))
}

// GetEvents handles GET /v1/content/:id/events
func (h *ContentHandler) GetEvents(c *gin.Context) {
	id := c.Param("id")
	events, err := h.services.Review.Events(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]EventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, newEventResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{
		"record_id": id,
		"events":    items,
	})
}

// GetStats handles GET /v1/stats
func (h *ContentHandler) GetStats(c *gin.Context) {
	counts, err := h.services.Review.Stats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	rows := make([]StatusCountResponse, 0, len(counts))
	total := 0
	for _, sc := range counts {
		status, err := models.Spelling(sc.Kind, sc.Status)
		if err != nil {
			status = string(sc.Status)
		}
		rows = append(rows, StatusCountResponse{Kind: string(sc.Kind), Status: status, Count: sc.Count})
		total += sc.Count
	}
	c.JSON(http.StatusOK, gin.H{
		"counts": rows,
		"total":  total,
	})
}

// Transition returns the handler for POST /v1/content/:id/<transition>. The
// caller-observed version comes from If-Match or the expected_version field.
func (h *ContentHandler) Transition(t models.Transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		opts, err := versionOptions(c, req.ExpectedVersion)
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		ctx := c.Request.Context()
		actor := actorFrom(c)
		id := c.Param("id")

		var record *models.ContentRecord
		switch t {
		case models.TransitionSubmit:
			record, err = h.services.Review.SubmitForReview(ctx, id, actor, opts)
		case models.TransitionApprove:
			record, err = h.services.Review.Approve(ctx, id, actor, opts)
		case models.TransitionReject:
			record, err = h.services.Review.Reject(ctx, id, actor, req.Reason, opts)
		case models.TransitionRevert:
			record, err = h.services.Review.RevertToDraft(ctx, id, actor, opts)
		case models.TransitionPublish:
			record, err = h.services.Review.Publish(ctx, id, actor, opts)
		default:
			err = &workflow.ValidationError{Field: "transition", Message: "unknown transition", Value: string(t)}
		}
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		setETag(c, record.Version)
		c.JSON(http.StatusOK, newContentResponse(record, actor))
	}
}

// Schedule handles PUT /v1/content/:id/schedule
func (h *ContentHandler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	opts, err := versionOptions(c, req.ExpectedVersion)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	actor := actorFrom(c)
	record, err := h.services.Review.Schedule(c.Request.Context(), c.Param("id"), actor, service.ScheduleRequest{
		Date:     req.Date,
		Time:     req.Time,
		Timezone: req.Timezone,
	}, opts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	setETag(c, record.Version)
	c.JSON(http.StatusOK, newContentResponse(record, actor))
}

// parseStatusFilter reads status in the vocabulary of kind. Without a kind
// any known spelling is accepted.
func parseStatusFilter(kind models.Kind, s string) (models.Status, error) {
	if kind != "" {
		return models.ParseStatus(kind, s)
	}
	var firstErr error
	for _, k := range []models.Kind{models.KindCampaign, models.KindBlogPost} {
		status, err := models.ParseStatus(k, s)
		if err == nil {
			return status, nil
		}
		if firstErr == nil || errors.Is(err, models.ErrStatusOutsideWorkflow) {
			firstErr = err
		}
	}
	return "", firstErr
}

func versionOptions(c *gin.Context, bodyVersion *int64) (service.TransitionOptions, error) {
	if header := c.GetHeader("If-Match"); header != "" {
		v, err := parseETag(header)
		if err != nil {
			return service.TransitionOptions{}, err
		}
		if bodyVersion != nil && *bodyVersion != v {
			return service.TransitionOptions{}, workflow.NewValidationError("expected_version", "If-Match and expected_version disagree")
		}
		return service.AtVersion(v), nil
	}
	if bodyVersion != nil {
		return service.AtVersion(*bodyVersion), nil
	}
	return service.TransitionOptions{}, nil
}

func parseETag(header string) (int64, error) {
	tag := strings.TrimPrefix(strings.TrimSpace(header), "W/")
	tag = strings.Trim(tag, `"`)
	v, err := strconv.ParseInt(tag, 10, 64)
	if err != nil || v < 1 {
		return 0, &workflow.ValidationError{Field: "If-Match", Message: "must be a record version", Value: header}
	}
	return v, nil
}

func setETag(c *gin.Context, version int64) {
	c.Header("ETag", fmt.Sprintf("%q", strconv.FormatInt(version, 10)))
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &workflow.ValidationError{Field: key, Message: "must be a non-negative integer", Value: raw}
	}
	return n, nil
}
