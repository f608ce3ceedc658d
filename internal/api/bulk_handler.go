package api

import (
	"net/http"
	"strings"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BulkHandler handles multi-record endpoints
type BulkHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *BulkHandler {
	return &BulkHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "bulk").Logger(),
	}
}

// BulkApply handles POST /v1/content/bulk. The run is not atomic; the
// response lists every id under succeeded, skipped or failed.
func (h *BulkHandler) BulkApply(c *gin.Context) {
	var req models.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	// Cheap guard before dedupe; the service enforces the exact limit
	if limit := h.cfg.Bulk.MaxItems; limit > 0 && len(req.IDs) > limit*4 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many ids in bulk request"})
		return
	}

	transition := models.Transition(strings.ToLower(strings.TrimSpace(string(req.Transition))))
	result, err := h.services.Bulk.BulkApply(c.Request.Context(), req.IDs, transition, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result.Response())
}
