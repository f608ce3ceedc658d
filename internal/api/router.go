package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	headerActorRole = "X-Actor-Role"
	headerActorID   = "X-Actor-ID"
	headerClientID  = "X-Client-ID"

	actorKey = "actor"
)

// NewRouter creates and configures the Gin router. gatherer backs /metrics;
// nil falls back to the default Prometheus registry.
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	contentHandler := NewContentHandler(services, log)
	bulkHandler := NewBulkHandler(services, cfg, log)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1
	v1 := router.Group("/v1")
	v1.Use(actorMiddleware())
	{
		v1.GET("/stats", contentHandler.GetStats)

		content := v1.Group("/content")
		{
			content.POST("", contentHandler.CreateContent)
			content.GET("", contentHandler.ListContent)
			content.POST("/bulk", bulkHandler.BulkApply)
			content.GET("/:id", contentHandler.GetContent)
			content.GET("/:id/events", contentHandler.GetEvents)
			content.POST("/:id/submit", contentHandler.Transition(models.TransitionSubmit))
			content.POST("/:id/approve", contentHandler.Transition(models.TransitionApprove))
			content.POST("/:id/reject", contentHandler.Transition(models.TransitionReject))
			content.POST("/:id/revert", contentHandler.Transition(models.TransitionRevert))
			content.POST("/:id/publish", contentHandler.Transition(models.TransitionPublish))
			content.PUT("/:id/schedule", contentHandler.Schedule)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "content-review-api",
	})
}

// actorMiddleware turns the actor headers into an explicit models.Actor. The
// system role is never accepted from a request.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(headerActorRole))))
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": headerActorRole + " header is required (agency, client)"})
			return
		}
		if !models.ValidRoles[role] {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": headerActorRole + " must be one of: agency, client"})
			return
		}

		actor := models.Actor{
			Role:     role,
			ID:       strings.TrimSpace(c.GetHeader(headerActorID)),
			ClientID: strings.TrimSpace(c.GetHeader(headerClientID)),
		}
		if role == models.RoleClient && actor.ClientID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": headerClientID + " header is required for client actors"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("actor_role", c.GetHeader(headerActorRole)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-Match, X-Actor-Role, X-Actor-ID, X-Client-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
