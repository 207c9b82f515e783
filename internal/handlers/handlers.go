package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/hub"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/store"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/models"
)

// GatewayHandlers contains the HTTP handlers for the gateway service
type GatewayHandlers struct {
	store  *store.Store
	hub    *hub.Hub
	logger logging.Logger
}

// NewGatewayHandlers creates a new handlers instance
func NewGatewayHandlers(s *store.Store, h *hub.Hub, logger logging.Logger) *GatewayHandlers {
	return &GatewayHandlers{
		store:  s,
		hub:    h,
		logger: logger,
	}
}

// HandleListPosts returns the most recent posts with their analyses.
// Query params: limit (default 20, max 100) and offset (default 0).
func (h *GatewayHandlers) HandleListPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posts, err := h.store.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list posts")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list posts"})
		return
	}
	if posts == nil {
		posts = []models.PostWithSentiment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

// HandleListAlerts returns the most recently raised alerts.
func (h *GatewayHandlers) HandleListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	alerts, err := h.store.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// HandleSentimentDistribution returns all-time counts per sentiment label.
func (h *GatewayHandlers) HandleSentimentDistribution(c *gin.Context) {
	dist, err := h.store.SentimentDistribution(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load sentiment distribution")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load distribution"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"distribution": dist})
}

// HandleLiveFeed upgrades the request to a WebSocket observer connection.
func (h *GatewayHandlers) HandleLiveFeed(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// HandleInternalBroadcast accepts an event from the worker and fans it out to
// all connected live-feed clients. The payload is forwarded verbatim.
func (h *GatewayHandlers) HandleInternalBroadcast(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unreadable body"})
		return
	}

	env, err := models.ParseBroadcastEnvelope(body)
	if err != nil {
		h.logger.WithError(err).Warn("Rejected broadcast payload")
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	h.hub.Broadcast(env.Raw)
	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"type":   env.Type,
	})
}

// RegisterRoutes attaches the gateway's API, WebSocket and internal routes.
func (h *GatewayHandlers) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/posts", h.HandleListPosts)
		api.GET("/alerts", h.HandleListAlerts)
		api.GET("/sentiment/distribution", h.HandleSentimentDistribution)
	}

	router.GET("/ws/live", h.HandleLiveFeed)
	router.POST("/internal/broadcast", h.HandleInternalBroadcast)
}
