package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scentsync/backend/internal/domain"
)

// SyncService is the sync surface the delivery layer depends on.
type SyncService interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
	LastRun() *domain.RunSummary
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sync SyncService
}

// NewHandler creates a new HTTP handler
func NewHandler(sync SyncService) *Handler {
	return &Handler{sync: sync}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scentsync-backend",
		"version": "1.0.0",
	})
}

// TriggerSync starts a reconciliation run and blocks until it finishes.
// Only one run may be in flight at a time; a second trigger gets 409.
func (h *Handler) TriggerSync(c *gin.Context) {
	summary, err := h.sync.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// LastSync returns the summary of the most recent completed run.
func (h *Handler) LastSync(c *gin.Context) {
	summary := h.sync.LastRun()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed runs yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
