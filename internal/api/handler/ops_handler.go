package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finpoint/bankscrape/internal/alerts"
)

// GetHealth handles GET /api/v1/health
// Returns the last periodic health evaluation
func (h *OpsHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Current())
}

// GetMetrics handles GET /api/v1/metrics
func (h *OpsHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// ResetMetrics handles POST /api/v1/metrics/reset
func (h *OpsHandler) ResetMetrics(c *gin.Context) {
	h.metrics.Reset()
	c.JSON(http.StatusOK, gin.H{
		"reset": true,
	})
}

// GetAlertConfig handles GET /api/v1/alerts/config
func (h *OpsHandler) GetAlertConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.alerts.Config())
}

// UpdateAlertConfig handles PUT /api/v1/alerts/config
// The body is a partial config; omitted fields keep their current value
func (h *OpsHandler) UpdateAlertConfig(c *gin.Context) {
	var update alerts.ConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	c.JSON(http.StatusOK, h.alerts.UpdateConfig(update))
}

// ListTargets handles GET /api/v1/targets
// Returns the registered scraping targets in registration order
func (h *OpsHandler) ListTargets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"targets": h.registry.Targets(),
	})
}
