package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finpoint/bankscrape/internal/api/dto"
	"github.com/finpoint/bankscrape/internal/queue"
	"github.com/finpoint/bankscrape/internal/queue/domain"
)

// SubmitScrape handles POST /api/v1/scrape
// Enqueues a scraping job for a target bank
func (h *ScrapeHandler) SubmitScrape(c *gin.Context) {
	var req dto.SubmitScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	priority := domain.Priority(req.Priority)
	if req.Priority == "" {
		priority = domain.PriorityMedium
	} else if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "priority must be one of high, medium, low",
		})
		return
	}

	opts := queue.Options{
		Priority:    priority,
		MaxAttempts: req.MaxAttempts,
	}
	if req.Backoff != nil {
		if req.Backoff.Type != domain.BackoffFixed && req.Backoff.Type != domain.BackoffExponential {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "backoff type must be fixed or exponential",
			})
			return
		}
		opts.Backoff = &domain.Backoff{
			Type:  req.Backoff.Type,
			Delay: time.Duration(req.Backoff.DelayMs) * time.Millisecond,
		}
	}
	if req.InitialDelayMs > 0 {
		opts.InitialDelay = time.Duration(req.InitialDelayMs) * time.Millisecond
	}

	payload := make(map[string]any, len(req.Credentials))
	for key, value := range req.Credentials {
		payload[key] = value
	}

	jobID := h.orchestrator.Submit(req.TargetID, payload, opts)

	state := domain.StateWaiting
	if opts.InitialDelay > 0 {
		state = domain.StateDelayed
	}

	c.JSON(http.StatusAccepted, dto.SubmitScrapeResponse{
		JobID:    jobID,
		TargetID: req.TargetID,
		Priority: string(priority),
		State:    state,
	})
}

// GetScrapeStatus handles GET /api/v1/scrape/:job_id/status
// Unknown job ids report the unknown state rather than an error
func (h *ScrapeHandler) GetScrapeStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	view := h.orchestrator.Status(jobID)

	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"state":       view.State,
		"progress":    view.Progress,
		"result":      view.Result,
		"fail_reason": view.FailReason,
	})
}

// CancelScrape handles POST /api/v1/scrape/:job_id/cancel
func (h *ScrapeHandler) CancelScrape(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if !h.orchestrator.Cancel(jobID) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":   jobID,
		"canceled": true,
	})
}

// GetQueueMetrics handles GET /api/v1/queue/metrics
func (h *ScrapeHandler) GetQueueMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.QueueMetrics())
}

// ListOutcomes handles GET /api/v1/outcomes
// Reads archived terminal outcomes; unavailable without the archive
func (h *ScrapeHandler) ListOutcomes(c *gin.Context) {
	if h.outcomes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "job archive is not configured",
		})
		return
	}

	var req dto.ListOutcomesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	var (
		outcomes any
		err      error
	)
	if req.State == domain.StateFailed {
		outcomes, err = h.outcomes.ListFailed(c.Request.Context(), req.TargetID, req.Limit)
	} else {
		outcomes, err = h.outcomes.ListRecent(c.Request.Context(), req.Limit)
	}
	if err != nil {
		h.logger.Error("Failed to list outcomes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list outcomes",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
	})
}
