package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finpoint/bankscrape/internal/api/dto"
	"github.com/finpoint/bankscrape/internal/api/middleware"
	"github.com/finpoint/bankscrape/internal/session"
)

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sessionID := h.sessions.Create(req.TargetID, req.SubjectID, session.Fields{
		Cookies:   req.Cookies,
		Headers:   req.Headers,
		UserAgent: req.UserAgent,
	})

	sess, _ := h.sessions.Get(sessionID)
	c.JSON(http.StatusCreated, sess)
}

// GetCurrentSession handles GET /api/v1/sessions/current
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	sess := middleware.SessionFromContext(c)
	c.JSON(http.StatusOK, sess)
}

// UpdateCurrentSession handles PUT /api/v1/sessions/current
func (h *SessionHandler) UpdateCurrentSession(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sess := middleware.SessionFromContext(c)
	if !h.sessions.Update(sess.ID, session.Fields{
		Cookies:   req.Cookies,
		Headers:   req.Headers,
		UserAgent: req.UserAgent,
	}) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "session not found",
		})
		return
	}

	updated, _ := h.sessions.Get(sess.ID)
	c.JSON(http.StatusOK, updated)
}

// ExtendCurrentSession handles POST /api/v1/sessions/current/extend
func (h *SessionHandler) ExtendCurrentSession(c *gin.Context) {
	var req dto.ExtendSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sess := middleware.SessionFromContext(c)
	if !h.sessions.Extend(sess.ID, req.Minutes) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "session not found",
		})
		return
	}

	extended, _ := h.sessions.Get(sess.ID)
	c.JSON(http.StatusOK, extended)
}

// DeleteCurrentSession handles DELETE /api/v1/sessions/current
func (h *SessionHandler) DeleteCurrentSession(c *gin.Context) {
	sess := middleware.SessionFromContext(c)
	h.sessions.Remove(sess.ID)
	c.Status(http.StatusNoContent)
}

// GetSessionStats handles GET /api/v1/sessions/stats
func (h *SessionHandler) GetSessionStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active": h.sessions.Active(),
	})
}
