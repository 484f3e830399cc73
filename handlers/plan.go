package handlers

import (
	"io"
	"net/http"
	"time"

	"tripscout/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlanHandler runs the progressive pipeline for one trip request and
// streams its updates as server-sent events.
func (h *Handler) PlanHandler(c *gin.Context) {
	var req pipeline.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	depDate, err := time.Parse("2006-01-02", req.DepartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid departure date format. Use YYYY-MM-DD"})
		return
	}
	retDate, err := time.Parse("2006-01-02", req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return date format. Use YYYY-MM-DD"})
		return
	}
	if !retDate.After(depDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Return date must be after departure date"})
		return
	}

	sessionID := uuid.New().String()
	p := pipeline.New(h.Gateways, req, h.Sessions, sessionID)
	updates := p.Run(c.Request.Context())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		u, ok := <-updates
		if !ok {
			return false
		}
		name := "stage"
		switch {
		case u.Error != "":
			name = "error"
		case u.Done:
			name = "complete"
		case u.Partial != nil:
			name = "partial"
		}
		c.SSEvent(name, u)
		return true
	})
}

// SessionHandler returns the persisted bundle for a completed session so
// a reload inside the session window skips the refetch.
func (h *Handler) SessionHandler(c *gin.Context) {
	id := c.Param("session")
	bundle, ok := h.Sessions.Bundle(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}
	c.JSON(http.StatusOK, bundle)
}
