package handlers

import (
	"net/http"

	"tripscout/cache"
	"tripscout/pipeline"
	"tripscout/services"

	"github.com/gin-gonic/gin"
)

// Handler carries the wired services consumed by the HTTP surface.
type Handler struct {
	Gateways pipeline.Gateways
	Sessions *pipeline.SessionStore
	Resolver *services.LocationResolver
	CacheDB  *cache.DB
}

func (h *Handler) HealthHandler(c *gin.Context) {
	cacheStatus := "ok"
	if h.CacheDB == nil {
		cacheStatus = "not initialized"
	} else if err := h.CacheDB.Ping(); err != nil {
		cacheStatus = "error: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "TripScout API",
		"cache":   cacheStatus,
	})
}

func (h *Handler) CacheStatsHandler(c *gin.Context) {
	codes, coords := h.Resolver.CacheStats()
	c.JSON(http.StatusOK, gin.H{
		"airport_codes": codes,
		"city_coords":   coords,
	})
}

func (h *Handler) CacheCleanupHandler(c *gin.Context) {
	removed := h.Resolver.CacheCleanup()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
