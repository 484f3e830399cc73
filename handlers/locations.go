package handlers

import (
	"net/http"

	"tripscout/services"

	"github.com/gin-gonic/gin"
)

// LocationsHandler serves typeahead suggestions. Queries shorter than two
// characters get an empty list without any vendor call.
func (h *Handler) LocationsHandler(c *gin.Context) {
	query := c.Query("q")
	suggestions := h.Resolver.Suggest(c.Request.Context(), query)
	if suggestions == nil {
		suggestions = []services.Location{}
	}
	c.JSON(http.StatusOK, gin.H{"locations": suggestions})
}
