package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const liveEventCount = 20

// GetLiveEvents returns the most recent session and alert events, newest first.
func (h *Handler) GetLiveEvents(c *gin.Context) {
	evts, err := h.feed.Recent(c.Request.Context(), liveEventCount)
	if err != nil {
		h.internalError(c, "Failed to fetch live events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  evts,
	})
}
