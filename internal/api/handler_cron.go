package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CloseSessions runs one stale-session sweep.
func (h *Handler) CloseSessions(c *gin.Context) {
	summary, err := h.reaper.SweepOnce(c.Request.Context(), h.now().UTC())
	if err != nil {
		h.internalError(c, "Failed to close stale sessions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"timestamp":       summary.Timestamp,
		"summary":         summary.Counts,
		"closed_sessions": summary.ClosedSessions,
	})
}
