package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farmtrack-backend/internal/scoring"
	"farmtrack-backend/internal/store"
)

// GetLeaderboard returns the ranked panchayats, optionally filtered by state and district.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	board, err := h.scoring.Leaderboard(c.Request.Context(), store.PanchayatFilter{
		State:    c.Query("state"),
		District: c.Query("district"),
	})
	if err != nil {
		h.internalError(c, "Failed to calculate leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// PostPanchayatScore recomputes the score of one panchayat.
func (h *Handler) PostPanchayatScore(c *gin.Context) {
	id := c.Param("id")
	score, err := h.scoring.RecomputeScore(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "Panchayat "+id+" not found")
			return
		}
		h.internalError(c, "Failed to update panchayat score", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"panchayat_id":      id,
		"utilization_score": score,
	})
}

// GetUtilizationAudit lists panchayats by stored score with their session totals.
func (h *Handler) GetUtilizationAudit(c *gin.Context) {
	limit := scoring.DefaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.scoring.Audit(c.Request.Context(), store.PanchayatFilter{State: c.Query("state")}, limit)
	if err != nil {
		h.internalError(c, "Failed to fetch utilization audit data", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"panchayats": rows,
	})
}
