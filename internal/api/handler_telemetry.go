package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farmtrack-backend/internal/ingest"
)

const (
	defaultTelemetryLimit = 100
	maxTelemetryLimit     = 1000
)

// PostTelemetry ingests one device reading.
func (h *Handler) PostTelemetry(c *gin.Context) {
	var raw ingest.RawReading
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "Request body must be a JSON telemetry reading")
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), raw)
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	case errors.Is(err, ingest.ErrMachineNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
		return
	case err != nil:
		h.internalError(c, "Failed to process telemetry data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"telemetry_id":   res.TelemetryID,
		"status":         res.Status,
		"session_action": res.SessionAction,
		"message":        res.Message,
	})
}

// GetTelemetry lists the newest readings of a machine.
func (h *Handler) GetTelemetry(c *gin.Context) {
	machineID := c.Query("machine_id")
	if machineID == "" {
		respondError(c, http.StatusBadRequest, "invalid_input", "Missing required parameter: machine_id")
		return
	}

	limit := defaultTelemetryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		limit = min(n, maxTelemetryLimit)
	}

	logs, err := h.store.ListTelemetry(c.Request.Context(), machineID, limit)
	if err != nil {
		h.internalError(c, "Failed to retrieve telemetry data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(logs),
		"data":    logs,
	})
}
