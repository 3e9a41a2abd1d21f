package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"farmtrack-backend/internal/status"
	"farmtrack-backend/internal/store"
)

// GetMachineStatus reports the live status of machines, optionally filtered by
// machine_ids (comma separated) and panchayat_id.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	var f store.MachineFilter
	for _, id := range strings.Split(c.Query("machine_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			f.MachineIDs = append(f.MachineIDs, id)
		}
	}
	f.PanchayatID = c.Query("panchayat_id")

	snapshots, err := h.store.MachineSnapshots(c.Request.Context(), f)
	if err != nil {
		h.internalError(c, "Failed to fetch machine status", err)
		return
	}

	report := status.Build(snapshots, h.now().UTC())
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": report.Timestamp,
		"summary":   report.Summary,
		"machines":  report.Machines,
	})
}
