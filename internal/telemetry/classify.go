// Package telemetry maps raw device signals to machine-activity statuses.
package telemetry

import (
	"strings"

	"farmtrack-backend/internal/model"
)

// Status is the activity derived from a single reading.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusActive  Status = "ACTIVE"  // engine loaded and moving: fieldwork
	StatusMoving  Status = "MOVING"  // engine loaded, stationary (e.g. stationary tillage)
	StatusOffline Status = "OFFLINE" // ignition off
)

const (
	speedThreshold = 0.5
	rpmThreshold   = 100
)

// Classify derives the status of a reading. Missing speed or rpm count as zero.
// Rules are evaluated in priority order and the first match wins.
func Classify(ignition bool, speed *float64, rpm *int) Status {
	var s float64
	if speed != nil {
		s = *speed
	}
	var r int
	if rpm != nil {
		r = *rpm
	}

	switch {
	case !ignition:
		return StatusOffline
	case s > speedThreshold && r > rpmThreshold:
		return StatusActive
	case r > rpmThreshold:
		return StatusMoving
	default:
		return StatusIdle
	}
}

// Working reports whether the status counts as agricultural work.
func (s Status) Working() bool {
	return s == StatusActive || s == StatusMoving
}

// Resting reports whether the status ends work (idle or offline).
func (s Status) Resting() bool {
	return s == StatusIdle || s == StatusOffline
}

// MachineStatus maps the reading status onto the coarse machine status.
func (s Status) MachineStatus() string {
	switch s {
	case StatusActive, StatusMoving:
		return model.MachineStatusActive
	case StatusIdle:
		return model.MachineStatusIdle
	default:
		return model.MachineStatusOffline
	}
}

// Lower returns the lowercase form used in human-readable messages.
func (s Status) Lower() string {
	return strings.ToLower(string(s))
}

// ParseStatus converts a stored status back into a Status.
func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusIdle, StatusActive, StatusMoving, StatusOffline:
		return Status(v), true
	}
	return "", false
}
