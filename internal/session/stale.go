package session

import (
	"fmt"
	"time"

	"farmtrack-backend/internal/telemetry"
)

const (
	ReasonNoTelemetry    = "No telemetry data available"
	ReasonStaleTelemetry = "No recent telemetry (stale data)"
)

// StaleThresholds configures the reaper.
type StaleThresholds struct {
	StaleAfter       time.Duration // max telemetry age before an open session is closed
	IdleAfter        time.Duration // max time the latest reading may report idle/offline
	NoTelemetryGrace time.Duration // max session age when the machine never reported
}

// DefaultStaleThresholds matches a reaper scheduled every 15 minutes.
var DefaultStaleThresholds = StaleThresholds{
	StaleAfter:       15 * time.Minute,
	IdleAfter:        15 * time.Minute,
	NoTelemetryGrace: 30 * time.Minute,
}

// LatestReading is the most recent telemetry of a machine as seen by the reaper.
type LatestReading struct {
	Status    telemetry.Status
	Timestamp time.Time
}

// EvaluateStale decides whether an open session started at start should be force-closed at now.
// latest is nil when the machine has never reported. The returned reason is empty when the
// session stays open.
func EvaluateStale(now, start time.Time, latest *LatestReading, th StaleThresholds) (string, bool) {
	if latest == nil {
		if now.Sub(start) > th.NoTelemetryGrace {
			return ReasonNoTelemetry, true
		}
		return "", false
	}

	age := now.Sub(latest.Timestamp)
	if age > th.StaleAfter {
		return ReasonStaleTelemetry, true
	}
	if latest.Status.Resting() && latest.Timestamp.Before(now.Add(-th.IdleAfter)) {
		return fmt.Sprintf("Machine %s for >%d minutes", latest.Status.Lower(), int(th.IdleAfter.Minutes())), true
	}
	return "", false
}
