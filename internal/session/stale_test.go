package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"farmtrack-backend/internal/telemetry"
)

func TestEvaluateStale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		start      time.Time
		latest     *LatestReading
		wantClose  bool
		wantReason string
	}{
		{
			name:       "no telemetry and old session",
			start:      now.Add(-31 * time.Minute),
			wantClose:  true,
			wantReason: ReasonNoTelemetry,
		},
		{
			name:  "no telemetry and young session",
			start: now.Add(-29 * time.Minute),
		},
		{
			name:       "telemetry 15m1s old is stale",
			start:      now.Add(-2 * time.Hour),
			latest:     &LatestReading{Status: telemetry.StatusActive, Timestamp: now.Add(-(15*time.Minute + time.Second))},
			wantClose:  true,
			wantReason: ReasonStaleTelemetry,
		},
		{
			name:   "telemetry 14m59s old is fresh",
			start:  now.Add(-2 * time.Hour),
			latest: &LatestReading{Status: telemetry.StatusActive, Timestamp: now.Add(-(14*time.Minute + 59*time.Second))},
		},
		{
			name:   "telemetry exactly 15m old is fresh",
			start:  now.Add(-2 * time.Hour),
			latest: &LatestReading{Status: telemetry.StatusIdle, Timestamp: now.Add(-15 * time.Minute)},
		},
		{
			name:   "recent idle telemetry keeps session",
			start:  now.Add(-2 * time.Hour),
			latest: &LatestReading{Status: telemetry.StatusIdle, Timestamp: now.Add(-time.Minute)},
		},
		{
			name:       "old offline telemetry reports stale first",
			start:      now.Add(-2 * time.Hour),
			latest:     &LatestReading{Status: telemetry.StatusOffline, Timestamp: now.Add(-time.Hour)},
			wantClose:  true,
			wantReason: ReasonStaleTelemetry,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reason, shouldClose := EvaluateStale(now, tc.start, tc.latest, DefaultStaleThresholds)
			assert.Equal(t, tc.wantClose, shouldClose)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestEvaluateStale_IdleReason(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	th := StaleThresholds{StaleAfter: 30 * time.Minute, IdleAfter: 15 * time.Minute, NoTelemetryGrace: 30 * time.Minute}

	reason, shouldClose := EvaluateStale(now, now.Add(-time.Hour),
		&LatestReading{Status: telemetry.StatusIdle, Timestamp: now.Add(-20 * time.Minute)}, th)
	assert.True(t, shouldClose)
	assert.Equal(t, "Machine idle for >15 minutes", reason)

	reason, shouldClose = EvaluateStale(now, now.Add(-time.Hour),
		&LatestReading{Status: telemetry.StatusOffline, Timestamp: now.Add(-16 * time.Minute)}, th)
	assert.True(t, shouldClose)
	assert.Equal(t, "Machine offline for >15 minutes", reason)

	_, shouldClose = EvaluateStale(now, now.Add(-time.Hour),
		&LatestReading{Status: telemetry.StatusActive, Timestamp: now.Add(-20 * time.Minute)}, th)
	assert.False(t, shouldClose)
}
