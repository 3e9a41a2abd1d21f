package store

import (
	"errors"
	"time"

	"farmtrack-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ReadingWrite is everything one ingested reading persists. Session fields are optional and
// decided by the caller.
type ReadingWrite struct {
	Log           model.TelemetryLog
	Position      model.MachinePosition
	MachineStatus string
	ActiveAt      time.Time

	// StartSession is created unless the machine already has an open session.
	StartSession *model.UtilizationSession
	StartAlert   *model.Alert
	// CloseSession closes an open session by id; a session closed concurrently is left alone.
	CloseSession *SessionClose
}

// SessionClose closes one session if it is still open.
type SessionClose struct {
	SessionID string
	EndTime   time.Time
	EndLat    float64
	EndLng    float64
	Notes     *string
	// Alert is created only when the close actually happened.
	Alert *model.Alert
}

// ReadingResult reports which of the requested session writes took effect.
type ReadingResult struct {
	SessionStarted bool
	SessionClosed  bool
	Alerts         []model.Alert
}

// OpenSession is an open session with the machine's most recent telemetry row, if any.
type OpenSession struct {
	Session model.UtilizationSession
	Latest  *model.TelemetryLog
}

// PanchayatFilter narrows leaderboard queries. Empty fields match everything.
type PanchayatFilter struct {
	State    string
	District string
}

// ScoreUpdate is the derived score and rank of one panchayat. A nil Rank leaves the rank as is.
type ScoreUpdate struct {
	PanchayatID string
	Score       int
	Rank        *int
}

// MachineFilter narrows live status queries. Empty fields match everything.
type MachineFilter struct {
	MachineIDs  []string
	PanchayatID string
}

// MachineSnapshot is a machine with its latest telemetry and open session.
type MachineSnapshot struct {
	Machine     model.Machine
	Latest      *model.TelemetryLog
	OpenSession *model.UtilizationSession
}
