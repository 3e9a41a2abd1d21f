// Package session holds the pure decision rules for opening and closing utilization sessions.
package session

import (
	"time"

	"farmtrack-backend/internal/telemetry"
)

// ActionType is the session side effect of one telemetry reading.
type ActionType string

const (
	ActionNone    ActionType = ""
	ActionStarted ActionType = "session_started"
	ActionClosed  ActionType = "session_closed"
)

// DefaultMinDuration is the shortest session the lifecycle manager will close.
// Shorter dips to idle are treated as noise.
const DefaultMinDuration = 10 * time.Minute

// Transition is everything the lifecycle decision depends on.
// Previous is empty when the machine has no earlier telemetry.
type Transition struct {
	Previous  telemetry.Status
	Current   telemetry.Status
	OpenSince *time.Time // start of the open session, nil if none
	Now       time.Time
}

// Decision is the outcome of Decide.
type Decision struct {
	Action ActionType
	// Debounced is set when a close was due but the session was younger than the minimum duration.
	Debounced bool
	Elapsed   time.Duration
}

// Decide applies the transition table:
//
//	IDLE|OFFLINE -> ACTIVE|MOVING with no open session: start
//	ACTIVE|MOVING -> IDLE|OFFLINE with an open session at least minDuration old: close
//
// Every other combination leaves sessions alone.
func Decide(t Transition, minDuration time.Duration) Decision {
	if t.OpenSince == nil {
		if t.Previous.Resting() && t.Current.Working() {
			return Decision{Action: ActionStarted}
		}
		return Decision{Action: ActionNone}
	}

	if t.Previous.Working() && t.Current.Resting() {
		elapsed := t.Now.Sub(*t.OpenSince)
		if elapsed >= minDuration {
			return Decision{Action: ActionClosed, Elapsed: elapsed}
		}
		return Decision{Action: ActionNone, Debounced: true, Elapsed: elapsed}
	}
	return Decision{Action: ActionNone}
}
