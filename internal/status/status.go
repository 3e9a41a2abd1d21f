// Package status reports the live state of machines from their latest telemetry.
package status

import (
	"time"

	"farmtrack-backend/internal/store"
	"farmtrack-backend/internal/telemetry"
)

// RecentWindow is how fresh the latest reading must be for its status to count as live.
const RecentWindow = 5 * time.Minute

const offline = "offline"

// Location is the last known position of a machine.
type Location struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Signals are the raw signals of the latest reading.
type Signals struct {
	IgnitionOn bool     `json:"ignition_on"`
	Speed      *float64 `json:"speed"`
	RPM        *int     `json:"rpm"`
}

// ActiveSession describes a machine's open session.
type ActiveSession struct {
	SessionID       string    `json:"session_id"`
	StartedAt       time.Time `json:"started_at"`
	FarmerName      *string   `json:"farmer_name"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Machine is the live view of one machine.
type Machine struct {
	MachineID          string         `json:"machine_id"`
	RegistrationNumber string         `json:"registration_number"`
	MachineType        string         `json:"machine_type"`
	Status             string         `json:"status"`
	Location           Location       `json:"location"`
	LastUpdated        *time.Time     `json:"last_updated"`
	Telemetry          *Signals       `json:"telemetry"`
	ActiveSession      *ActiveSession `json:"active_session"`
}

// Summary counts machines per live status.
type Summary struct {
	Total             int `json:"total"`
	Active            int `json:"active"`
	Moving            int `json:"moving"`
	Idle              int `json:"idle"`
	Offline           int `json:"offline"`
	WithActiveSession int `json:"with_active_session"`
}

// Report is the live status of a set of machines.
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Machines  []Machine `json:"machines"`
}

// Build derives the live report at now. A machine whose latest reading is older than
// RecentWindow, or that never reported, is offline.
func Build(snapshots []store.MachineSnapshot, now time.Time) Report {
	r := Report{Timestamp: now, Machines: make([]Machine, 0, len(snapshots))}

	for _, snap := range snapshots {
		m := Machine{
			MachineID:          snap.Machine.ID,
			RegistrationNumber: snap.Machine.RegistrationNumber,
			MachineType:        snap.Machine.MachineType,
			Status:             offline,
			Location:           Location{Lat: snap.Machine.Latitude, Lng: snap.Machine.Longitude},
			LastUpdated:        snap.Machine.LastActive,
		}

		if l := snap.Latest; l != nil {
			if now.Sub(l.Timestamp) < RecentWindow {
				if st, ok := telemetry.ParseStatus(l.Status); ok {
					m.Status = st.Lower()
				}
			}
			ts := l.Timestamp
			m.LastUpdated = &ts
			m.Telemetry = &Signals{IgnitionOn: l.IgnitionStatus, Speed: l.Speed, RPM: l.RPM}
		}

		if s := snap.OpenSession; s != nil {
			m.ActiveSession = &ActiveSession{
				SessionID:       s.ID,
				StartedAt:       s.StartTime,
				FarmerName:      s.FarmerName,
				DurationMinutes: int(now.Sub(s.StartTime).Minutes()),
			}
			r.Summary.WithActiveSession++
		}

		switch m.Status {
		case "active":
			r.Summary.Active++
		case "moving":
			r.Summary.Moving++
		case "idle":
			r.Summary.Idle++
		default:
			r.Summary.Offline++
		}
		r.Machines = append(r.Machines, m)
	}

	r.Summary.Total = len(r.Machines)
	return r
}
