// Package scoring computes panchayat utilization scores and leaderboards.
package scoring

import (
	"math"
	"time"

	"farmtrack-backend/internal/model"
)

// Component caps and normalisers of the weighted score.
const (
	acresWeight    = 40.0
	acresTarget    = 100.0
	sessionsWeight = 30.0
	sessionsTarget = 50.0
	durationWeight = 20.0
	durationTarget = 8.0 // hours
	subsidyWeight  = 10.0
	subsidyTarget  = 500.0 // per acre
)

// Metrics aggregates the verified, completed sessions of one panchayat.
type Metrics struct {
	SessionCount     int
	TotalAcres       float64
	TotalSubsidy     float64
	AvgDurationHours float64
	Score            int
}

// Qualifies reports whether a session counts towards the score.
func Qualifies(s model.UtilizationSession) bool {
	return s.Verified && s.EndTime != nil
}

// Compute aggregates the qualifying sessions and derives the 0..100 score.
// Sessions that are unverified or still open are ignored.
func Compute(sessions []model.UtilizationSession) Metrics {
	var m Metrics
	var totalDuration time.Duration
	for _, s := range sessions {
		if !Qualifies(s) {
			continue
		}
		m.SessionCount++
		if s.AcresCovered != nil {
			m.TotalAcres += *s.AcresCovered
		}
		if s.SubsidyAmount != nil {
			m.TotalSubsidy += *s.SubsidyAmount
		}
		totalDuration += s.EndTime.Sub(s.StartTime)
	}
	if m.SessionCount == 0 {
		return m
	}

	m.AvgDurationHours = totalDuration.Hours() / float64(m.SessionCount)

	var efficiency float64
	if m.TotalAcres > 0 {
		efficiency = m.TotalSubsidy / m.TotalAcres
	}

	total := capped(m.TotalAcres/acresTarget)*acresWeight +
		capped(float64(m.SessionCount)/sessionsTarget)*sessionsWeight +
		capped(m.AvgDurationHours/durationTarget)*durationWeight +
		capped(efficiency/subsidyTarget)*subsidyWeight
	m.Score = int(math.Round(total))
	return m
}

// capped clamps a component ratio to [0, 1].
func capped(ratio float64) float64 {
	return math.Max(0, math.Min(ratio, 1))
}
