package scoring

import (
	"sort"
	"time"

	"farmtrack-backend/internal/model"
)

// Medal marks the top three panchayats.
type Medal string

const (
	MedalGold   Medal = "GOLD"
	MedalSilver Medal = "SILVER"
	MedalBronze Medal = "BRONZE"
)

var medals = []Medal{MedalGold, MedalSilver, MedalBronze}

// Entry is one panchayat on the leaderboard.
type Entry struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	District                string  `json:"district"`
	State                   string  `json:"state"`
	UtilizationScore        int     `json:"utilization_score"`
	Rank                    int     `json:"rank"`
	Medal                   Medal   `json:"medal,omitempty"`
	TotalSessions           int     `json:"total_sessions"`
	TotalAcresCovered       float64 `json:"total_acres_covered"`
	AvgSessionDurationHours float64 `json:"avg_session_duration_hours"`
}

// Board is the ranked leaderboard.
type Board struct {
	TopPerformers    []Entry   `json:"top_performers"`
	BottomPerformers []Entry   `json:"bottom_performers"`
	TotalPanchayats  int       `json:"total_panchayats"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewEntry builds an unranked entry from a panchayat and its metrics.
func NewEntry(p model.Panchayat, m Metrics) Entry {
	return Entry{
		ID:                      p.ID,
		Name:                    p.Name,
		District:                p.District,
		State:                   p.State,
		UtilizationScore:        m.Score,
		TotalSessions:           m.SessionCount,
		TotalAcresCovered:       m.TotalAcres,
		AvgSessionDurationHours: m.AvgDurationHours,
	}
}

// Rank sorts entries by score descending, breaking ties by id, and assigns ranks 1..N in place.
// The top topN entries carry medals (at most three are awarded); the bottom bottomN are
// returned worst first.
func Rank(entries []Entry, topN, bottomN int, now time.Time) Board {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UtilizationScore != entries[j].UtilizationScore {
			return entries[i].UtilizationScore > entries[j].UtilizationScore
		}
		return entries[i].ID < entries[j].ID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	top := make([]Entry, 0, topN)
	for i := 0; i < topN && i < len(entries); i++ {
		e := entries[i]
		if i < len(medals) {
			e.Medal = medals[i]
		}
		top = append(top, e)
	}

	bottom := make([]Entry, 0, bottomN)
	for i := len(entries) - 1; i >= 0 && len(bottom) < bottomN; i-- {
		bottom = append(bottom, entries[i])
	}

	return Board{
		TopPerformers:    top,
		BottomPerformers: bottom,
		TotalPanchayats:  len(entries),
		LastUpdated:      now,
	}
}
