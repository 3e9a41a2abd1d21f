package scoring

import (
	"context"
	"sort"

	"farmtrack-backend/internal/store"
)

const (
	DefaultAuditLimit = 10
	MaxAuditLimit     = 50
)

// AuditEntry is one row of the utilization audit chart.
type AuditEntry struct {
	PanchayatID      string  `json:"panchayat_id"`
	PanchayatName    string  `json:"panchayat_name"`
	District         string  `json:"district"`
	State            string  `json:"state"`
	SessionsCount    int     `json:"sessions_count"`
	TotalAcres       float64 `json:"total_acres"`
	UtilizationScore int     `json:"utilization_score"`
	Rank             *int    `json:"rank"`
}

// Audit lists panchayats by their stored score, highest first, without recomputing anything.
// SessionsCount covers every session; TotalAcres only verified, completed ones.
func (s *Service) Audit(ctx context.Context, f store.PanchayatFilter, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	limit = min(limit, MaxAuditLimit)

	panchayats, err := s.store.ListPanchayats(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(panchayats, func(i, j int) bool {
		return panchayats[i].UtilizationScore > panchayats[j].UtilizationScore
	})
	if len(panchayats) > limit {
		panchayats = panchayats[:limit]
	}

	ids := make([]string, len(panchayats))
	for i, p := range panchayats {
		ids[i] = p.ID
	}
	counts, err := s.store.SessionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.CompletedSessions(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]AuditEntry, len(panchayats))
	for i, p := range panchayats {
		var acres float64
		for _, sess := range sessions[p.ID] {
			if sess.AcresCovered != nil {
				acres += *sess.AcresCovered
			}
		}
		out[i] = AuditEntry{
			PanchayatID:      p.ID,
			PanchayatName:    p.Name,
			District:         p.District,
			State:            p.State,
			SessionsCount:    counts[p.ID],
			TotalAcres:       acres,
			UtilizationScore: p.UtilizationScore,
			Rank:             p.Rank,
		}
	}
	return out, nil
}
