package scoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"farmtrack-backend/internal/store"
)

// Service recomputes panchayat scores and assembles leaderboards.
type Service struct {
	store   store.Store
	topN    int
	bottomN int
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a scoring service.
func NewService(st store.Store, topN, bottomN int, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		topN:    topN,
		bottomN: bottomN,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the wall clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecomputeScore derives and persists the score of one panchayat.
// It returns store.ErrNotFound for an unknown panchayat.
func (s *Service) RecomputeScore(ctx context.Context, panchayatID string) (int, error) {
	if _, err := s.store.FindPanchayat(ctx, panchayatID); err != nil {
		return 0, err
	}

	sessions, err := s.store.CompletedSessions(ctx, []string{panchayatID})
	if err != nil {
		return 0, err
	}
	m := Compute(sessions[panchayatID])

	if err := s.store.SaveScores(ctx, []store.ScoreUpdate{{PanchayatID: panchayatID, Score: m.Score}}); err != nil {
		return 0, err
	}
	s.logger.Info("Recomputed panchayat score",
		zap.String("panchayat_id", panchayatID),
		zap.Int("score", m.Score),
		zap.Int("sessions", m.SessionCount))
	return m.Score, nil
}

// Leaderboard recomputes every matching panchayat, persists scores and ranks, and returns the board.
func (s *Service) Leaderboard(ctx context.Context, f store.PanchayatFilter) (*Board, error) {
	panchayats, err := s.store.ListPanchayats(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(panchayats))
	for i, p := range panchayats {
		ids[i] = p.ID
	}
	sessions, err := s.store.CompletedSessions(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(panchayats))
	for i, p := range panchayats {
		entries[i] = NewEntry(p, Compute(sessions[p.ID]))
	}
	board := Rank(entries, s.topN, s.bottomN, s.now().UTC())

	updates := make([]store.ScoreUpdate, len(entries))
	for i, e := range entries {
		rank := e.Rank
		updates[i] = store.ScoreUpdate{PanchayatID: e.ID, Score: e.UtilizationScore, Rank: &rank}
	}
	if err := s.store.SaveScores(ctx, updates); err != nil {
		return nil, err
	}

	s.logger.Debug("Leaderboard computed",
		zap.String("state", f.State),
		zap.String("district", f.District),
		zap.Int("panchayats", board.TotalPanchayats))
	return &board, nil
}
