package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmtrack-backend/internal/events"
	"farmtrack-backend/internal/ingest"
	"farmtrack-backend/internal/reaper"
	"farmtrack-backend/internal/scoring"
	"farmtrack-backend/internal/store"
)

// Ingestor ingests raw device readings.
type Ingestor interface {
	Ingest(ctx context.Context, raw ingest.RawReading) (*ingest.Result, error)
}

// Sweeper closes stale sessions.
type Sweeper interface {
	SweepOnce(ctx context.Context, now time.Time) (*reaper.Summary, error)
}

// Scorer recomputes scores and leaderboards.
type Scorer interface {
	RecomputeScore(ctx context.Context, panchayatID string) (int, error)
	Leaderboard(ctx context.Context, f store.PanchayatFilter) (*scoring.Board, error)
	Audit(ctx context.Context, f store.PanchayatFilter, limit int) ([]scoring.AuditEntry, error)
}

// Deps are the collaborators of the API handlers.
type Deps struct {
	Store   store.Store
	Ingest  Ingestor
	Reaper  Sweeper
	Scoring Scorer
	Feed    events.Feed
	WebPush *webpush.Options
	Logger  *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	ingest  Ingestor
	reaper  Sweeper
	scoring Scorer
	feed    events.Feed
	webpush *webpush.Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		store:   d.Store,
		ingest:  d.Ingest,
		reaper:  d.Reaper,
		scoring: d.Scoring,
		feed:    d.Feed,
		webpush: d.WebPush,
		logger:  d.Logger,
		now:     d.Now,
	}
	if h.feed == nil {
		h.feed = events.NopFeed{}
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// respondError writes the error body shared by every endpoint.
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// internalError logs err and answers 500 without leaking details.
func (h *Handler) internalError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal_error", message)
}
