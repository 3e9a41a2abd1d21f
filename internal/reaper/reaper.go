// Package reaper force-closes utilization sessions whose machine went silent or stopped working.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"farmtrack-backend/internal/events"
	"farmtrack-backend/internal/model"
	"farmtrack-backend/internal/session"
	"farmtrack-backend/internal/store"
	"farmtrack-backend/internal/telemetry"
)

// Notifier receives the ids of newly created alerts.
type Notifier interface {
	Dispatch(alertID string)
}

// ClosedSession is one session closed by a sweep.
type ClosedSession struct {
	SessionID string `json:"session_id"`
	MachineID string `json:"machine_id"`
	Reason    string `json:"reason"`
}

// Counts summarizes a sweep.
type Counts struct {
	TotalOpenSessions int `json:"total_open_sessions"`
	SessionsClosed    int `json:"sessions_closed"`
}

// Summary is the outcome of one sweep.
type Summary struct {
	Timestamp      time.Time       `json:"timestamp"`
	Counts         Counts          `json:"summary"`
	ClosedSessions []ClosedSession `json:"closed_sessions"`
}

// Service runs stale-session sweeps on demand or on a timer.
type Service struct {
	store      store.Store
	feed       events.Feed
	notifier   Notifier
	thresholds session.StaleThresholds
	interval   time.Duration
	logger     *zap.Logger
}

// NewService creates a reaper. A nil feed or notifier disables that side effect.
func NewService(st store.Store, feed events.Feed, notifier Notifier, th session.StaleThresholds, interval time.Duration, logger *zap.Logger) *Service {
	if feed == nil {
		feed = events.NopFeed{}
	}
	return &Service{
		store:      st,
		feed:       feed,
		notifier:   notifier,
		thresholds: th,
		interval:   interval,
		logger:     logger,
	}
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("Starting session reaper", zap.Duration("interval", s.interval))

	s.sweepLogged(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session reaper shutting down")
			return
		case <-timer.C:
			s.sweepLogged(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Service) sweepLogged(ctx context.Context) {
	summary, err := s.SweepOnce(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Session sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Session sweep finished",
		zap.Int("open_sessions", summary.Counts.TotalOpenSessions),
		zap.Int("sessions_closed", summary.Counts.SessionsClosed))
}

// SweepOnce evaluates every open session against now and closes the stale ones.
// A session closed concurrently by ingestion is skipped and not reported.
func (s *Service) SweepOnce(ctx context.Context, now time.Time) (*Summary, error) {
	open, err := s.store.ListOpenSessions(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Timestamp:      now,
		Counts:         Counts{TotalOpenSessions: len(open)},
		ClosedSessions: []ClosedSession{},
	}

	for _, o := range open {
		var latest *session.LatestReading
		if o.Latest != nil {
			status, _ := telemetry.ParseStatus(o.Latest.Status)
			latest = &session.LatestReading{Status: status, Timestamp: o.Latest.Timestamp}
		}

		reason, stale := session.EvaluateStale(now, o.Session.StartTime, latest, s.thresholds)
		if !stale {
			continue
		}

		c := s.closeFor(o, reason, now)
		closed, err := s.store.CloseSession(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to close stale session %s: %w", o.Session.ID, err)
		}
		if !closed {
			s.logger.Debug("Session already closed", zap.String("session_id", o.Session.ID))
			continue
		}

		s.logger.Info("Auto-closed session",
			zap.String("session_id", o.Session.ID),
			zap.String("machine_id", o.Session.MachineID),
			zap.String("reason", reason))
		summary.ClosedSessions = append(summary.ClosedSessions, ClosedSession{
			SessionID: o.Session.ID,
			MachineID: o.Session.MachineID,
			Reason:    reason,
		})
		s.publish(ctx, o.Session.ID, c, now)
	}

	summary.Counts.SessionsClosed = len(summary.ClosedSessions)
	return summary, nil
}

// closeFor builds the close of a stale session. End coordinates fall back to the start position.
func (s *Service) closeFor(o store.OpenSession, reason string, now time.Time) store.SessionClose {
	endLat, endLng := o.Session.StartLat, o.Session.StartLng
	if o.Latest != nil {
		endLat, endLng = o.Latest.Latitude, o.Latest.Longitude
	}

	registration := o.Session.MachineID
	if o.Session.Machine != nil && o.Session.Machine.RegistrationNumber != "" {
		registration = o.Session.Machine.RegistrationNumber
	}

	notes := "Auto-closed by cron: " + reason
	machineID := o.Session.MachineID
	alert := &model.Alert{
		ID:        uuid.NewString(),
		MachineID: &machineID,
		AlertType: model.AlertTypeSessionAnomaly,
		Severity:  model.SeverityLow,
		Status:    model.AlertStatusOpen,
		Message:   fmt.Sprintf("Session auto-closed for machine %s", registration),
		Description: fmt.Sprintf("Session was automatically closed due to: %s. Duration: %d minutes",
			reason, int(now.Sub(o.Session.StartTime).Minutes())),
		CreatedAt: now,
	}
	if o.Session.PanchayatID != "" {
		panchayatID := o.Session.PanchayatID
		alert.PanchayatID = &panchayatID
	}

	return store.SessionClose{
		SessionID: o.Session.ID,
		EndTime:   now,
		EndLat:    endLat,
		EndLng:    endLng,
		Notes:     &notes,
		Alert:     alert,
	}
}

func (s *Service) publish(ctx context.Context, sessionID string, c store.SessionClose, now time.Time) {
	if err := s.feed.Publish(ctx, events.Event{
		ID:        sessionID,
		Type:      events.TypeSessionEnded,
		Message:   *c.Notes,
		Severity:  model.SeverityLow,
		Timestamp: now,
	}); err != nil {
		s.logger.Warn("Failed to publish session event", zap.Error(err))
	}
	if err := s.feed.Publish(ctx, events.FromAlert(*c.Alert, now)); err != nil {
		s.logger.Warn("Failed to publish alert event", zap.String("alert_id", c.Alert.ID), zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.Dispatch(c.Alert.ID)
	}
}
