// Package ingest turns device readings into telemetry rows and session transitions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"farmtrack-backend/internal/events"
	"farmtrack-backend/internal/lock"
	"farmtrack-backend/internal/model"
	"farmtrack-backend/internal/session"
	"farmtrack-backend/internal/store"
	"farmtrack-backend/internal/telemetry"
)

// Notifier receives the ids of newly created alerts.
type Notifier interface {
	Dispatch(alertID string)
}

// SessionAction describes the session change caused by a reading.
type SessionAction struct {
	Type      session.ActionType `json:"type"`
	SessionID string             `json:"session_id"`
}

// Result is the outcome of one ingested reading.
type Result struct {
	TelemetryID   string           `json:"telemetry_id"`
	Status        telemetry.Status `json:"status"`
	SessionAction *SessionAction   `json:"session_action"`
	Message       string           `json:"message"`
}

// Service ingests readings. Readings of the same device are serialized through the locker.
type Service struct {
	store       store.Store
	locker      lock.Locker
	feed        events.Feed
	notifier    Notifier
	minDuration time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewService creates an ingestion service. A nil feed or notifier disables that side effect.
func NewService(st store.Store, locker lock.Locker, feed events.Feed, notifier Notifier, minDuration time.Duration, logger *zap.Logger) *Service {
	if feed == nil {
		feed = events.NopFeed{}
	}
	if minDuration <= 0 {
		minDuration = session.DefaultMinDuration
	}
	return &Service{
		store:       st,
		locker:      locker,
		feed:        feed,
		notifier:    notifier,
		minDuration: minDuration,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock replaces the wall clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest validates, classifies and persists one raw reading.
func (s *Service) Ingest(ctx context.Context, raw RawReading) (*Result, error) {
	r, err := raw.Normalize()
	if err != nil {
		return nil, err
	}
	return s.IngestReading(ctx, r)
}

// IngestReading persists an already validated reading.
func (s *Service) IngestReading(ctx context.Context, r Reading) (*Result, error) {
	unlock, err := s.locker.Lock(ctx, r.GPSDeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock device %s: %w", r.GPSDeviceID, err)
	}
	result, created, err := s.apply(ctx, r)
	unlock()
	if err != nil {
		return nil, err
	}

	s.publish(ctx, result, created)
	return result, nil
}

func (s *Service) apply(ctx context.Context, r Reading) (*Result, []model.Alert, error) {
	machine, err := s.store.FindMachineByDevice(ctx, r.GPSDeviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Telemetry from unknown device", zap.String("gps_device_id", r.GPSDeviceID))
			return nil, nil, fmt.Errorf("%w: no machine with GPS device ID %s", ErrMachineNotFound, r.GPSDeviceID)
		}
		return nil, nil, err
	}

	now := s.now().UTC()
	readingTime := now
	if r.Timestamp != nil {
		readingTime = r.Timestamp.UTC()
	}

	status := telemetry.Classify(r.IgnitionStatus, r.Speed, r.RPM)

	var previous telemetry.Status
	prevLog, err := s.store.LatestTelemetry(ctx, machine.ID)
	if err != nil {
		return nil, nil, err
	}
	if prevLog != nil {
		previous, _ = telemetry.ParseStatus(prevLog.Status)
	}

	open, err := s.store.FindOpenSession(ctx, machine.ID)
	if err != nil {
		return nil, nil, err
	}

	t := session.Transition{Previous: previous, Current: status, Now: now}
	if open != nil {
		t.OpenSince = &open.StartTime
	}
	decision := session.Decide(t, s.minDuration)

	w := store.ReadingWrite{
		Log: model.TelemetryLog{
			ID:             uuid.NewString(),
			MachineID:      machine.ID,
			Timestamp:      readingTime,
			Latitude:       r.Latitude,
			Longitude:      r.Longitude,
			Speed:          r.Speed,
			Heading:        r.Heading,
			IgnitionStatus: r.IgnitionStatus,
			VibrationLevel: r.VibrationLevel,
			RPM:            r.RPM,
			Status:         string(status),
		},
		Position: model.MachinePosition{
			ID:        uuid.NewString(),
			MachineID: machine.ID,
			Lat:       r.Latitude,
			Lng:       r.Longitude,
			Timestamp: readingTime,
			Speed:     r.Speed,
			Heading:   r.Heading,
		},
		MachineStatus: status.MachineStatus(),
		ActiveAt:      now,
	}

	var action *SessionAction
	switch decision.Action {
	case session.ActionStarted:
		w.StartSession, w.StartAlert = s.newSession(machine, r, readingTime, now)
		action = &SessionAction{Type: session.ActionStarted, SessionID: w.StartSession.ID}
	case session.ActionClosed:
		// A device clock behind the server must not end a session before it started.
		endTime := readingTime
		if endTime.Before(open.StartTime) {
			endTime = open.StartTime
		}
		w.CloseSession = &store.SessionClose{
			SessionID: open.ID,
			EndTime:   endTime,
			EndLat:    r.Latitude,
			EndLng:    r.Longitude,
		}
		action = &SessionAction{Type: session.ActionClosed, SessionID: open.ID}
	default:
		if decision.Debounced {
			s.logger.Debug("Session close debounced",
				zap.String("machine_id", machine.ID),
				zap.String("session_id", open.ID),
				zap.Duration("elapsed", decision.Elapsed))
		}
	}

	res, err := s.store.ApplyReading(ctx, w)
	if err != nil {
		return nil, nil, err
	}

	// The store refuses a start when a session appeared meanwhile and skips a close when the
	// session was already closed; report only what took effect.
	if action != nil && !res.SessionStarted && !res.SessionClosed {
		action = nil
	}

	result := &Result{
		TelemetryID:   w.Log.ID,
		Status:        status,
		SessionAction: action,
		Message:       message(action),
	}
	if action != nil {
		s.logger.Info("Session transition",
			zap.String("machine_id", machine.ID),
			zap.String("action", string(action.Type)),
			zap.String("session_id", action.SessionID))
	}
	return result, res.Alerts, nil
}

func (s *Service) newSession(machine *model.Machine, r Reading, start, now time.Time) (*model.UtilizationSession, *model.Alert) {
	var panchayatID string
	if machine.HiringCentre != nil {
		panchayatID = machine.HiringCentre.PanchayatID
	}
	if panchayatID == "" {
		s.logger.Warn("Opening session for machine without panchayat",
			zap.String("machine_id", machine.ID),
			zap.String("chc_id", machine.HiringCentreID))
	}

	sess := &model.UtilizationSession{
		ID:          uuid.NewString(),
		MachineID:   machine.ID,
		PanchayatID: panchayatID,
		StartTime:   start,
		StartLat:    r.Latitude,
		StartLng:    r.Longitude,
		OperatorID:  machine.OperatorID,
	}

	operator := "Unknown"
	if machine.OperatorID != nil && *machine.OperatorID != "" {
		operator = *machine.OperatorID
	}
	machineID := machine.ID
	alert := &model.Alert{
		ID:          uuid.NewString(),
		MachineID:   &machineID,
		AlertType:   model.AlertTypeSessionAnomaly,
		Severity:    model.SeverityLow,
		Status:      model.AlertStatusOpen,
		Message:     fmt.Sprintf("New work session started for %s %s", machine.MachineType, machine.RegistrationNumber),
		Description: fmt.Sprintf("Session auto-created at (%v, %v). Operator: %s", r.Latitude, r.Longitude, operator),
		CreatedAt:   now,
	}
	if panchayatID != "" {
		alert.PanchayatID = &panchayatID
	}
	return sess, alert
}

// publish pushes session events and alert notifications. Failures are logged only.
func (s *Service) publish(ctx context.Context, result *Result, alerts []model.Alert) {
	if result.SessionAction != nil {
		e := events.Event{
			ID:        result.SessionAction.SessionID,
			Type:      events.TypeSessionStarted,
			Message:   result.Message,
			Severity:  model.SeverityLow,
			Timestamp: s.now().UTC(),
		}
		if result.SessionAction.Type == session.ActionClosed {
			e.Type = events.TypeSessionEnded
		}
		if err := s.feed.Publish(ctx, e); err != nil {
			s.logger.Warn("Failed to publish session event", zap.Error(err))
		}
	}

	for _, a := range alerts {
		if err := s.feed.Publish(ctx, events.FromAlert(a, s.now().UTC())); err != nil {
			s.logger.Warn("Failed to publish alert event", zap.String("alert_id", a.ID), zap.Error(err))
		}
		if s.notifier != nil {
			s.notifier.Dispatch(a.ID)
		}
	}
}

func message(action *SessionAction) string {
	switch {
	case action == nil:
		return "Telemetry received"
	case action.Type == session.ActionStarted:
		return "Telemetry received and new session started"
	default:
		return "Telemetry received and session closed"
	}
}
