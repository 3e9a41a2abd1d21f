package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"farmtrack-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	FindMachineByDevice(ctx context.Context, deviceID string) (*model.Machine, error)
	LatestTelemetry(ctx context.Context, machineID string) (*model.TelemetryLog, error)
	FindOpenSession(ctx context.Context, machineID string) (*model.UtilizationSession, error)
	ApplyReading(ctx context.Context, w ReadingWrite) (*ReadingResult, error)
	ListTelemetry(ctx context.Context, machineID string, limit int) ([]model.TelemetryLog, error)

	ListOpenSessions(ctx context.Context) ([]OpenSession, error)
	CloseSession(ctx context.Context, c SessionClose) (bool, error)

	FindPanchayat(ctx context.Context, id string) (*model.Panchayat, error)
	ListPanchayats(ctx context.Context, f PanchayatFilter) ([]model.Panchayat, error)
	CompletedSessions(ctx context.Context, panchayatIDs []string) (map[string][]model.UtilizationSession, error)
	SessionCounts(ctx context.Context, panchayatIDs []string) (map[string]int, error)
	SaveScores(ctx context.Context, updates []ScoreUpdate) error

	MachineSnapshots(ctx context.Context, f MachineFilter) ([]MachineSnapshot, error)
	FindAlert(ctx context.Context, id string) (*model.Alert, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// FindMachineByDevice loads the machine carrying the GPS device, with its hiring centre.
func (s *gormStore) FindMachineByDevice(ctx context.Context, deviceID string) (*model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).Preload("HiringCentre").Where("gps_device_id = ?", deviceID).First(&m).Error
	if err != nil {
		return nil, notFound(err, "machine with device %s", deviceID)
	}
	return &m, nil
}

// LatestTelemetry returns the most recent reading of a machine, or nil if it never reported.
func (s *gormStore) LatestTelemetry(ctx context.Context, machineID string) (*model.TelemetryLog, error) {
	return latestTelemetry(s.db.WithContext(ctx), machineID)
}

func latestTelemetry(db *gorm.DB, machineID string) (*model.TelemetryLog, error) {
	var logs []model.TelemetryLog
	if err := db.Where("machine_id = ?", machineID).Order("timestamp DESC").Limit(1).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch latest telemetry for machine %s: %w", machineID, err)
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

// FindOpenSession returns the open session of a machine, or nil.
func (s *gormStore) FindOpenSession(ctx context.Context, machineID string) (*model.UtilizationSession, error) {
	return findOpenSession(s.db.WithContext(ctx), machineID)
}

func findOpenSession(db *gorm.DB, machineID string) (*model.UtilizationSession, error) {
	var sessions []model.UtilizationSession
	if err := db.Where("machine_id = ? AND end_time IS NULL", machineID).
		Order("start_time DESC").Limit(1).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open session for machine %s: %w", machineID, err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// ApplyReading persists a reading and its session side effects in one transaction.
func (s *gormStore) ApplyReading(ctx context.Context, w ReadingWrite) (*ReadingResult, error) {
	result := &ReadingResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&w.Log).Error; err != nil {
			return fmt.Errorf("failed to create telemetry log for machine %s: %w", w.Log.MachineID, err)
		}

		if w.StartSession != nil {
			started, err := startSession(tx, w.StartSession)
			if err != nil {
				return err
			}
			if started {
				result.SessionStarted = true
				if w.StartAlert != nil {
					if err := tx.Create(w.StartAlert).Error; err != nil {
						return fmt.Errorf("failed to create session alert: %w", err)
					}
					result.Alerts = append(result.Alerts, *w.StartAlert)
				}
			}
		}

		if w.CloseSession != nil {
			closed, err := closeSession(tx, *w.CloseSession)
			if err != nil {
				return err
			}
			if closed {
				result.SessionClosed = true
				if w.CloseSession.Alert != nil {
					result.Alerts = append(result.Alerts, *w.CloseSession.Alert)
				}
			}
		}

		if err := tx.Model(&model.Machine{}).Where("id = ?", w.Log.MachineID).Updates(map[string]any{
			"latitude":    w.Log.Latitude,
			"longitude":   w.Log.Longitude,
			"status":      w.MachineStatus,
			"last_active": w.ActiveAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to update machine %s: %w", w.Log.MachineID, err)
		}

		if err := tx.Create(&w.Position).Error; err != nil {
			return fmt.Errorf("failed to create position for machine %s: %w", w.Log.MachineID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// startSession creates the session unless the machine already has an open one.
func startSession(tx *gorm.DB, session *model.UtilizationSession) (bool, error) {
	var open int64
	if err := tx.Model(&model.UtilizationSession{}).
		Where("machine_id = ? AND end_time IS NULL", session.MachineID).
		Count(&open).Error; err != nil {
		return false, fmt.Errorf("failed to count open sessions for machine %s: %w", session.MachineID, err)
	}
	if open > 0 {
		return false, nil
	}
	if err := tx.Create(session).Error; err != nil {
		return false, fmt.Errorf("failed to create session for machine %s: %w", session.MachineID, err)
	}
	return true, nil
}

// CloseSession closes a session if it is still open and records the close alert.
// It reports false when the session was already closed.
func (s *gormStore) CloseSession(ctx context.Context, c SessionClose) (bool, error) {
	var closed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		closed, err = closeSession(tx, c)
		return err
	})
	return closed, err
}

func closeSession(tx *gorm.DB, c SessionClose) (bool, error) {
	updates := map[string]any{
		"end_time": c.EndTime,
		"end_lat":  c.EndLat,
		"end_lng":  c.EndLng,
	}
	if c.Notes != nil {
		updates["notes"] = *c.Notes
	}

	res := tx.Model(&model.UtilizationSession{}).
		Where("id = ? AND end_time IS NULL", c.SessionID).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to close session %s: %w", c.SessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if c.Alert != nil {
		if err := tx.Create(c.Alert).Error; err != nil {
			return false, fmt.Errorf("failed to create close alert for session %s: %w", c.SessionID, err)
		}
	}
	return true, nil
}

// ListTelemetry returns the newest readings of a machine, newest first.
func (s *gormStore) ListTelemetry(ctx context.Context, machineID string, limit int) ([]model.TelemetryLog, error) {
	var logs []model.TelemetryLog
	err := s.db.WithContext(ctx).
		Preload("Machine", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "registration_number", "machine_type")
		}).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list telemetry for machine %s: %w", machineID, err)
	}
	return logs, nil
}

// ListOpenSessions returns every open session joined to its machine's latest telemetry.
func (s *gormStore) ListOpenSessions(ctx context.Context) ([]OpenSession, error) {
	db := s.db.WithContext(ctx)

	var sessions []model.UtilizationSession
	if err := db.Preload("Machine").Where("end_time IS NULL").Order("start_time").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open sessions: %w", err)
	}

	out := make([]OpenSession, 0, len(sessions))
	for _, sess := range sessions {
		latest, err := latestTelemetry(db, sess.MachineID)
		if err != nil {
			return nil, err
		}
		out = append(out, OpenSession{Session: sess, Latest: latest})
	}
	return out, nil
}

func (s *gormStore) FindPanchayat(ctx context.Context, id string) (*model.Panchayat, error) {
	var p model.Panchayat
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err, "panchayat %s", id)
	}
	return &p, nil
}

func (s *gormStore) ListPanchayats(ctx context.Context, f PanchayatFilter) ([]model.Panchayat, error) {
	q := s.db.WithContext(ctx).Model(&model.Panchayat{})
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.District != "" {
		q = q.Where("district = ?", f.District)
	}

	var panchayats []model.Panchayat
	if err := q.Order("id").Find(&panchayats).Error; err != nil {
		return nil, fmt.Errorf("failed to list panchayats: %w", err)
	}
	return panchayats, nil
}

// CompletedSessions returns the verified, closed sessions of the given panchayats keyed by panchayat.
func (s *gormStore) CompletedSessions(ctx context.Context, panchayatIDs []string) (map[string][]model.UtilizationSession, error) {
	out := make(map[string][]model.UtilizationSession, len(panchayatIDs))
	if len(panchayatIDs) == 0 {
		return out, nil
	}

	var sessions []model.UtilizationSession
	if err := s.db.WithContext(ctx).
		Where("panchayat_id IN ? AND verified = ? AND end_time IS NOT NULL", panchayatIDs, true).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch completed sessions: %w", err)
	}
	for _, sess := range sessions {
		out[sess.PanchayatID] = append(out[sess.PanchayatID], sess)
	}
	return out, nil
}

// SessionCounts returns the number of sessions of every state per panchayat.
func (s *gormStore) SessionCounts(ctx context.Context, panchayatIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(panchayatIDs))
	if len(panchayatIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PanchayatID string
		Count       int
	}
	if err := s.db.WithContext(ctx).Model(&model.UtilizationSession{}).
		Select("panchayat_id, COUNT(*) AS count").
		Where("panchayat_id IN ?", panchayatIDs).
		Group("panchayat_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	for _, r := range rows {
		out[r.PanchayatID] = r.Count
	}
	return out, nil
}

// SaveScores writes scores and ranks in one transaction.
func (s *gormStore) SaveScores(ctx context.Context, updates []ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			fields := map[string]any{"utilization_score": u.Score}
			if u.Rank != nil {
				fields["rank"] = *u.Rank
			}
			if err := tx.Model(&model.Panchayat{}).Where("id = ?", u.PanchayatID).Updates(fields).Error; err != nil {
				return fmt.Errorf("failed to update score of panchayat %s: %w", u.PanchayatID, err)
			}
		}
		return nil
	})
}

// MachineSnapshots loads machines with their latest telemetry and open session.
func (s *gormStore) MachineSnapshots(ctx context.Context, f MachineFilter) ([]MachineSnapshot, error) {
	db := s.db.WithContext(ctx)

	q := db.Model(&model.Machine{})
	if len(f.MachineIDs) > 0 {
		q = q.Where("machines.id IN ?", f.MachineIDs)
	}
	if f.PanchayatID != "" {
		q = q.Joins("JOIN hiring_centres hc ON hc.id = machines.hiring_centre_id").
			Where("hc.panchayat_id = ?", f.PanchayatID)
	}

	var machines []model.Machine
	if err := q.Order("machines.id").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	out := make([]MachineSnapshot, 0, len(machines))
	for _, m := range machines {
		latest, err := latestTelemetry(db, m.ID)
		if err != nil {
			return nil, err
		}
		open, err := findOpenSession(db, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MachineSnapshot{Machine: m, Latest: latest, OpenSession: open})
	}
	return out, nil
}

func (s *gormStore) FindAlert(ctx context.Context, id string) (*model.Alert, error) {
	var a model.Alert
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err, "alert %s", id)
	}
	return &a, nil
}

func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
