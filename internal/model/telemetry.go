package model

import "time"

// TelemetryLog is one raw sensor reading plus its derived status. Append-only.
type TelemetryLog struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	MachineID      string    `gorm:"not null;index:idx_telemetry_machine_ts,priority:1;size:36" json:"machine_id"`
	Timestamp      time.Time `gorm:"primaryKey;not null;index:idx_telemetry_machine_ts,priority:2,sort:desc" json:"timestamp"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	Speed          *float64  `json:"speed"`
	Heading        *float64  `json:"heading"`
	IgnitionStatus bool      `gorm:"not null" json:"ignition_status"`
	VibrationLevel *float64  `json:"vibration_level"`
	RPM            *int      `gorm:"column:rpm" json:"rpm"`
	Status         string    `gorm:"size:16;not null" json:"status"`
	CreatedAt      time.Time `json:"created_at"`

	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"machine,omitempty"`
}

// MachinePosition is a breadcrumb for trail rendering. Nothing in this service reads it back.
type MachinePosition struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MachineID string    `gorm:"index;not null;size:36" json:"machine_id"`
	Lat       float64   `gorm:"not null" json:"lat"`
	Lng       float64   `gorm:"not null" json:"lng"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Speed     *float64  `json:"speed"`
	Heading   *float64  `json:"heading"`
}
