package model

import "time"

// Coarse machine status shown on dashboards.
const (
	MachineStatusActive      = "active"
	MachineStatusIdle        = "idle"
	MachineStatusMaintenance = "maintenance"
	MachineStatusOffline     = "offline"
)

// HiringCentre is a custom hiring centre (CHC) that owns machines.
// An empty PanchayatID means the centre has not been assigned yet.
type HiringCentre struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	PanchayatID string    `gorm:"index;size:36" json:"panchayat_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Machine is a tracked piece of farm equipment carrying a GPS device.
type Machine struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	HiringCentreID     string     `gorm:"index;size:36;not null" json:"chc_id"`
	GPSDeviceID        string     `gorm:"uniqueIndex;size:64;not null" json:"gps_device_id"`
	RegistrationNumber string     `gorm:"size:64" json:"registration_number"`
	MachineType        string     `gorm:"size:64" json:"machine_type"`
	OperatorID         *string    `gorm:"size:64" json:"operator_id,omitempty"`
	Status             string     `gorm:"size:16;not null;default:idle" json:"status"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	LastActive         *time.Time `json:"last_active,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Associations
	HiringCentre *HiringCentre `gorm:"constraint:OnDelete:CASCADE" json:"chc,omitempty"`
}
