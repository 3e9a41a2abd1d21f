package model

import "time"

const AlertTypeSessionAnomaly = "session_anomaly"

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	AlertStatusOpen         = "open"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
	AlertStatusDismissed    = "dismissed"
)

// Alert is a governance notification. Its acknowledge/resolve lifecycle is managed elsewhere.
type Alert struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	MachineID   *string    `gorm:"index;size:36" json:"machine_id"`
	PanchayatID *string    `gorm:"index;size:36" json:"panchayat_id"`
	AlertType   string     `gorm:"size:64;not null" json:"alert_type"`
	Severity    string     `gorm:"size:16;not null" json:"severity"`
	Status      string     `gorm:"size:16;not null" json:"status"`
	Message     string     `gorm:"not null" json:"message"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}
