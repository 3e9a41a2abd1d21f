package model

import "time"

// UtilizationSession is one continuous episode of agricultural work by a machine.
// At most one session per machine has a nil EndTime.
type UtilizationSession struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	MachineID     string     `gorm:"index;not null;size:36" json:"machine_id"`
	PanchayatID   string     `gorm:"index;size:36" json:"panchayat_id"`
	StartTime     time.Time  `gorm:"not null" json:"start_time"`
	StartLat      float64    `gorm:"not null" json:"start_lat"`
	StartLng      float64    `gorm:"not null" json:"start_lng"`
	EndTime       *time.Time `gorm:"index" json:"end_time"`
	EndLat        *float64   `json:"end_lat"`
	EndLng        *float64   `json:"end_lng"`
	OperatorID    *string    `gorm:"size:64" json:"operator_id"`
	FarmerName    *string    `gorm:"size:256" json:"farmer_name"`
	AcresCovered  *float64   `json:"acres_covered"`
	SubsidyAmount *float64   `json:"subsidy_amount"`
	Verified      bool       `gorm:"not null;default:false" json:"verified"`
	Notes         *string    `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"machine,omitempty"`
}

// Open reports whether the session has not been closed yet.
func (s *UtilizationSession) Open() bool {
	return s.EndTime == nil
}
