package model

import "time"

// Panchayat is the administrative unit sessions are accounted against.
// UtilizationScore and Rank are derived and fully recomputed by the scoring engine.
type Panchayat struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Name             string    `gorm:"size:256;not null" json:"name"`
	District         string    `gorm:"index;size:128" json:"district"`
	State            string    `gorm:"index;size:128" json:"state"`
	Block            string    `gorm:"size:128" json:"block"`
	Population       int       `json:"population"`
	UtilizationScore int       `gorm:"not null;default:0" json:"utilization_score"`
	Rank             *int      `json:"rank,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
