package model

import "time"

// PushSubscription holds a browser push endpoint and the panchayats whose alerts it wants.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Panchayats []*Panchayat `gorm:"many2many:subscription_panchayat_mapping;constraint:OnDelete:CASCADE"`
}
