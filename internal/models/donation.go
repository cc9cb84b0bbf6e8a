package models

import "time"

// Donation is immutable once created; nothing in the system updates or
// deletes a donation row.
type Donation struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	EventID   string    `gorm:"type:uuid;not null;index" json:"eventId"`
	CharityID string    `gorm:"type:uuid;not null;index" json:"charityId"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"createdAt"`

	Event   *Event   `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Charity *Charity `gorm:"foreignKey:CharityID" json:"charity,omitempty"`
	Lead    *Lead    `gorm:"foreignKey:DonationID" json:"lead,omitempty"`
	Survey  *Survey  `gorm:"foreignKey:DonationID" json:"survey,omitempty"`
}

func (Donation) TableName() string {
	return "donations"
}
