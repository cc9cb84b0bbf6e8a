package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChangeMessage is an audit row for every change-feed envelope the listener
// consumed, whatever the source.
type ChangeMessage struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Source     string         `gorm:"type:varchar(20);not null;index" json:"source"`
	EventID    *string        `gorm:"type:uuid;index" json:"eventId,omitempty"`
	DonationID *string        `gorm:"type:uuid" json:"donationId,omitempty"`
	ReceivedAt time.Time      `gorm:"type:timestamptz;not null;index" json:"receivedAt"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
}

func (ChangeMessage) TableName() string {
	return "change_messages"
}
