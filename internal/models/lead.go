package models

import "time"

type LeadScore string

const (
	LeadScoreUnscored LeadScore = "UNSCORED"
	LeadScoreLow      LeadScore = "LOW"
	LeadScoreMedium   LeadScore = "MEDIUM"
	LeadScoreHigh     LeadScore = "HIGH"
)

func (s LeadScore) Valid() bool {
	switch s {
	case LeadScoreUnscored, LeadScoreLow, LeadScoreMedium, LeadScoreHigh:
		return true
	}
	return false
}

// Lead is attendee contact data captured at donation time, scored later by an
// administrator.
type Lead struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	DonationID string    `gorm:"type:uuid;not null;uniqueIndex" json:"donationId"`
	Email      string    `gorm:"type:text;not null" json:"email"`
	FirstName  string    `gorm:"type:text;not null" json:"firstName"`
	LastName   string    `gorm:"type:text;not null" json:"lastName"`
	Company    string    `gorm:"type:text;not null" json:"company"`
	JobRole    string    `gorm:"type:text;not null" json:"jobRole"`
	Score      LeadScore `gorm:"type:text;not null;default:UNSCORED" json:"score"`
	Notes      *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (Lead) TableName() string {
	return "leads"
}
