package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID               string          `gorm:"primaryKey;type:uuid" json:"id"`
	Name             string          `gorm:"type:text;not null" json:"name"`
	Slug             string          `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	Location         string          `gorm:"type:text;not null" json:"location"`
	DonationAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"donationAmount"`
	DonationCurrency string          `gorm:"type:text;not null;default:usd" json:"donationCurrency"`
	StartDate        time.Time       `gorm:"type:timestamptz;not null" json:"startDate"`
	EndDate          time.Time       `gorm:"type:timestamptz;not null" json:"endDate"`
	CollectLeads     bool            `gorm:"not null;default:false" json:"collectLeads"`
	LegalBlurb       *string         `gorm:"type:text" json:"legalBlurb,omitempty"`
	ResponseTemplate string          `gorm:"type:text;not null" json:"responseTemplate"`
	TweetTemplate    string          `gorm:"type:text;not null" json:"tweetTemplate"`
	Twitter          *string         `gorm:"type:text" json:"twitter,omitempty"`
	CreatedBy        string          `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedAt        time.Time       `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`

	Charities []CharityForEvent `gorm:"foreignKey:EventID" json:"charities,omitempty"`
}

func (Event) TableName() string {
	return "events"
}
