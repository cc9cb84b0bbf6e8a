package models

import "time"

// Survey holds the market-research answers captured with a donation.
type Survey struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	DonationID      string    `gorm:"type:uuid;not null;uniqueIndex" json:"donationId"`
	Email           string    `gorm:"type:text;not null;default:''" json:"email"`
	UsingAI         string    `gorm:"type:text;not null" json:"usingAI"`
	CompanyAdoption string    `gorm:"type:text;not null" json:"companyAdoption"`
	SdicUseAI       string    `gorm:"type:text;not null;default:''" json:"sdicUseAI"`
	StatementAgree  string    `gorm:"type:text;not null" json:"statementAgree"`
	ToolEval        string    `gorm:"type:text;not null;default:''" json:"toolEval"`
	CreatedAt       time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (Survey) TableName() string {
	return "surveys"
}
