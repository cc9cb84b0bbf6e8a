package models

import "time"

type Charity struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Slug        string    `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text;not null" json:"description"`
	LogoSVG     *string   `gorm:"type:text" json:"logoSVG,omitempty"`
	Website     *string   `gorm:"type:text" json:"website,omitempty"`
	Twitter     *string   `gorm:"type:text" json:"twitter,omitempty"`
	CreatedBy   string    `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (Charity) TableName() string {
	return "charities"
}
