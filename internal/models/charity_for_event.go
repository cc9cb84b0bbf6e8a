package models

// CharityForEvent binds a charity to an event with a per-event display color.
type CharityForEvent struct {
	EventID   string `gorm:"primaryKey;type:uuid;uniqueIndex:idx_event_charity" json:"eventId"`
	CharityID string `gorm:"primaryKey;type:uuid;uniqueIndex:idx_event_charity" json:"charityId"`
	Color     string `gorm:"type:text;not null" json:"color"`

	Charity *Charity `gorm:"foreignKey:CharityID" json:"charity,omitempty"`
}

func (CharityForEvent) TableName() string {
	return "charities_for_events"
}
