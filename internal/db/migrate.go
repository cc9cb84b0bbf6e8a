package db

import (
	"github.com/aydrian/tabnine-charity-activations/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.Charity{},
		&models.Event{},
		&models.CharityForEvent{},
		&models.Donation{},
		&models.Lead{},
		&models.Survey{},
		&models.ChangeMessage{},
	)
}
