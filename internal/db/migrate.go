package db

import (
	"fmt"

	"github.com/athenahq/toolgate/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.APIKey{},
		&models.ContextLog{},
		&models.RequestLog{},
	}
}

// AutoMigrate creates or updates all gateway tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
