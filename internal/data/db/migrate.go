package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/jointbuy-backend/internal/domain/purchases"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(purchases.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto migrations")
	return AutoMigrateAll(s.db)
}
