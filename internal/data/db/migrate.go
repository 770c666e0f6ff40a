package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/podforge-backend/internal/domain/content"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Episodes + pipeline state
		// =========================
		&content.Episode{},
		&content.StageRecord{},

		// =========================
		// Content surface
		// =========================
		&content.LibraryItem{},
		&content.CalendarEntry{},
		&content.BrandProfile{},
	)
}

func (s *Service) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
