package repos

import (
	"github.com/yungbote/podforge-backend/internal/data/repos/content"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type EpisodeRepo = content.EpisodeRepo
type StageRecordRepo = content.StageRecordRepo
type LibraryItemRepo = content.LibraryItemRepo
type CalendarEntryRepo = content.CalendarEntryRepo
type BrandProfileRepo = content.BrandProfileRepo

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return content.NewEpisodeRepo(db, baseLog)
}

func NewStageRecordRepo(db *gorm.DB, baseLog *logger.Logger) StageRecordRepo {
	return content.NewStageRecordRepo(db, baseLog)
}

func NewLibraryItemRepo(db *gorm.DB, baseLog *logger.Logger) LibraryItemRepo {
	return content.NewLibraryItemRepo(db, baseLog)
}

func NewCalendarEntryRepo(db *gorm.DB, baseLog *logger.Logger) CalendarEntryRepo {
	return content.NewCalendarEntryRepo(db, baseLog)
}

func NewBrandProfileRepo(db *gorm.DB, baseLog *logger.Logger) BrandProfileRepo {
	return content.NewBrandProfileRepo(db, baseLog)
}
