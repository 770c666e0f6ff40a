package app

import (
	"gorm.io/gorm"

	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type Repos struct {
	Episodes repos.EpisodeRepo
	Stages   repos.StageRecordRepo
	Library  repos.LibraryItemRepo
	Calendar repos.CalendarEntryRepo
	Brands   repos.BrandProfileRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Episodes: repos.NewEpisodeRepo(db, log),
		Stages:   repos.NewStageRecordRepo(db, log),
		Library:  repos.NewLibraryItemRepo(db, log),
		Calendar: repos.NewCalendarEntryRepo(db, log),
		Brands:   repos.NewBrandProfileRepo(db, log),
	}
}
