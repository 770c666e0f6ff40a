package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/podforge-backend/internal/http"
	httpH "github.com/yungbote/podforge-backend/internal/http/handlers"
	"github.com/yungbote/podforge-backend/internal/observability"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/sse"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Episode  *httpH.EpisodeHandler
	Library  *httpH.LibraryHandler
	Calendar *httpH.CalendarHandler
	Brand    *httpH.BrandHandler
	Events   *httpH.EventsHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services, hub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Episode:  httpH.NewEpisodeHandler(log, serviceset.Episodes, serviceset.Transcription, serviceset.QuoteCards),
		Library:  httpH.NewLibraryHandler(log, serviceset.Library),
		Calendar: httpH.NewCalendarHandler(log, serviceset.Calendar),
		Brand:    httpH.NewBrandHandler(log, serviceset.Brands),
		Events:   httpH.NewEventsHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, handlerset Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		HealthHandler:   handlerset.Health,
		EpisodeHandler:  handlerset.Episode,
		LibraryHandler:  handlerset.Library,
		CalendarHandler: handlerset.Calendar,
		BrandHandler:    handlerset.Brand,
		EventsHandler:   handlerset.Events,
		Metrics:         metrics,
	})
}
