package app

import (
	"fmt"

	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/services"
	"github.com/yungbote/podforge-backend/internal/sse"
)

type Services struct {
	Notifier      services.EpisodeNotifier
	Processor     *pipeline.Processor
	Episodes      services.EpisodeService
	Transcription services.TranscriptionService
	QuoteCards    services.QuoteCardService
	Library       services.LibraryService
	Calendar      services.CalendarService
	Brands        services.BrandService
}

func wireServices(log *logger.Logger, reposet Repos, clients Clients, hub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	notifier := services.NewEpisodeNotifier(log, hub, clients.SSEBus)

	processor, err := pipeline.New(
		log,
		reposet.Episodes,
		reposet.Stages,
		reposet.Brands,
		clients.OpenAI,
		notifier.ProgressFunc(),
	)
	if err != nil {
		return Services{}, fmt.Errorf("init pipeline: %w", err)
	}

	return Services{
		Notifier:      notifier,
		Processor:     processor,
		Episodes:      services.NewEpisodeService(log, reposet.Episodes, reposet.Stages, reposet.Library, reposet.Brands, processor, clients.GcpBucket),
		Transcription: services.NewTranscriptionService(log, reposet.Episodes, clients.GcpBucket, clients.GcpSpeech),
		QuoteCards:    services.NewQuoteCardService(log, reposet.Episodes, reposet.Stages, reposet.Library, clients.GcpBucket),
		Library:       services.NewLibraryService(log, reposet.Episodes, reposet.Stages, reposet.Library),
		Calendar:      services.NewCalendarService(log, reposet.Calendar, reposet.Library),
		Brands:        services.NewBrandService(log, reposet.Brands),
	}, nil
}
