package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/podforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/podforge-backend/internal/http/middleware"
	"github.com/yungbote/podforge-backend/internal/observability"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	EpisodeHandler  *httpH.EpisodeHandler
	LibraryHandler  *httpH.LibraryHandler
	CalendarHandler *httpH.CalendarHandler
	BrandHandler    *httpH.BrandHandler
	EventsHandler   *httpH.EventsHandler
	HealthHandler   *httpH.HealthHandler

	Metrics *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("podforge-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readiness", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", func(c *gin.Context) {
			cfg.Metrics.WriteHTTP(c.Writer, c.Request)
		})
	}

	api := r.Group("/api")
	{
		if cfg.EpisodeHandler != nil {
			api.POST("/episodes", cfg.EpisodeHandler.Create)
			api.GET("/episodes", cfg.EpisodeHandler.List)
			api.GET("/episodes/:id", cfg.EpisodeHandler.Get)
			api.PATCH("/episodes/:id", cfg.EpisodeHandler.Update)
			api.DELETE("/episodes/:id", cfg.EpisodeHandler.Delete)

			api.POST("/episodes/:id/process", cfg.EpisodeHandler.Process)
			api.POST("/episodes/:id/pause", cfg.EpisodeHandler.Pause)
			api.POST("/episodes/:id/stages/:stage/regenerate", cfg.EpisodeHandler.Regenerate)
			api.GET("/episodes/:id/status", cfg.EpisodeHandler.Status)
			api.GET("/episodes/:id/stages", cfg.EpisodeHandler.Stages)

			api.POST("/episodes/:id/audio", cfg.EpisodeHandler.UploadAudio)
			api.POST("/episodes/:id/transcribe", cfg.EpisodeHandler.Transcribe)
			api.POST("/episodes/:id/quote-cards", cfg.EpisodeHandler.GenerateQuoteCards)
		}

		if cfg.EventsHandler != nil {
			api.GET("/events", cfg.EventsHandler.StreamAll)
			api.GET("/episodes/:id/events", cfg.EventsHandler.StreamEpisode)
		}

		if cfg.LibraryHandler != nil {
			api.POST("/episodes/:id/library", cfg.LibraryHandler.Materialize)
			api.GET("/episodes/:id/library", cfg.LibraryHandler.ListByEpisode)
			api.GET("/library", cfg.LibraryHandler.List)
			api.GET("/library/:id", cfg.LibraryHandler.Get)
			api.PATCH("/library/:id", cfg.LibraryHandler.Update)
			api.DELETE("/library/:id", cfg.LibraryHandler.Delete)
		}

		if cfg.CalendarHandler != nil {
			api.POST("/calendar", cfg.CalendarHandler.Schedule)
			api.GET("/calendar", cfg.CalendarHandler.List)
			api.GET("/calendar/:id", cfg.CalendarHandler.Get)
			api.PATCH("/calendar/:id", cfg.CalendarHandler.Reschedule)
			api.POST("/calendar/:id/publish", cfg.CalendarHandler.MarkPublished)
			api.DELETE("/calendar/:id", cfg.CalendarHandler.Cancel)
		}

		if cfg.BrandHandler != nil {
			api.POST("/brands", cfg.BrandHandler.Create)
			api.GET("/brands", cfg.BrandHandler.List)
			api.GET("/brands/:id", cfg.BrandHandler.Get)
			api.PUT("/brands/:id", cfg.BrandHandler.Update)
			api.DELETE("/brands/:id", cfg.BrandHandler.Delete)
		}
	}

	return r
}
