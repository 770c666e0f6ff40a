package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/sse"
)

// EventsHandler serves the SSE progress streams. Clients subscribe to a
// single episode or to the global feed carrying every episode's events.
type EventsHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewEventsHandler(baseLog *logger.Logger, hub *sse.SSEHub) *EventsHandler {
	return &EventsHandler{
		log: baseLog.With("handler", "EventsHandler"),
		hub: hub,
	}
}

func (h *EventsHandler) StreamEpisode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, sse.EpisodeChannel(id))
	defer h.hub.CloseClient(client)

	h.log.Info("SSE stream opened", "episode_id", id)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

func (h *EventsHandler) StreamAll(c *gin.Context) {
	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, sse.GlobalChannel)
	defer h.hub.CloseClient(client)

	h.log.Info("Global SSE stream opened")
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
