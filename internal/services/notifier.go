package services

import (
	"context"
	"time"

	"github.com/yungbote/podforge-backend/internal/clients/redis"
	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/sse"
)

/*
EpisodeNotifier fans pipeline progress out to SSE subscribers. When a
redis bus is configured, events round-trip through the bus so every
instance's hub delivers them; without a bus they go straight to the
local hub. Either way subscribers see the same event shapes.
*/
type EpisodeNotifier interface {
	ProgressFunc() pipeline.ProgressFunc
	StartForwarding(ctx context.Context) error
	Close() error
}

type episodeNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus redis.SSEBus
}

func NewEpisodeNotifier(baseLog *logger.Logger, hub *sse.SSEHub, bus redis.SSEBus) EpisodeNotifier {
	return &episodeNotifier{
		log: baseLog.With("service", "EpisodeNotifier"),
		hub: hub,
		bus: bus,
	}
}

// ProgressFunc adapts the notifier into the callback the pipeline takes.
// Publish failures fall back to local delivery so a flaky bus never
// silences progress for clients connected to this instance.
func (n *episodeNotifier) ProgressFunc() pipeline.ProgressFunc {
	return func(ev pipeline.ProgressEvent) {
		msg := sse.SSEMessage{
			Channel: sse.EpisodeChannel(ev.EpisodeID),
			Event:   ev.Type,
			Data:    ev,
		}
		if n.bus != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := n.bus.Publish(ctx, msg)
			cancel()
			if err == nil {
				return
			}
			n.log.Warn("Bus publish failed, delivering locally", "event", ev.Type, "error", err)
		}
		n.hub.Broadcast(msg)
	}
}

func (n *episodeNotifier) StartForwarding(ctx context.Context) error {
	if n.bus == nil {
		return nil
	}
	return n.bus.StartForwarder(ctx, func(m sse.SSEMessage) {
		n.hub.Broadcast(m)
	})
}

func (n *episodeNotifier) Close() error {
	if n.bus == nil {
		return nil
	}
	return n.bus.Close()
}
