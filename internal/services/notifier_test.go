package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/sse"
)

func TestNotifierDeliversToEpisodeChannel(t *testing.T) {
	hub := sse.NewSSEHub(testLogger())
	notifier := NewEpisodeNotifier(testLogger(), hub, nil)

	episodeID := uuid.New()
	client := hub.NewSSEClient()
	hub.AddChannel(client, sse.EpisodeChannel(episodeID))
	defer hub.RemoveClient(client)

	notifier.ProgressFunc()(pipeline.ProgressEvent{
		EpisodeID: episodeID,
		Type:      pipeline.EventStageCompleted,
		Stage:     3,
		Percent:   40,
	})

	select {
	case msg := <-client.Outbound:
		if msg.Event != pipeline.EventStageCompleted {
			t.Fatalf("event = %q", msg.Event)
		}
		ev, ok := msg.Data.(pipeline.ProgressEvent)
		if !ok {
			t.Fatalf("data type = %T", msg.Data)
		}
		if ev.EpisodeID != episodeID || ev.Percent != 40 {
			t.Fatalf("unexpected event payload: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no message delivered")
	}
}

func TestNotifierWithoutBusIsClosable(t *testing.T) {
	notifier := NewEpisodeNotifier(testLogger(), sse.NewSSEHub(testLogger()), nil)
	if err := notifier.StartForwarding(context.Background()); err != nil {
		t.Fatalf("StartForwarding: %v", err)
	}
	if err := notifier.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
