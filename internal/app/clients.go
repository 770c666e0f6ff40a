package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/podforge-backend/internal/clients/gcp"
	"github.com/yungbote/podforge-backend/internal/clients/redis"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/platform/openai"
)

type Clients struct {
	SSEBus    redis.SSEBus
	OpenAI    openai.Client
	GcpBucket gcp.BucketService
	GcpSpeech gcp.Speech
}

// wireClients builds the external clients. The completion provider is
// mandatory; redis, object storage, and speech are optional and wired
// only when their env is present, so a bare-bones deployment still
// serves the pipeline.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	aiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init completion client: %w", err)
	}

	var bus redis.SSEBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := redis.NewSSEBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		bus = b
	}

	var bucket gcp.BucketService
	var speech gcp.Speech
	if strings.TrimSpace(os.Getenv("AUDIO_GCS_BUCKET_NAME")) != "" {
		bucket, err = gcp.NewBucketService(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		speech, err = gcp.NewSpeech(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init speech client: %w", err)
		}
	} else {
		log.Warn("AUDIO_GCS_BUCKET_NAME unset; audio upload and transcription disabled")
	}

	return Clients{
		SSEBus:    bus,
		OpenAI:    aiClient,
		GcpBucket: bucket,
		GcpSpeech: speech,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.GcpSpeech != nil {
		_ = c.GcpSpeech.Close()
	}
}
