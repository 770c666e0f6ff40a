package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/podforge-backend/internal/clients/gcp"
	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

/*
TranscriptionService fills in an episode's transcript from uploaded
audio. Upload stores the file and records its object key; Transcribe
runs long-running recognition against the stored object and writes the
diarized text onto the episode. Both only touch episodes that are not
mid-run.
*/
type TranscriptionService interface {
	UploadAudio(ctx context.Context, episodeID uuid.UUID, filename string, audio io.Reader) (*types.Episode, error)
	Transcribe(ctx context.Context, episodeID uuid.UUID) (*types.Episode, error)
}

type transcriptionService struct {
	log      *logger.Logger
	episodes repos.EpisodeRepo
	buckets  gcp.BucketService
	speech   gcp.Speech
}

func NewTranscriptionService(
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	buckets gcp.BucketService,
	speech gcp.Speech,
) TranscriptionService {
	return &transcriptionService{
		log:      baseLog.With("service", "TranscriptionService"),
		episodes: episodes,
		buckets:  buckets,
		speech:   speech,
	}
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true,
	".ogg": true, ".opus": true, ".m4a": true,
}

func (s *transcriptionService) UploadAudio(ctx context.Context, episodeID uuid.UUID, filename string, audio io.Reader) (*types.Episode, error) {
	const op = "services.TranscriptionService.UploadAudio"
	if s.buckets == nil {
		return nil, types.NewError(types.CodeValidation, op, "audio storage is not configured", nil)
	}
	ext := strings.ToLower(path.Ext(filename))
	if !audioExtensions[ext] {
		return nil, types.NewError(types.CodeValidation, op, fmt.Sprintf("unsupported audio format %q", ext), nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ep, err := s.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Status == types.EpisodeStatusProcessing {
		return nil, types.NewError(types.CodeConflict, op, "episode is processing", nil)
	}

	// Versioned key; CDN and browser caches never see a stale object.
	key := fmt.Sprintf("episodes/%s/audio/%d%s", episodeID, time.Now().UnixNano(), ext)
	if err := s.buckets.UploadFile(ctx, gcp.BucketCategoryAudio, key, audio); err != nil {
		return nil, types.WrapError(types.CodePersistence, op, err)
	}
	if err := s.episodes.UpdateFields(dbc, episodeID, map[string]interface{}{
		"audio_object_key": key,
	}); err != nil {
		return nil, err
	}
	if ep.AudioObjectKey != "" && ep.AudioObjectKey != key {
		if err := s.buckets.DeleteFile(ctx, gcp.BucketCategoryAudio, ep.AudioObjectKey); err != nil {
			s.log.Warn("Stale audio delete failed", "key", ep.AudioObjectKey, "error", err)
		}
	}
	s.log.Info("Audio uploaded", "episode_id", episodeID, "key", key)
	return s.episodes.GetByID(dbc, episodeID)
}

func (s *transcriptionService) Transcribe(ctx context.Context, episodeID uuid.UUID) (*types.Episode, error) {
	const op = "services.TranscriptionService.Transcribe"
	if s.speech == nil || s.buckets == nil {
		return nil, types.NewError(types.CodeValidation, op, "transcription is not configured", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ep, err := s.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Status == types.EpisodeStatusProcessing {
		return nil, types.NewError(types.CodeConflict, op, "episode is processing", nil)
	}
	if ep.AudioObjectKey == "" {
		return nil, types.NewError(types.CodeValidation, op, "episode has no uploaded audio", nil)
	}

	uri, err := s.buckets.GCSUri(gcp.BucketCategoryAudio, ep.AudioObjectKey)
	if err != nil {
		return nil, types.WrapError(types.CodeInternal, op, err)
	}

	started := time.Now()
	result, err := s.speech.TranscribeAudioGCS(ctx, uri, gcp.PodcastSpeechConfig())
	if err != nil {
		return nil, types.RetryableError(types.CodeProvider, op, "speech recognition failed", err)
	}
	transcript := result.SpeakerText()
	if strings.TrimSpace(transcript) == "" {
		return nil, types.NewError(types.CodeProvider, op, "recognition returned no transcript", nil)
	}
	s.log.Info("Audio transcribed",
		"episode_id", episodeID,
		"segments", len(result.Segments),
		"duration_ms", time.Since(started).Milliseconds())

	if err := s.episodes.UpdateFields(dbc, episodeID, map[string]interface{}{
		"transcript": transcript,
	}); err != nil {
		return nil, err
	}
	return s.episodes.GetByID(dbc, episodeID)
}
