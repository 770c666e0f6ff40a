package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/podforge-backend/internal/clients/gcp"
	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type CreateEpisodeInput struct {
	Title          string         `json:"title"`
	Transcript     string         `json:"transcript"`
	UserContext    map[string]any `json:"user_context"`
	BrandProfileID *uuid.UUID     `json:"brand_profile_id"`
}

// UpdateEpisodeInput carries partial updates; nil fields are left alone.
type UpdateEpisodeInput struct {
	Title          *string         `json:"title"`
	Transcript     *string         `json:"transcript"`
	UserContext    *map[string]any `json:"user_context"`
	BrandProfileID *uuid.UUID      `json:"brand_profile_id"`
}

/*
EpisodeService owns episode CRUD and is the front door to the pipeline:
runs, pauses, single-stage regeneration, and status all go through here.
The processor keeps its own invariants; this layer adds the editing
rules (no mutation of a processing episode) and cleanup on delete.
*/
type EpisodeService interface {
	Create(ctx context.Context, input CreateEpisodeInput) (*types.Episode, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Episode, error)
	List(ctx context.Context, limit, offset int) ([]*types.Episode, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateEpisodeInput) (*types.Episode, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Process(ctx context.Context, id uuid.UUID, fromStage int) (*types.Episode, error)
	Pause(ctx context.Context, id uuid.UUID) (*types.Episode, error)
	Regenerate(ctx context.Context, id uuid.UUID, stage int, subStage string) (*types.Episode, error)
	Status(ctx context.Context, id uuid.UUID) (*pipeline.ProcessingStatus, error)
	StageRecords(ctx context.Context, id uuid.UUID) ([]*types.StageRecord, error)
}

type episodeService struct {
	log       *logger.Logger
	episodes  repos.EpisodeRepo
	stages    repos.StageRecordRepo
	library   repos.LibraryItemRepo
	brands    repos.BrandProfileRepo
	processor *pipeline.Processor
	buckets   gcp.BucketService
}

func NewEpisodeService(
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	stages repos.StageRecordRepo,
	library repos.LibraryItemRepo,
	brands repos.BrandProfileRepo,
	processor *pipeline.Processor,
	buckets gcp.BucketService,
) EpisodeService {
	return &episodeService{
		log:       baseLog.With("service", "EpisodeService"),
		episodes:  episodes,
		stages:    stages,
		library:   library,
		brands:    brands,
		processor: processor,
		buckets:   buckets,
	}
}

func (s *episodeService) Create(ctx context.Context, input CreateEpisodeInput) (*types.Episode, error) {
	const op = "services.EpisodeService.Create"
	if strings.TrimSpace(input.Title) == "" {
		return nil, types.NewError(types.CodeValidation, op, "title is required", nil)
	}
	if input.BrandProfileID != nil {
		if _, err := s.brands.GetByID(dbctx.Context{Ctx: ctx}, *input.BrandProfileID); err != nil {
			return nil, err
		}
	}
	ep := &types.Episode{
		Title:          strings.TrimSpace(input.Title),
		Transcript:     input.Transcript,
		BrandProfileID: input.BrandProfileID,
		Status:         types.EpisodeStatusDraft,
	}
	if len(input.UserContext) > 0 {
		ep.UserContext = datatypes.JSONMap(input.UserContext)
	}
	created, err := s.episodes.Create(dbctx.Context{Ctx: ctx}, []*types.Episode{ep})
	if err != nil {
		return nil, err
	}
	s.log.Info("Episode created", "episode_id", created[0].ID)
	return created[0], nil
}

func (s *episodeService) Get(ctx context.Context, id uuid.UUID) (*types.Episode, error) {
	return s.episodes.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *episodeService) List(ctx context.Context, limit, offset int) ([]*types.Episode, error) {
	return s.episodes.List(dbctx.Context{Ctx: ctx}, limit, offset)
}

func (s *episodeService) Update(ctx context.Context, id uuid.UUID, input UpdateEpisodeInput) (*types.Episode, error) {
	const op = "services.EpisodeService.Update"
	dbc := dbctx.Context{Ctx: ctx}
	ep, err := s.episodes.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if ep.Status == types.EpisodeStatusProcessing {
		return nil, types.NewError(types.CodeConflict, op, "episode is processing; pause or wait before editing", nil)
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, types.NewError(types.CodeValidation, op, "title cannot be empty", nil)
		}
		updates["title"] = title
	}
	if input.Transcript != nil {
		updates["transcript"] = *input.Transcript
	}
	if input.UserContext != nil {
		updates["user_context"] = datatypes.JSONMap(*input.UserContext)
	}
	if input.BrandProfileID != nil {
		if _, err := s.brands.GetByID(dbc, *input.BrandProfileID); err != nil {
			return nil, err
		}
		updates["brand_profile_id"] = *input.BrandProfileID
	}
	if len(updates) == 0 {
		return ep, nil
	}
	if err := s.episodes.UpdateFields(dbc, id, updates); err != nil {
		return nil, err
	}
	return s.episodes.GetByID(dbc, id)
}

// Delete removes the episode with everything hanging off it: stage
// records, library items, and stored objects. Object deletes are best
// effort; an unreachable bucket never blocks the database cleanup.
func (s *episodeService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "services.EpisodeService.Delete"
	dbc := dbctx.Context{Ctx: ctx}
	ep, err := s.episodes.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if ep.Status == types.EpisodeStatusProcessing {
		return types.NewError(types.CodeConflict, op, "episode is processing; pause before deleting", nil)
	}
	if err := s.stages.DeleteByEpisode(dbc, id); err != nil {
		return err
	}
	if err := s.library.DeleteByEpisode(dbc, id); err != nil {
		return err
	}
	if err := s.episodes.Delete(dbc, id); err != nil {
		return err
	}
	if s.buckets != nil {
		prefix := "episodes/" + id.String() + "/"
		if err := s.buckets.DeletePrefix(ctx, gcp.BucketCategoryAudio, prefix); err != nil {
			s.log.Warn("Audio cleanup failed", "episode_id", id, "error", err)
		}
		if err := s.buckets.DeletePrefix(ctx, gcp.BucketCategoryCard, prefix); err != nil {
			s.log.Warn("Card cleanup failed", "episode_id", id, "error", err)
		}
	}
	s.log.Info("Episode deleted", "episode_id", id)
	return nil
}

// Process starts a run from fromStage and returns immediately with the
// claimed episode. Progress streams over SSE; completion lands on the
// episode row.
func (s *episodeService) Process(ctx context.Context, id uuid.UUID, fromStage int) (*types.Episode, error) {
	if _, err := s.processor.ProcessEpisode(ctx, id, pipeline.ProcessOptions{
		StartFromStage: pipeline.Stage(fromStage),
	}); err != nil {
		return nil, err
	}
	return s.episodes.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *episodeService) Pause(ctx context.Context, id uuid.UUID) (*types.Episode, error) {
	if err := s.processor.RequestPause(ctx, id); err != nil {
		return nil, err
	}
	return s.episodes.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *episodeService) Regenerate(ctx context.Context, id uuid.UUID, stage int, subStage string) (*types.Episode, error) {
	if err := s.processor.RegenerateStage(ctx, id, pipeline.Stage(stage), subStage); err != nil {
		return nil, err
	}
	return s.episodes.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *episodeService) Status(ctx context.Context, id uuid.UUID) (*pipeline.ProcessingStatus, error) {
	return s.processor.GetProcessingStatus(ctx, id)
}

func (s *episodeService) StageRecords(ctx context.Context, id uuid.UUID) ([]*types.StageRecord, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.episodes.GetByID(dbc, id); err != nil {
		return nil, err
	}
	return s.stages.ListByEpisode(dbc, id)
}
