package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

// UpdateLibraryItemInput carries partial updates; nil fields are left alone.
type UpdateLibraryItemInput struct {
	Title  *string                  `json:"title"`
	Body   *string                  `json:"body"`
	Status *types.LibraryItemStatus `json:"status"`
}

/*
LibraryService manages finished content assets. MaterializeFromEpisode
turns a completed run's stage records into editable library items: one
blog post, one social item per platform, and one email campaign.
Re-materializing replaces those items; quote cards are rendered
separately and survive.
*/
type LibraryService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.LibraryItem, error)
	List(ctx context.Context, kind types.LibraryItemKind, limit, offset int) ([]*types.LibraryItem, error)
	ListByEpisode(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateLibraryItemInput) (*types.LibraryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MaterializeFromEpisode(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error)
}

type libraryService struct {
	log      *logger.Logger
	episodes repos.EpisodeRepo
	stages   repos.StageRecordRepo
	library  repos.LibraryItemRepo
}

func NewLibraryService(
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	stages repos.StageRecordRepo,
	library repos.LibraryItemRepo,
) LibraryService {
	return &libraryService{
		log:      baseLog.With("service", "LibraryService"),
		episodes: episodes,
		stages:   stages,
		library:  library,
	}
}

func (s *libraryService) Get(ctx context.Context, id uuid.UUID) (*types.LibraryItem, error) {
	return s.library.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *libraryService) List(ctx context.Context, kind types.LibraryItemKind, limit, offset int) ([]*types.LibraryItem, error) {
	return s.library.List(dbctx.Context{Ctx: ctx}, kind, limit, offset)
}

func (s *libraryService) ListByEpisode(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error) {
	return s.library.ListByEpisode(dbctx.Context{Ctx: ctx}, episodeID)
}

func (s *libraryService) Update(ctx context.Context, id uuid.UUID, input UpdateLibraryItemInput) (*types.LibraryItem, error) {
	const op = "services.LibraryService.Update"
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.library.GetByID(dbc, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, types.NewError(types.CodeValidation, op, "title cannot be empty", nil)
		}
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Body != nil {
		updates["body"] = *input.Body
	}
	if input.Status != nil {
		switch *input.Status {
		case types.LibraryItemStatusDraft, types.LibraryItemStatusScheduled, types.LibraryItemStatusPublished:
		default:
			return nil, types.NewError(types.CodeValidation, op, fmt.Sprintf("unknown status %q", *input.Status), nil)
		}
		updates["status"] = *input.Status
	}
	if len(updates) > 0 {
		if err := s.library.UpdateFields(dbc, id, updates); err != nil {
			return nil, err
		}
	}
	return s.library.GetByID(dbc, id)
}

func (s *libraryService) Delete(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.library.GetByID(dbc, id); err != nil {
		return err
	}
	return s.library.Delete(dbc, id)
}

func (s *libraryService) MaterializeFromEpisode(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error) {
	const op = "services.LibraryService.MaterializeFromEpisode"
	dbc := dbctx.Context{Ctx: ctx}

	ep, err := s.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Status != types.EpisodeStatusCompleted {
		return nil, types.NewError(types.CodeConflict, op,
			fmt.Sprintf("episode is %s; only completed episodes materialize", ep.Status), nil)
	}

	records, err := s.stages.ListByEpisode(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	byKey := map[string]*types.StageRecord{}
	for _, rec := range records {
		if rec.Status == types.StageStatusCompleted {
			byKey[fmt.Sprintf("%d/%s", rec.StageNumber, rec.SubStage)] = rec
		}
	}

	items, err := buildLibraryItems(ep, byKey)
	if err != nil {
		return nil, err
	}

	// Replace the previous materialization; rendered quote cards stay.
	existing, err := s.library.ListByEpisode(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	for _, item := range existing {
		if item.Kind == types.LibraryItemKindQuoteCard {
			continue
		}
		if err := s.library.Delete(dbc, item.ID); err != nil {
			return nil, err
		}
	}

	created, err := s.library.Create(dbc, items)
	if err != nil {
		return nil, err
	}
	s.log.Info("Library materialized", "episode_id", episodeID, "items", len(created))
	return created, nil
}

func buildLibraryItems(ep *types.Episode, byKey map[string]*types.StageRecord) ([]*types.LibraryItem, error) {
	const op = "services.buildLibraryItems"

	refine := byKey[stageKey(pipeline.StageRefine, "")]
	if refine == nil || refine.OutputText == nil || *refine.OutputText == "" {
		return nil, types.NewError(types.CodeValidation, op, "no refined post on record; re-run the pipeline", nil)
	}

	blogTitle := ep.Title
	if titles := byKey[stageKey(pipeline.StageTitles, "")]; titles != nil {
		if rec, ok := stageField(titles, "recommended_title").(string); ok && rec != "" {
			blogTitle = rec
		}
	}
	blog := &types.LibraryItem{
		EpisodeID: ep.ID,
		Kind:      types.LibraryItemKindBlog,
		Title:     blogTitle,
		Body:      *refine.OutputText,
	}
	if seo := byKey[stageKey(pipeline.StageSEO, "")]; seo != nil {
		blog.Data = seo.OutputData
	}
	items := []*types.LibraryItem{blog}

	for _, platform := range pipeline.SocialPlatforms() {
		rec := byKey[stageKey(pipeline.StageSocial, platform)]
		if rec == nil {
			continue
		}
		items = append(items, &types.LibraryItem{
			EpisodeID: ep.ID,
			Kind:      types.LibraryItemKindSocial,
			Platform:  platform,
			Title:     ep.Title,
			Body:      renderSocialBody(rec.OutputData),
			Data:      rec.OutputData,
		})
	}

	if email := byKey[stageKey(pipeline.StageEmail, "")]; email != nil {
		title, body := renderEmail(email.OutputData, ep.Title)
		items = append(items, &types.LibraryItem{
			EpisodeID: ep.ID,
			Kind:      types.LibraryItemKindEmail,
			Title:     title,
			Body:      body,
			Data:      email.OutputData,
		})
	}
	return items, nil
}

func stageKey(stage pipeline.Stage, sub string) string {
	return fmt.Sprintf("%d/%s", int(stage), sub)
}

func stageField(rec *types.StageRecord, field string) any {
	if rec == nil || len(rec.OutputData) == 0 {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(rec.OutputData), &data); err != nil {
		return nil
	}
	return data[field]
}

// renderSocialBody flattens the posts array into ready-to-paste text,
// one post per block with its hashtags on the following line.
func renderSocialBody(raw []byte) string {
	var data struct {
		Posts []struct {
			Text     string   `json:"text"`
			Hashtags []string `json:"hashtags"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}
	blocks := make([]string, 0, len(data.Posts))
	for _, post := range data.Posts {
		block := post.Text
		if len(post.Hashtags) > 0 {
			block += "\n" + strings.Join(post.Hashtags, " ")
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// renderEmail picks the first subject line as the item title and lays the
// campaign out as markdown: preview, sections, call to action.
func renderEmail(raw []byte, fallbackTitle string) (string, string) {
	var data struct {
		SubjectLines []string `json:"subject_lines"`
		PreviewText  string   `json:"preview_text"`
		BodySections []struct {
			Heading string `json:"heading"`
			Body    string `json:"body"`
		} `json:"body_sections"`
		CallToAction string `json:"call_to_action"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fallbackTitle, ""
	}
	title := fallbackTitle
	if len(data.SubjectLines) > 0 && data.SubjectLines[0] != "" {
		title = data.SubjectLines[0]
	}
	var b strings.Builder
	if data.PreviewText != "" {
		b.WriteString(data.PreviewText + "\n\n")
	}
	for _, section := range data.BodySections {
		if section.Heading != "" {
			b.WriteString("## " + section.Heading + "\n\n")
		}
		b.WriteString(section.Body + "\n\n")
	}
	if data.CallToAction != "" {
		b.WriteString(data.CallToAction + "\n")
	}
	return title, strings.TrimRight(b.String(), "\n")
}
