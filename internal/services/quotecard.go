package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"gorm.io/datatypes"

	"github.com/yungbote/podforge-backend/internal/clients/gcp"
	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/envutil"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

/*
QuoteCardService renders shareable PNG cards from the pull quotes a run
extracted, uploads them, and files each one as a quote_card library
item. Rendering is deterministic apart from the versioned object key;
regenerating replaces the previous set.
*/
type QuoteCardService interface {
	GenerateCards(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error)
}

type quoteCardService struct {
	log      *logger.Logger
	episodes repos.EpisodeRepo
	stages   repos.StageRecordRepo
	library  repos.LibraryItemRepo
	buckets  gcp.BucketService
	fontPath string
	maxCards int
}

func NewQuoteCardService(
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	stages repos.StageRecordRepo,
	library repos.LibraryItemRepo,
	buckets gcp.BucketService,
) QuoteCardService {
	return &quoteCardService{
		log:      baseLog.With("service", "QuoteCardService"),
		episodes: episodes,
		stages:   stages,
		library:  library,
		buckets:  buckets,
		fontPath: envutil.String("QUOTE_CARD_FONT", ""),
		maxCards: envutil.Int("QUOTE_CARD_LIMIT", 4),
	}
}

type pulledQuote struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
	Theme   string `json:"theme"`
}

func (s *quoteCardService) GenerateCards(ctx context.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error) {
	const op = "services.QuoteCardService.GenerateCards"
	if s.buckets == nil {
		return nil, types.NewError(types.CodeValidation, op, "card storage is not configured", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ep, err := s.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}

	rec, err := s.stages.Find(dbc, episodeID, int(pipeline.StageQuotes), "")
	if err != nil {
		return nil, err
	}
	if rec.Status != types.StageStatusCompleted {
		return nil, types.NewError(types.CodeConflict, op, "quote extraction has not completed for this episode", nil)
	}
	var data struct {
		Quotes []pulledQuote `json:"quotes"`
	}
	if err := json.Unmarshal([]byte(rec.OutputData), &data); err != nil {
		return nil, types.WrapError(types.CodeInternal, op, err)
	}
	if len(data.Quotes) == 0 {
		return nil, types.NewError(types.CodeValidation, op, "no quotes on record", nil)
	}

	quotes := data.Quotes
	if len(quotes) > s.maxCards {
		quotes = quotes[:s.maxCards]
	}

	// Replace the previous set before uploading the new one.
	existing, err := s.library.ListByEpisode(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	for _, item := range existing {
		if item.Kind != types.LibraryItemKindQuoteCard {
			continue
		}
		if err := s.library.Delete(dbc, item.ID); err != nil {
			return nil, err
		}
	}

	items := make([]*types.LibraryItem, 0, len(quotes))
	for i, quote := range quotes {
		png, err := renderQuoteCard(quote, ep.Title, cardPalette[i%len(cardPalette)], s.fontPath)
		if err != nil {
			return nil, types.WrapError(types.CodeInternal, op, err)
		}
		key := fmt.Sprintf("episodes/%s/cards/%d_%d.png", episodeID, i, time.Now().UnixNano())
		if err := s.buckets.UploadFile(ctx, gcp.BucketCategoryCard, key, bytes.NewReader(png)); err != nil {
			return nil, types.WrapError(types.CodePersistence, op, err)
		}
		raw, _ := json.Marshal(quote)
		title := quote.Theme
		if title == "" {
			title = fmt.Sprintf("Quote %d", i+1)
		}
		items = append(items, &types.LibraryItem{
			EpisodeID: episodeID,
			Kind:      types.LibraryItemKindQuoteCard,
			Title:     title,
			Body:      quote.Text,
			Data:      datatypes.JSON(raw),
			AssetURL:  s.buckets.GetPublicURL(gcp.BucketCategoryCard, key),
		})
	}

	created, err := s.library.Create(dbc, items)
	if err != nil {
		return nil, err
	}
	s.log.Info("Quote cards rendered", "episode_id", episodeID, "cards", len(created))
	return created, nil
}

type cardColors struct {
	Background string
	Text       string
	Accent     string
}

var cardPalette = []cardColors{
	{Background: "#1E2A38", Text: "#F5F1E8", Accent: "#E8A13D"},
	{Background: "#27303A", Text: "#EDEDED", Accent: "#5AB8A0"},
	{Background: "#2E2438", Text: "#F2EEF7", Accent: "#C97BA3"},
	{Background: "#20332B", Text: "#EFF4EC", Accent: "#D8C05A"},
}

const cardSize = 1080

// renderQuoteCard draws one square card: accent bar, oversized opening
// quotation mark, the wrapped quote, attribution, and the episode title
// as a footer.
func renderQuoteCard(quote pulledQuote, episodeTitle string, colors cardColors, fontPath string) ([]byte, error) {
	quoteFace, err := loadCardFontFace(fontPath, 58)
	if err != nil {
		return nil, err
	}
	metaFace, err := loadCardFontFace(fontPath, 34)
	if err != nil {
		return nil, err
	}
	markFace, err := loadCardFontFace(fontPath, 200)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(cardSize, cardSize)
	dc.SetHexColor(colors.Background)
	dc.Clear()

	dc.SetHexColor(colors.Accent)
	dc.DrawRectangle(0, 0, 18, cardSize)
	dc.Fill()

	dc.SetFontFace(markFace)
	dc.SetHexColor(colors.Accent)
	dc.DrawString("“", 70, 230)

	dc.SetFontFace(quoteFace)
	dc.SetHexColor(colors.Text)
	dc.DrawStringWrapped(quote.Text, 90, 300, 0, 0, cardSize-180, 1.5, gg.AlignLeft)

	dc.SetFontFace(metaFace)
	dc.SetHexColor(colors.Accent)
	speaker := quote.Speaker
	if speaker == "" {
		speaker = "Unknown speaker"
	}
	dc.DrawString("— "+speaker, 90, cardSize-160)

	dc.SetHexColor(colors.Text)
	dc.DrawString(truncateTitle(episodeTitle, 60), 90, cardSize-90)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card png: %w", err)
	}
	return buf.Bytes(), nil
}

// loadCardFontFace parses the configured TTF at the given point size.
// With no font configured it falls back to the fixed basic face, which
// keeps rendering working in environments without font assets.
func loadCardFontFace(fontPath string, points float64) (font.Face, error) {
	if fontPath == "" {
		return basicfont.Face7x13, nil
	}
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read card font: %w", err)
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse card font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: points}), nil
}

func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-1]) + "…"
}
