package services

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"gorm.io/datatypes"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pipeline"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
)

func TestRenderQuoteCardProducesPNG(t *testing.T) {
	raw, err := renderQuoteCard(pulledQuote{
		Text:    "Ship small things every week and let the compounding do the marketing for you.",
		Speaker: "Dana",
		Theme:   "shipping",
	}, "Shipping Small", cardPalette[0], "")
	if err != nil {
		t.Fatalf("renderQuoteCard: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != cardSize || bounds.Dy() != cardSize {
		t.Fatalf("card is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), cardSize, cardSize)
	}
}

func TestRenderQuoteCardHandlesMissingSpeaker(t *testing.T) {
	if _, err := renderQuoteCard(pulledQuote{Text: "Quote"}, "", cardPalette[1], ""); err != nil {
		t.Fatalf("renderQuoteCard without speaker: %v", err)
	}
}

func TestGenerateCards(t *testing.T) {
	episodes := newMemEpisodeRepo()
	stages := newMemStageRepo()
	library := newMemLibraryRepo()
	bucket := newMemBucket()
	svc := NewQuoteCardService(testLogger(), episodes, stages, library, bucket)
	dbc := dbctx.Context{Ctx: context.Background()}

	created, _ := episodes.Create(dbc, []*types.Episode{{Title: "Shipping Small", Status: types.EpisodeStatusCompleted}})
	ep := created[0]
	if _, err := stages.CreateMany(dbc, ep.ID, []*types.StageRecord{{
		StageNumber: int(pipeline.StageQuotes),
		Status:      types.StageStatusCompleted,
		OutputData:  datatypes.JSON(`{"quotes":[{"text":"Ship it","speaker":"Dana","timestamp":"00:03:12","theme":"shipping"},{"text":"Charge early","speaker":"Avery","timestamp":"","theme":"pricing"}]}`),
	}}); err != nil {
		t.Fatalf("seed quotes: %v", err)
	}

	items, err := svc.GenerateCards(context.Background(), ep.ID)
	if err != nil {
		t.Fatalf("GenerateCards: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(items))
	}
	for _, item := range items {
		if item.Kind != types.LibraryItemKindQuoteCard {
			t.Fatalf("item kind = %s", item.Kind)
		}
		if item.AssetURL == "" || !strings.Contains(item.AssetURL, "episodes/"+ep.ID.String()+"/cards/") {
			t.Fatalf("asset url = %q", item.AssetURL)
		}
	}
	if items[0].Title != "shipping" || items[1].Title != "pricing" {
		t.Fatalf("card titles = %q, %q; want themes", items[0].Title, items[1].Title)
	}

	// Uploaded objects decode as PNGs.
	keys, err := bucket.ListKeys(context.Background(), "card", "episodes/")
	if err != nil || len(keys) != 2 {
		t.Fatalf("uploaded keys = %v (%v)", keys, err)
	}
	rc, err := bucket.DownloadFile(context.Background(), "card", keys[0])
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	defer rc.Close()
	if _, err := png.Decode(rc); err != nil {
		t.Fatalf("uploaded object is not a PNG: %v", err)
	}
}

func TestGenerateCardsReplacesPreviousSet(t *testing.T) {
	episodes := newMemEpisodeRepo()
	stages := newMemStageRepo()
	library := newMemLibraryRepo()
	svc := NewQuoteCardService(testLogger(), episodes, stages, library, newMemBucket())
	dbc := dbctx.Context{Ctx: context.Background()}

	created, _ := episodes.Create(dbc, []*types.Episode{{Title: "Ep", Status: types.EpisodeStatusCompleted}})
	ep := created[0]
	if _, err := stages.CreateMany(dbc, ep.ID, []*types.StageRecord{{
		StageNumber: int(pipeline.StageQuotes),
		Status:      types.StageStatusCompleted,
		OutputData:  datatypes.JSON(`{"quotes":[{"text":"One","speaker":"A","timestamp":"","theme":"t"}]}`),
	}}); err != nil {
		t.Fatalf("seed quotes: %v", err)
	}

	if _, err := svc.GenerateCards(context.Background(), ep.ID); err != nil {
		t.Fatalf("first GenerateCards: %v", err)
	}
	if _, err := svc.GenerateCards(context.Background(), ep.ID); err != nil {
		t.Fatalf("second GenerateCards: %v", err)
	}

	all, _ := library.ListByEpisode(dbc, ep.ID)
	if len(all) != 1 {
		t.Fatalf("expected 1 card after regeneration, got %d", len(all))
	}
}

func TestGenerateCardsRequiresCompletedQuoteStage(t *testing.T) {
	episodes := newMemEpisodeRepo()
	stages := newMemStageRepo()
	svc := NewQuoteCardService(testLogger(), episodes, stages, newMemLibraryRepo(), newMemBucket())
	dbc := dbctx.Context{Ctx: context.Background()}

	created, _ := episodes.Create(dbc, []*types.Episode{{Title: "Ep"}})
	ep := created[0]

	if _, err := svc.GenerateCards(context.Background(), ep.ID); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("expected not found without a quote record, got %v", err)
	}

	if _, err := stages.CreateMany(dbc, ep.ID, []*types.StageRecord{{
		StageNumber: int(pipeline.StageQuotes),
		Status:      types.StageStatusPending,
	}}); err != nil {
		t.Fatalf("seed pending record: %v", err)
	}
	if _, err := svc.GenerateCards(context.Background(), ep.ID); !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict for pending quote stage, got %v", err)
	}
}
