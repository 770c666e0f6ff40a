package content

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/podforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"gorm.io/datatypes"
)

func TestStageRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewStageRecordRepo(db, testutil.Logger(t))
	episodes := NewEpisodeRepo(db, testutil.Logger(t))

	ep := &types.Episode{Title: "ep", Transcript: "transcript"}
	if _, err := episodes.Create(dbc, []*types.Episode{ep}); err != nil {
		t.Fatalf("seed episode: %v", err)
	}

	pending := func(stageNumber int, subStage, name string) *types.StageRecord {
		return &types.StageRecord{
			StageNumber: stageNumber,
			SubStage:    subStage,
			StageName:   name,
			Status:      types.StageStatusPending,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
		}
	}

	created, err := repo.CreateMany(dbc, ep.ID, []*types.StageRecord{
		pending(0, "", "preprocess"),
		pending(1, "", "summary"),
		pending(9, "twitter", "social"),
		pending(9, "linkedin", "social"),
	})
	if err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("CreateMany: expected 4 rows, got %d", len(created))
	}
	// Rows come back ordered by stage number, then sub stage.
	if created[0].StageNumber != 0 || created[1].StageNumber != 1 ||
		created[2].SubStage != "linkedin" || created[3].SubStage != "twitter" {
		t.Fatalf("CreateMany: unexpected order %+v", created)
	}
	summaryID := created[1].ID

	if err := repo.UpdateByKey(dbc, ep.ID, 1, "", map[string]interface{}{
		"status":        types.StageStatusCompleted,
		"output_data":   datatypes.JSON([]byte(`{"summary":"focus wins"}`)),
		"output_text":   "focus wins, every single time",
		"input_tokens":  120,
		"output_tokens": 40,
		"cost_usd":      0.0031,
	}); err != nil {
		t.Fatalf("UpdateByKey: %v", err)
	}

	// Re-running creation must keep the completed row and its results.
	again, err := repo.CreateMany(dbc, ep.ID, []*types.StageRecord{
		pending(0, "", "preprocess"),
		pending(1, "", "summary"),
		pending(9, "twitter", "social"),
		pending(9, "linkedin", "social"),
	})
	if err != nil {
		t.Fatalf("CreateMany (again): %v", err)
	}
	if len(again) != 4 {
		t.Fatalf("CreateMany (again): expected 4 rows, got %d", len(again))
	}
	if again[1].ID != summaryID {
		t.Fatalf("CreateMany (again): summary row was replaced")
	}
	if again[1].Status != types.StageStatusCompleted {
		t.Fatalf("CreateMany (again): expected summary still completed, got %q", again[1].Status)
	}
	if again[1].OutputText == nil || !strings.Contains(*again[1].OutputText, "focus wins") {
		t.Fatalf("CreateMany (again): summary output_text lost: %v", again[1].OutputText)
	}
	if !strings.Contains(string(again[1].OutputData), "focus wins") {
		t.Fatalf("CreateMany (again): summary output_data lost: %s", again[1].OutputData)
	}

	found, err := repo.Find(dbc, ep.ID, 9, "twitter")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.StageName != "social" {
		t.Fatalf("Find: expected social, got %q", found.StageName)
	}
	if _, err := repo.Find(dbc, ep.ID, 4, ""); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("Find missing: expected not_found, got %v", err)
	}

	if err := repo.UpdateByKey(dbc, ep.ID, 42, "", map[string]interface{}{
		"status": types.StageStatusProcessing,
	}); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("UpdateByKey missing: expected not_found, got %v", err)
	}

	// Phase discard: only the targeted rows return to pending.
	if err := repo.UpdateByKey(dbc, ep.ID, 9, "twitter", map[string]interface{}{
		"status":       types.StageStatusCompleted,
		"output_data":  datatypes.JSON([]byte(`{"posts":[]}`)),
		"cost_usd":     0.002,
		"input_tokens": 80,
	}); err != nil {
		t.Fatalf("complete twitter: %v", err)
	}
	if err := repo.ResetByIDs(dbc, []uuid.UUID{found.ID}); err != nil {
		t.Fatalf("ResetByIDs: %v", err)
	}
	twitter, err := repo.Find(dbc, ep.ID, 9, "twitter")
	if err != nil {
		t.Fatalf("Find twitter after reset: %v", err)
	}
	if twitter.Status != types.StageStatusPending || twitter.OutputData != nil ||
		twitter.InputTokens != 0 || twitter.CostUSD != 0 {
		t.Fatalf("ResetByIDs: row not cleared: %+v", twitter)
	}
	if summary, err := repo.Find(dbc, ep.ID, 1, ""); err != nil || summary.Status != types.StageStatusCompleted {
		t.Fatalf("ResetByIDs: untouched row changed: err=%v status=%v", err, summary.Status)
	}

	// Full reset returns every row to pending.
	if err := repo.ResetAll(dbc, ep.ID); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	rows, err := repo.ListByEpisode(dbc, ep.ID)
	if err != nil {
		t.Fatalf("ListByEpisode: %v", err)
	}
	for _, row := range rows {
		if row.Status != types.StageStatusPending {
			t.Fatalf("ResetAll: stage %d/%q still %q", row.StageNumber, row.SubStage, row.Status)
		}
		if row.OutputData != nil || row.OutputText != nil {
			t.Fatalf("ResetAll: stage %d/%q kept output", row.StageNumber, row.SubStage)
		}
	}

	if err := repo.DeleteByEpisode(dbc, ep.ID); err != nil {
		t.Fatalf("DeleteByEpisode: %v", err)
	}
	rows, err = repo.ListByEpisode(dbc, ep.ID)
	if err != nil {
		t.Fatalf("ListByEpisode after delete: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("DeleteByEpisode: expected 0 rows, got %d", len(rows))
	}
}
