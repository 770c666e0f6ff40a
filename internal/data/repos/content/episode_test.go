package content

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/podforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
)

func TestEpisodeRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewEpisodeRepo(db, testutil.Logger(t))

	ep := &types.Episode{
		Title:      "Deep Work for Founders",
		Transcript: "welcome back to the show, today we talk about focus...",
	}
	created, err := repo.Create(dbc, []*types.Episode{ep})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected one row with id, got %+v", created)
	}
	if created[0].Status != types.EpisodeStatusDraft {
		t.Fatalf("Create: expected default status draft, got %q", created[0].Status)
	}

	got, err := repo.GetByID(dbc, ep.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != ep.Title {
		t.Fatalf("GetByID: expected title %q got %q", ep.Title, got.Title)
	}

	if _, err := repo.GetByID(dbc, uuid.New()); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("GetByID missing: expected not_found, got %v", err)
	}

	if err := repo.UpdateFields(dbc, ep.ID, map[string]interface{}{
		"status":        types.EpisodeStatusProcessing,
		"current_stage": 3,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err = repo.GetByID(dbc, ep.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Status != types.EpisodeStatusProcessing || got.CurrentStage != 3 {
		t.Fatalf("UpdateFields: expected processing/3, got %q/%d", got.Status, got.CurrentStage)
	}

	// Guarded update loses when the current status is not in the allowlist.
	changed, err := repo.UpdateFieldsIfStatus(dbc, ep.ID,
		[]types.EpisodeStatus{types.EpisodeStatusDraft, types.EpisodeStatusPaused},
		map[string]interface{}{"status": types.EpisodeStatusProcessing})
	if err != nil {
		t.Fatalf("UpdateFieldsIfStatus (disallowed): %v", err)
	}
	if changed {
		t.Fatalf("UpdateFieldsIfStatus: expected no row change while processing")
	}

	changed, err = repo.UpdateFieldsIfStatus(dbc, ep.ID,
		[]types.EpisodeStatus{types.EpisodeStatusProcessing},
		map[string]interface{}{"status": types.EpisodeStatusCompleted, "total_cost_usd": 0.42})
	if err != nil {
		t.Fatalf("UpdateFieldsIfStatus (allowed): %v", err)
	}
	if !changed {
		t.Fatalf("UpdateFieldsIfStatus: expected row change from processing")
	}
	got, err = repo.GetByID(dbc, ep.ID)
	if err != nil {
		t.Fatalf("GetByID after guarded update: %v", err)
	}
	if got.Status != types.EpisodeStatusCompleted || got.TotalCostUSD != 0.42 {
		t.Fatalf("guarded update: expected completed/0.42, got %q/%v", got.Status, got.TotalCostUSD)
	}

	rows, err := repo.List(dbc, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("List: expected 1 row, got %d", len(rows))
	}

	if err := repo.Delete(dbc, ep.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, ep.ID); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("GetByID after delete: expected not_found, got %v", err)
	}
}
