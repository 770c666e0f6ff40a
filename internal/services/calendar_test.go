package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
)

func newCalendarFixture(t *testing.T) (CalendarService, *memCalendarRepo, *memLibraryRepo, *types.LibraryItem) {
	t.Helper()
	entries := newMemCalendarRepo()
	library := newMemLibraryRepo()
	svc := NewCalendarService(testLogger(), entries, library)

	created, err := library.Create(dbctx.Context{Ctx: context.Background()}, []*types.LibraryItem{{
		EpisodeID: uuid.New(),
		Kind:      types.LibraryItemKindSocial,
		Platform:  "twitter",
		Title:     "Post",
	}})
	if err != nil {
		t.Fatalf("seed library item: %v", err)
	}
	return svc, entries, library, created[0]
}

func TestScheduleValidation(t *testing.T) {
	svc, _, _, item := newCalendarFixture(t)
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	if _, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "", ScheduledAt: future}); !types.IsCode(err, types.CodeValidation) {
		t.Fatalf("expected validation error for empty platform, got %v", err)
	}
	if _, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "twitter", ScheduledAt: time.Now().Add(-time.Hour)}); !types.IsCode(err, types.CodeValidation) {
		t.Fatalf("expected validation error for past time, got %v", err)
	}
	if _, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: uuid.New(), Platform: "twitter", ScheduledAt: future}); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
}

func TestScheduleMarksItemScheduled(t *testing.T) {
	svc, _, library, item := newCalendarFixture(t)
	ctx := context.Background()

	entry, err := svc.Schedule(ctx, ScheduleInput{
		LibraryItemID: item.ID,
		Platform:      "twitter",
		ScheduledAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if entry.Status != types.CalendarEntryStatusScheduled {
		t.Fatalf("entry status = %s", entry.Status)
	}

	got, _ := library.GetByID(dbctx.Context{Ctx: ctx}, item.ID)
	if got.Status != types.LibraryItemStatusScheduled {
		t.Fatalf("library item status = %s, want scheduled", got.Status)
	}
}

func TestMarkPublishedFlipsLibraryItem(t *testing.T) {
	svc, _, library, item := newCalendarFixture(t)
	ctx := context.Background()

	entry, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "twitter", ScheduledAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	published, err := svc.MarkPublished(ctx, entry.ID)
	if err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if published.Status != types.CalendarEntryStatusPublished {
		t.Fatalf("entry status = %s", published.Status)
	}
	got, _ := library.GetByID(dbctx.Context{Ctx: ctx}, item.ID)
	if got.Status != types.LibraryItemStatusPublished {
		t.Fatalf("library item status = %s, want published", got.Status)
	}

	// Published entries are terminal.
	if _, err := svc.MarkPublished(ctx, entry.ID); !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict on double publish, got %v", err)
	}
	if _, err := svc.Reschedule(ctx, entry.ID, RescheduleInput{}); !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict rescheduling a published entry, got %v", err)
	}
	if err := svc.Cancel(ctx, entry.ID); !types.IsCode(err, types.CodeConflict) {
		t.Fatalf("expected conflict canceling a published entry, got %v", err)
	}
}

func TestCancelReturnsItemToDraft(t *testing.T) {
	svc, entries, library, item := newCalendarFixture(t)
	ctx := context.Background()

	entry, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "twitter", ScheduledAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := svc.Cancel(ctx, entry.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, _ := entries.GetByID(dbctx.Context{Ctx: ctx}, entry.ID)
	if got.Status != types.CalendarEntryStatusCanceled {
		t.Fatalf("entry status = %s, want canceled", got.Status)
	}
	restored, _ := library.GetByID(dbctx.Context{Ctx: ctx}, item.ID)
	if restored.Status != types.LibraryItemStatusDraft {
		t.Fatalf("library item status = %s, want draft", restored.Status)
	}
}

func TestRescheduleMovesEntry(t *testing.T) {
	svc, _, _, item := newCalendarFixture(t)
	ctx := context.Background()

	entry, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "twitter", ScheduledAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	if _, err := svc.Reschedule(ctx, entry.ID, RescheduleInput{ScheduledAt: &past}); !types.IsCode(err, types.CodeValidation) {
		t.Fatalf("expected validation error for past reschedule, got %v", err)
	}

	later := time.Now().Add(48 * time.Hour)
	platform := "linkedin"
	moved, err := svc.Reschedule(ctx, entry.ID, RescheduleInput{ScheduledAt: &later, Platform: &platform})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.ScheduledAt.Equal(later) || moved.Platform != "linkedin" {
		t.Fatalf("reschedule not applied: %+v", moved)
	}
}

func TestListRangeDefaultsAndValidation(t *testing.T) {
	svc, _, _, item := newCalendarFixture(t)
	ctx := context.Background()

	soon := time.Now().Add(time.Hour)
	if _, err := svc.Schedule(ctx, ScheduleInput{LibraryItemID: item.ID, Platform: "twitter", ScheduledAt: soon}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	listed, err := svc.ListRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListRange with defaults: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("default range returned %d entries, want 1", len(listed))
	}

	from := time.Now().Add(time.Hour)
	to := from.Add(-time.Hour)
	if _, err := svc.ListRange(ctx, from, to); !types.IsCode(err, types.CodeValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
