package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
)

func SeedEpisode(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Episode {
	tb.Helper()
	ep := &types.Episode{
		ID:         uuid.New(),
		Title:      title,
		Transcript: "host: welcome back to the show.",
		Status:     types.EpisodeStatusDraft,
	}
	if err := tx.WithContext(ctx).Create(ep).Error; err != nil {
		tb.Fatalf("seed episode: %v", err)
	}
	return ep
}

func SeedBrandProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.BrandProfile {
	tb.Helper()
	bp := &types.BrandProfile{
		ID:         uuid.New(),
		Name:       name,
		Tone:       "direct",
		Audience:   "indie founders",
		ValueProps: datatypes.JSON([]byte(`["ship faster"]`)),
		Platforms:  datatypes.JSON([]byte(`["twitter","linkedin"]`)),
	}
	if err := tx.WithContext(ctx).Create(bp).Error; err != nil {
		tb.Fatalf("seed brand profile: %v", err)
	}
	return bp
}

func SeedLibraryItem(tb testing.TB, ctx context.Context, tx *gorm.DB, episodeID uuid.UUID, kind types.LibraryItemKind, platform string) *types.LibraryItem {
	tb.Helper()
	li := &types.LibraryItem{
		ID:        uuid.New(),
		EpisodeID: episodeID,
		Kind:      kind,
		Platform:  platform,
		Title:     "item",
		Body:      "body",
		Status:    types.LibraryItemStatusDraft,
	}
	if err := tx.WithContext(ctx).Create(li).Error; err != nil {
		tb.Fatalf("seed library item: %v", err)
	}
	return li
}

func SeedCalendarEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, itemID uuid.UUID, platform string, at time.Time) *types.CalendarEntry {
	tb.Helper()
	ce := &types.CalendarEntry{
		ID:            uuid.New(),
		LibraryItemID: itemID,
		Platform:      platform,
		ScheduledAt:   at,
		Status:        types.CalendarEntryStatusScheduled,
	}
	if err := tx.WithContext(ctx).Create(ce).Error; err != nil {
		tb.Fatalf("seed calendar entry: %v", err)
	}
	return ce
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
