package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/podforge-backend/internal/clients/gcp"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

func testLogger() *logger.Logger {
	log, err := logger.New("dev")
	if err != nil {
		panic(err)
	}
	return log
}

// ---- episodes ----

type memEpisodeRepo struct {
	mu       sync.Mutex
	episodes map[uuid.UUID]*types.Episode
}

func newMemEpisodeRepo() *memEpisodeRepo {
	return &memEpisodeRepo{episodes: map[uuid.UUID]*types.Episode{}}
}

func (r *memEpisodeRepo) Create(dbc dbctx.Context, episodes []*types.Episode) ([]*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ep := range episodes {
		if ep.ID == uuid.Nil {
			ep.ID = uuid.New()
		}
		if ep.Status == "" {
			ep.Status = types.EpisodeStatusDraft
		}
		r.episodes[ep.ID] = ep
	}
	return episodes, nil
}

func (r *memEpisodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "memEpisodeRepo.GetByID", "episode not found", nil)
	}
	clone := *ep
	return &clone, nil
}

func (r *memEpisodeRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Episode, 0, len(r.episodes))
	for _, ep := range r.episodes {
		clone := *ep
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memEpisodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "memEpisodeRepo.UpdateFields", "episode not found", nil)
	}
	applyEpisodeUpdate(ep, updates)
	return nil
}

func (r *memEpisodeRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.EpisodeStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return false, types.NewError(types.CodeNotFound, "memEpisodeRepo.UpdateFieldsIfStatus", "episode not found", nil)
	}
	match := false
	for _, status := range allowed {
		if ep.Status == status {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	applyEpisodeUpdate(ep, updates)
	return true, nil
}

func (r *memEpisodeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.episodes[id]; !ok {
		return types.NewError(types.CodeNotFound, "memEpisodeRepo.Delete", "episode not found", nil)
	}
	delete(r.episodes, id)
	return nil
}

func applyEpisodeUpdate(ep *types.Episode, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "title":
			ep.Title = value.(string)
		case "transcript":
			ep.Transcript = value.(string)
		case "audio_object_key":
			ep.AudioObjectKey = value.(string)
		case "status":
			ep.Status = value.(types.EpisodeStatus)
		case "user_context":
			ep.UserContext = toJSONMap(value)
		case "total_cost_usd":
			ep.TotalCostUSD = value.(float64)
		case "brand_profile_id":
			id := value.(uuid.UUID)
			ep.BrandProfileID = &id
		case "error_message":
			ep.ErrorMessage = value.(string)
		}
	}
}

func toJSONMap(value interface{}) datatypes.JSONMap {
	switch m := value.(type) {
	case datatypes.JSONMap:
		return m
	case map[string]interface{}:
		return datatypes.JSONMap(m)
	default:
		return nil
	}
}

// ---- stage records ----

type memStageRepo struct {
	mu      sync.Mutex
	records []*types.StageRecord
}

func newMemStageRepo() *memStageRepo { return &memStageRepo{} }

func (r *memStageRepo) CreateMany(dbc dbctx.Context, episodeID uuid.UUID, records []*types.StageRecord) ([]*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.EpisodeID = episodeID
		r.records = append(r.records, rec)
	}
	return r.listLocked(episodeID), nil
}

func (r *memStageRepo) Find(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string) (*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.EpisodeID == episodeID && rec.StageNumber == stageNumber && rec.SubStage == subStage {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, types.NewError(types.CodeNotFound, "memStageRepo.Find", "stage record not found", nil)
}

func (r *memStageRepo) ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(episodeID), nil
}

func (r *memStageRepo) listLocked(episodeID uuid.UUID) []*types.StageRecord {
	out := []*types.StageRecord{}
	for _, rec := range r.records {
		if rec.EpisodeID == episodeID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out
}

func (r *memStageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *memStageRepo) UpdateByKey(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string, updates map[string]interface{}) error {
	return nil
}

func (r *memStageRepo) ResetAll(dbc dbctx.Context, episodeID uuid.UUID) error { return nil }

func (r *memStageRepo) ResetByIDs(dbc dbctx.Context, ids []uuid.UUID) error { return nil }

func (r *memStageRepo) DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.EpisodeID != episodeID {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

// ---- library items ----

type memLibraryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*types.LibraryItem
}

func newMemLibraryRepo() *memLibraryRepo {
	return &memLibraryRepo{items: map[uuid.UUID]*types.LibraryItem{}}
}

func (r *memLibraryRepo) Create(dbc dbctx.Context, items []*types.LibraryItem) ([]*types.LibraryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.Status == "" {
			item.Status = types.LibraryItemStatusDraft
		}
		r.items[item.ID] = item
	}
	return items, nil
}

func (r *memLibraryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LibraryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "memLibraryRepo.GetByID", "library item not found", nil)
	}
	clone := *item
	return &clone, nil
}

func (r *memLibraryRepo) ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.LibraryItem{}
	for _, item := range r.items {
		if item.EpisodeID == episodeID {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memLibraryRepo) List(dbc dbctx.Context, kind types.LibraryItemKind, limit, offset int) ([]*types.LibraryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.LibraryItem{}
	for _, item := range r.items {
		if kind == "" || item.Kind == kind {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memLibraryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "memLibraryRepo.UpdateFields", "library item not found", nil)
	}
	for key, value := range updates {
		switch key {
		case "title":
			item.Title = value.(string)
		case "body":
			item.Body = value.(string)
		case "status":
			item.Status = value.(types.LibraryItemStatus)
		}
	}
	return nil
}

func (r *memLibraryRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return types.NewError(types.CodeNotFound, "memLibraryRepo.Delete", "library item not found", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *memLibraryRepo) DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.EpisodeID == episodeID {
			delete(r.items, id)
		}
	}
	return nil
}

// ---- calendar entries ----

type memCalendarRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*types.CalendarEntry
}

func newMemCalendarRepo() *memCalendarRepo {
	return &memCalendarRepo{entries: map[uuid.UUID]*types.CalendarEntry{}}
}

func (r *memCalendarRepo) Create(dbc dbctx.Context, entries []*types.CalendarEntry) ([]*types.CalendarEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.Status == "" {
			entry.Status = types.CalendarEntryStatusScheduled
		}
		r.entries[entry.ID] = entry
	}
	return entries, nil
}

func (r *memCalendarRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CalendarEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "memCalendarRepo.GetByID", "calendar entry not found", nil)
	}
	clone := *entry
	return &clone, nil
}

func (r *memCalendarRepo) ListRange(dbc dbctx.Context, from, to time.Time) ([]*types.CalendarEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.CalendarEntry{}
	for _, entry := range r.entries {
		if !entry.ScheduledAt.Before(from) && !entry.ScheduledAt.After(to) {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCalendarRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "memCalendarRepo.UpdateFields", "calendar entry not found", nil)
	}
	for key, value := range updates {
		switch key {
		case "scheduled_at":
			entry.ScheduledAt = value.(time.Time)
		case "platform":
			entry.Platform = value.(string)
		case "status":
			entry.Status = value.(types.CalendarEntryStatus)
		}
	}
	return nil
}

func (r *memCalendarRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// ---- brand profiles ----

type memBrandRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.BrandProfile
}

func newMemBrandRepo() *memBrandRepo {
	return &memBrandRepo{profiles: map[uuid.UUID]*types.BrandProfile{}}
}

func (r *memBrandRepo) Create(dbc dbctx.Context, profiles []*types.BrandProfile) ([]*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, profile := range profiles {
		if profile.ID == uuid.Nil {
			profile.ID = uuid.New()
		}
		r.profiles[profile.ID] = profile
	}
	return profiles, nil
}

func (r *memBrandRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "memBrandRepo.GetByID", "brand profile not found", nil)
	}
	clone := *profile
	return &clone, nil
}

func (r *memBrandRepo) List(dbc dbctx.Context) ([]*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.BrandProfile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		clone := *profile
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memBrandRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "memBrandRepo.UpdateFields", "brand profile not found", nil)
	}
	for key, value := range updates {
		switch key {
		case "name":
			profile.Name = value.(string)
		case "tone":
			profile.Tone = value.(string)
		case "audience":
			profile.Audience = value.(string)
		case "guidelines":
			profile.Guidelines = value.(string)
		}
	}
	return nil
}

func (r *memBrandRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	return nil
}

// ---- bucket ----

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string][]byte{}} }

func bucketKey(category gcp.BucketCategory, key string) string {
	return string(category) + "/" + key
}

func (b *memBucket) UploadFile(ctx context.Context, category gcp.BucketCategory, key string, file io.Reader) error {
	raw, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[bucketKey(category, key)] = raw
	return nil
}

func (b *memBucket) DownloadFile(ctx context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[bucketKey(category, key)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memBucket) DeleteFile(ctx context.Context, category gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, bucketKey(category, key))
	return nil
}

func (b *memBucket) ListKeys(ctx context.Context, category gcp.BucketCategory, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []string{}
	full := bucketKey(category, prefix)
	for key := range b.objects {
		if len(key) >= len(full) && key[:len(full)] == full {
			out = append(out, key[len(string(category))+1:])
		}
	}
	return out, nil
}

func (b *memBucket) DeletePrefix(ctx context.Context, category gcp.BucketCategory, prefix string) error {
	keys, _ := b.ListKeys(ctx, category, prefix)
	for _, key := range keys {
		_ = b.DeleteFile(ctx, category, key)
	}
	return nil
}

func (b *memBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + bucketKey(category, key)
}

func (b *memBucket) GCSUri(category gcp.BucketCategory, key string) (string, error) {
	return "gs://test-" + string(category) + "/" + key, nil
}
