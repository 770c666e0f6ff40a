package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

/*
StageRecordRepo persists one row per pipeline stage execution slot.

  - CreateMany is idempotent: rows that already exist for the
    (episode_id, stage_number, sub_stage) key are left untouched, so a
    resumed run keeps completed work and re-running stage creation is safe.
  - ResetAll returns every row of an episode to pending for a full re-run.
  - ResetByIDs returns a subset to pending; the phase executor uses it to
    discard sibling results when one member of a parallel phase fails.
*/
type StageRecordRepo interface {
	CreateMany(dbc dbctx.Context, episodeID uuid.UUID, records []*types.StageRecord) ([]*types.StageRecord, error)
	Find(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string) (*types.StageRecord, error)
	ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.StageRecord, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateByKey(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string, updates map[string]interface{}) error
	ResetAll(dbc dbctx.Context, episodeID uuid.UUID) error
	ResetByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error
}

type stageRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRecordRepo(db *gorm.DB, baseLog *logger.Logger) StageRecordRepo {
	return &stageRecordRepo{
		db:  db,
		log: baseLog.With("repo", "StageRecordRepo"),
	}
}

func (r *stageRecordRepo) CreateMany(dbc dbctx.Context, episodeID uuid.UUID, records []*types.StageRecord) ([]*types.StageRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "StageRecordRepo.CreateMany", "episode id is required", nil)
	}
	if len(records) > 0 {
		for _, record := range records {
			record.EpisodeID = episodeID
		}
		if err := transaction.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "episode_id"},
					{Name: "stage_number"},
					{Name: "sub_stage"},
				},
				DoNothing: true,
			}).
			Create(&records).Error; err != nil {
			return nil, mapStoreError("StageRecordRepo.CreateMany", err)
		}
	}
	// Reload so callers see the persisted rows, not the insert attempt:
	// on conflict the existing row (and its prior results) wins.
	return r.ListByEpisode(dbc, episodeID)
}

func (r *stageRecordRepo) Find(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string) (*types.StageRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "StageRecordRepo.Find", "episode id is required", nil)
	}
	var record types.StageRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ? AND stage_number = ? AND sub_stage = ?", episodeID, stageNumber, subStage).
		First(&record).Error; err != nil {
		return nil, mapStoreError("StageRecordRepo.Find", err)
	}
	return &record, nil
}

func (r *stageRecordRepo) ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.StageRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "StageRecordRepo.ListByEpisode", "episode id is required", nil)
	}
	var out []*types.StageRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ?", episodeID).
		Order("stage_number ASC, sub_stage ASC").
		Find(&out).Error; err != nil {
		return nil, mapStoreError("StageRecordRepo.ListByEpisode", err)
	}
	return out, nil
}

func (r *stageRecordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StageRecord{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapStoreError("StageRecordRepo.UpdateFields", err)
	}
	return nil
}

func (r *stageRecordRepo) UpdateByKey(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return types.NewError(types.CodeValidation, "StageRecordRepo.UpdateByKey", "episode id is required", nil)
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.StageRecord{}).
		Where("episode_id = ? AND stage_number = ? AND sub_stage = ?", episodeID, stageNumber, subStage).
		Updates(updates)
	if res.Error != nil {
		return mapStoreError("StageRecordRepo.UpdateByKey", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.CodeNotFound, "StageRecordRepo.UpdateByKey", "stage record not found", nil)
	}
	return nil
}

func (r *stageRecordRepo) ResetAll(dbc dbctx.Context, episodeID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StageRecord{}).
		Where("episode_id = ?", episodeID).
		Updates(resetUpdates()).Error; err != nil {
		return mapStoreError("StageRecordRepo.ResetAll", err)
	}
	return nil
}

func (r *stageRecordRepo) ResetByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StageRecord{}).
		Where("id IN ?", ids).
		Updates(resetUpdates()).Error; err != nil {
		return mapStoreError("StageRecordRepo.ResetByIDs", err)
	}
	return nil
}

func (r *stageRecordRepo) DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ?", episodeID).
		Delete(&types.StageRecord{}).Error; err != nil {
		return mapStoreError("StageRecordRepo.DeleteByEpisode", err)
	}
	return nil
}

// resetUpdates clears every execution field back to the freshly created
// shape. Identity fields (stage name, provider, model) are kept.
func resetUpdates() map[string]interface{} {
	return map[string]interface{}{
		"status":        types.StageStatusPending,
		"output_data":   nil,
		"output_text":   nil,
		"input_tokens":  0,
		"output_tokens": 0,
		"cost_usd":      0,
		"started_at":    nil,
		"completed_at":  nil,
		"duration_ms":   0,
		"error_message": "",
		"error_details": nil,
		"retry_count":   0,
		"updated_at":    time.Now(),
	}
}
