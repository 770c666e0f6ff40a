package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type EpisodeRepo interface {
	Create(dbc dbctx.Context, episodes []*types.Episode) ([]*types.Episode, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Episode, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []types.EpisodeStatus, updates map[string]interface{}) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type episodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return &episodeRepo{
		db:  db,
		log: baseLog.With("repo", "EpisodeRepo"),
	}
}

func (r *episodeRepo) Create(dbc dbctx.Context, episodes []*types.Episode) ([]*types.Episode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(episodes) == 0 {
		return []*types.Episode{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&episodes).Error; err != nil {
		return nil, mapStoreError("EpisodeRepo.Create", err)
	}
	return episodes, nil
}

func (r *episodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "EpisodeRepo.GetByID", "episode id is required", nil)
	}
	var episode types.Episode
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&episode).Error; err != nil {
		return nil, mapStoreError("EpisodeRepo.GetByID", err)
	}
	return &episode, nil
}

func (r *episodeRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Episode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Episode
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, mapStoreError("EpisodeRepo.List", err)
	}
	return out, nil
}

func (r *episodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Episode{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapStoreError("EpisodeRepo.UpdateFields", err)
	}
	return nil
}

// UpdateFieldsIfStatus applies updates only while the episode sits in one of
// the allowed statuses. The returned bool reports whether a row changed, which
// is how callers detect a lost status race without a second read.
func (r *episodeRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []types.EpisodeStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(allowedStatuses) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Episode{}).
		Where("id = ?", id)
	if len(allowedStatuses) == 1 {
		q = q.Where("status = ?", allowedStatuses[0])
	} else {
		q = q.Where("status IN ?", allowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, mapStoreError("EpisodeRepo.UpdateFieldsIfStatus", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *episodeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Delete(&types.Episode{}, "id = ?", id).Error; err != nil {
		return mapStoreError("EpisodeRepo.Delete", err)
	}
	return nil
}
