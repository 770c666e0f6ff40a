package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type LibraryItemRepo interface {
	Create(dbc dbctx.Context, items []*types.LibraryItem) ([]*types.LibraryItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LibraryItem, error)
	ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error)
	List(dbc dbctx.Context, kind types.LibraryItemKind, limit, offset int) ([]*types.LibraryItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error
}

type libraryItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLibraryItemRepo(db *gorm.DB, baseLog *logger.Logger) LibraryItemRepo {
	return &libraryItemRepo{
		db:  db,
		log: baseLog.With("repo", "LibraryItemRepo"),
	}
}

func (r *libraryItemRepo) Create(dbc dbctx.Context, items []*types.LibraryItem) ([]*types.LibraryItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.LibraryItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, mapStoreError("LibraryItemRepo.Create", err)
	}
	return items, nil
}

func (r *libraryItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LibraryItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "LibraryItemRepo.GetByID", "library item id is required", nil)
	}
	var item types.LibraryItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&item).Error; err != nil {
		return nil, mapStoreError("LibraryItemRepo.GetByID", err)
	}
	return &item, nil
}

func (r *libraryItemRepo) ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.LibraryItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "LibraryItemRepo.ListByEpisode", "episode id is required", nil)
	}
	var out []*types.LibraryItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ?", episodeID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, mapStoreError("LibraryItemRepo.ListByEpisode", err)
	}
	return out, nil
}

func (r *libraryItemRepo) List(dbc dbctx.Context, kind types.LibraryItemKind, limit, offset int) ([]*types.LibraryItem, error) {
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
	q := transaction.WithContext(dbc.Ctx).Model(&types.LibraryItem{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []*types.LibraryItem
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, mapStoreError("LibraryItemRepo.List", err)
	}
	return out, nil
}

func (r *libraryItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.LibraryItem{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapStoreError("LibraryItemRepo.UpdateFields", err)
	}
	return nil
}

func (r *libraryItemRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Delete(&types.LibraryItem{}, "id = ?", id).Error; err != nil {
		return mapStoreError("LibraryItemRepo.Delete", err)
	}
	return nil
}

func (r *libraryItemRepo) DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if episodeID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ?", episodeID).
		Delete(&types.LibraryItem{}).Error; err != nil {
		return mapStoreError("LibraryItemRepo.DeleteByEpisode", err)
	}
	return nil
}
