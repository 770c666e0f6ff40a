package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type BrandProfileRepo interface {
	Create(dbc dbctx.Context, profiles []*types.BrandProfile) ([]*types.BrandProfile, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BrandProfile, error)
	List(dbc dbctx.Context) ([]*types.BrandProfile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type brandProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrandProfileRepo(db *gorm.DB, baseLog *logger.Logger) BrandProfileRepo {
	return &brandProfileRepo{
		db:  db,
		log: baseLog.With("repo", "BrandProfileRepo"),
	}
}

func (r *brandProfileRepo) Create(dbc dbctx.Context, profiles []*types.BrandProfile) ([]*types.BrandProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(profiles) == 0 {
		return []*types.BrandProfile{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&profiles).Error; err != nil {
		return nil, mapStoreError("BrandProfileRepo.Create", err)
	}
	return profiles, nil
}

func (r *brandProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BrandProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "BrandProfileRepo.GetByID", "brand profile id is required", nil)
	}
	var profile types.BrandProfile
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, mapStoreError("BrandProfileRepo.GetByID", err)
	}
	return &profile, nil
}

func (r *brandProfileRepo) List(dbc dbctx.Context) ([]*types.BrandProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BrandProfile
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, mapStoreError("BrandProfileRepo.List", err)
	}
	return out, nil
}

func (r *brandProfileRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.BrandProfile{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapStoreError("BrandProfileRepo.UpdateFields", err)
	}
	return nil
}

func (r *brandProfileRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Delete(&types.BrandProfile{}, "id = ?", id).Error; err != nil {
		return mapStoreError("BrandProfileRepo.Delete", err)
	}
	return nil
}
