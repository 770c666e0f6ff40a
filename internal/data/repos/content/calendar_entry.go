package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type CalendarEntryRepo interface {
	Create(dbc dbctx.Context, entries []*types.CalendarEntry) ([]*types.CalendarEntry, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CalendarEntry, error)
	ListRange(dbc dbctx.Context, from, to time.Time) ([]*types.CalendarEntry, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type calendarEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalendarEntryRepo(db *gorm.DB, baseLog *logger.Logger) CalendarEntryRepo {
	return &calendarEntryRepo{
		db:  db,
		log: baseLog.With("repo", "CalendarEntryRepo"),
	}
}

func (r *calendarEntryRepo) Create(dbc dbctx.Context, entries []*types.CalendarEntry) ([]*types.CalendarEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.CalendarEntry{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, mapStoreError("CalendarEntryRepo.Create", err)
	}
	return entries, nil
}

func (r *calendarEntryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CalendarEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, types.NewError(types.CodeValidation, "CalendarEntryRepo.GetByID", "calendar entry id is required", nil)
	}
	var entry types.CalendarEntry
	if err := transaction.WithContext(dbc.Ctx).
		Preload("LibraryItem").
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, mapStoreError("CalendarEntryRepo.GetByID", err)
	}
	return &entry, nil
}

func (r *calendarEntryRepo) ListRange(dbc dbctx.Context, from, to time.Time) ([]*types.CalendarEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Preload("LibraryItem").
		Model(&types.CalendarEntry{})
	if !from.IsZero() {
		q = q.Where("scheduled_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("scheduled_at < ?", to)
	}
	var out []*types.CalendarEntry
	if err := q.
		Order("scheduled_at ASC").
		Find(&out).Error; err != nil {
		return nil, mapStoreError("CalendarEntryRepo.ListRange", err)
	}
	return out, nil
}

func (r *calendarEntryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.CalendarEntry{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapStoreError("CalendarEntryRepo.UpdateFields", err)
	}
	return nil
}

func (r *calendarEntryRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Delete(&types.CalendarEntry{}, "id = ?", id).Error; err != nil {
		return mapStoreError("CalendarEntryRepo.Delete", err)
	}
	return nil
}
