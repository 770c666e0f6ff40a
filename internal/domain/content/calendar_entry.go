package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CalendarEntryStatus string

const (
	CalendarEntryStatusScheduled CalendarEntryStatus = "scheduled"
	CalendarEntryStatusPublished CalendarEntryStatus = "published"
	CalendarEntryStatusCanceled  CalendarEntryStatus = "canceled"
)

// CalendarEntry schedules a library item for publication on a platform.
type CalendarEntry struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	LibraryItemID uuid.UUID           `gorm:"type:uuid;not null;index" json:"library_item_id"`
	LibraryItem   *LibraryItem        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LibraryItemID;references:ID" json:"library_item,omitempty"`
	Platform      string              `gorm:"column:platform;not null;index" json:"platform"`
	ScheduledAt   time.Time           `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	Status        CalendarEntryStatus `gorm:"column:status;not null;default:'scheduled';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CalendarEntry) TableName() string { return "calendar_entry" }

func (ce *CalendarEntry) BeforeCreate(tx *gorm.DB) error {
	if ce.ID == uuid.Nil {
		ce.ID = uuid.New()
	}
	if ce.Status == "" {
		ce.Status = CalendarEntryStatusScheduled
	}
	return nil
}
