package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LibraryItemKind string

const (
	LibraryItemKindBlog      LibraryItemKind = "blog"
	LibraryItemKindSocial    LibraryItemKind = "social"
	LibraryItemKindEmail     LibraryItemKind = "email"
	LibraryItemKindQuoteCard LibraryItemKind = "quote_card"
)

type LibraryItemStatus string

const (
	LibraryItemStatusDraft     LibraryItemStatus = "draft"
	LibraryItemStatusScheduled LibraryItemStatus = "scheduled"
	LibraryItemStatusPublished LibraryItemStatus = "published"
)

// LibraryItem is a finished content asset materialized from a completed
// pipeline run (or rendered from one, in the quote card case).
type LibraryItem struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EpisodeID uuid.UUID         `gorm:"type:uuid;not null;index" json:"episode_id"`
	Kind      LibraryItemKind   `gorm:"column:kind;not null;index" json:"kind"`
	Platform  string            `gorm:"column:platform;index" json:"platform,omitempty"`
	Title     string            `gorm:"column:title;not null" json:"title"`
	Body      string            `gorm:"column:body;type:text" json:"body,omitempty"`
	Data      datatypes.JSON    `gorm:"column:data" json:"data,omitempty"`
	AssetURL  string            `gorm:"column:asset_url" json:"asset_url,omitempty"`
	Status    LibraryItemStatus `gorm:"column:status;not null;default:'draft';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LibraryItem) TableName() string { return "library_item" }

func (li *LibraryItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	if li.Status == "" {
		li.Status = LibraryItemStatusDraft
	}
	return nil
}
