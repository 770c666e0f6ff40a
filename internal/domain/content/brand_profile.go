package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BrandProfile holds the voice and distribution settings a pipeline run
// reads as its shared reference content. Plain CRUD; no discovery logic.
type BrandProfile struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"column:name;not null" json:"name"`
	Tone       string         `gorm:"column:tone" json:"tone,omitempty"`
	Audience   string         `gorm:"column:audience" json:"audience,omitempty"`
	ValueProps datatypes.JSON `gorm:"column:value_props" json:"value_props,omitempty"`
	Platforms  datatypes.JSON `gorm:"column:platforms" json:"platforms,omitempty"`
	Guidelines string         `gorm:"column:guidelines;type:text" json:"guidelines,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BrandProfile) TableName() string { return "brand_profile" }

func (bp *BrandProfile) BeforeCreate(tx *gorm.DB) error {
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	return nil
}

// ValuePropList decodes the value_props JSON array, nil when unset.
func (bp *BrandProfile) ValuePropList() []string { return decodeStringList(bp.ValueProps) }

// PlatformList decodes the platforms JSON array, nil when unset.
func (bp *BrandProfile) PlatformList() []string { return decodeStringList(bp.Platforms) }

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
