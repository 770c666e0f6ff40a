package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EpisodeStatus string

const (
	EpisodeStatusDraft      EpisodeStatus = "draft"
	EpisodeStatusProcessing EpisodeStatus = "processing"
	EpisodeStatusPaused     EpisodeStatus = "paused"
	EpisodeStatusCompleted  EpisodeStatus = "completed"
	EpisodeStatusError      EpisodeStatus = "error"
)

// Startable reports whether a pipeline run may begin from this status.
// Processing episodes are rejected; callers serialize runs through this check.
func (s EpisodeStatus) Startable() bool {
	switch s {
	case EpisodeStatusDraft, EpisodeStatusPaused, EpisodeStatusError:
		return true
	default:
		return false
	}
}

type Episode struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string            `gorm:"column:title;not null" json:"title"`
	Transcript     string            `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	AudioObjectKey string            `gorm:"column:audio_object_key" json:"audio_object_key,omitempty"`
	UserContext    datatypes.JSONMap `gorm:"column:user_context" json:"user_context,omitempty"`
	BrandProfileID *uuid.UUID        `gorm:"type:uuid;column:brand_profile_id;index" json:"brand_profile_id,omitempty"`

	// Orchestrator-owned fields. Nothing else writes these.
	Status           EpisodeStatus `gorm:"column:status;not null;default:'draft';index" json:"status"`
	PauseRequested   bool          `gorm:"column:pause_requested;not null;default:false" json:"pause_requested"`
	CurrentStage     int           `gorm:"column:current_stage;not null;default:0" json:"current_stage"`
	TotalCostUSD     float64       `gorm:"column:total_cost_usd;not null;default:0" json:"total_cost_usd"`
	TotalDurationSec float64       `gorm:"column:total_duration_sec;not null;default:0" json:"total_duration_sec"`
	ErrorMessage     string        `gorm:"column:error_message" json:"error_message,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Episode) TableName() string { return "episode" }

func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EpisodeStatusDraft
	}
	return nil
}
