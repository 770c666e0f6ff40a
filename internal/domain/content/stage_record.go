package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusProcessing StageStatus = "processing"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

/*
StageRecord is the durable state of one pipeline stage execution for an
episode. Key facts:

  - Exactly one record exists per (episode_id, stage_number, sub_stage);
    sub_stage is "" for stages that do not fan out.
  - Status only moves pending -> processing -> completed|failed. The one
    exception is a bulk reset back to pending (full re-run or the discard
    half of an atomic phase failure).
  - OutputData and OutputText are both nullable and independently present:
    structured-only stages leave OutputText null, prose-only stages leave
    OutputData null, and the draft stage sets both.
*/
type StageRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EpisodeID   uuid.UUID `gorm:"type:uuid;not null;index:idx_stage_record_key,unique,priority:1" json:"episode_id"`
	StageNumber int       `gorm:"column:stage_number;not null;index:idx_stage_record_key,unique,priority:2" json:"stage_number"`
	SubStage    string    `gorm:"column:sub_stage;not null;default:'';index:idx_stage_record_key,unique,priority:3" json:"sub_stage,omitempty"`
	StageName   string    `gorm:"column:stage_name;not null" json:"stage_name"`

	Status   StageStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Provider string      `gorm:"column:provider;not null" json:"provider"`
	Model    string      `gorm:"column:model;not null" json:"model"`

	OutputData datatypes.JSON `gorm:"column:output_data" json:"output_data,omitempty"`
	OutputText *string        `gorm:"column:output_text;type:text" json:"output_text,omitempty"`

	InputTokens  int     `gorm:"column:input_tokens;not null;default:0" json:"input_tokens"`
	OutputTokens int     `gorm:"column:output_tokens;not null;default:0" json:"output_tokens"`
	CostUSD      float64 `gorm:"column:cost_usd;not null;default:0" json:"cost_usd"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DurationMs  int64      `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ErrorDetails datatypes.JSON `gorm:"column:error_details" json:"error_details,omitempty"`
	RetryCount   int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StageRecord) TableName() string { return "stage_record" }

func (r *StageRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StageStatusPending
	}
	return nil
}
