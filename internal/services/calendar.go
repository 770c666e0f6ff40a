package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	repos "github.com/yungbote/podforge-backend/internal/data/repos/content"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

type ScheduleInput struct {
	LibraryItemID uuid.UUID `json:"library_item_id"`
	Platform      string    `json:"platform"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// RescheduleInput carries partial updates; nil fields are left alone.
type RescheduleInput struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Platform    *string    `json:"platform"`
}

/*
CalendarService books library items onto the publishing calendar. An
entry's status tracks the item through its lifecycle: scheduled at
creation, published or canceled later. Marking an entry published also
flips the library item itself, so the library view agrees with the
calendar.
*/
type CalendarService interface {
	Schedule(ctx context.Context, input ScheduleInput) (*types.CalendarEntry, error)
	Get(ctx context.Context, id uuid.UUID) (*types.CalendarEntry, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*types.CalendarEntry, error)
	Reschedule(ctx context.Context, id uuid.UUID, input RescheduleInput) (*types.CalendarEntry, error)
	MarkPublished(ctx context.Context, id uuid.UUID) (*types.CalendarEntry, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type calendarService struct {
	log     *logger.Logger
	entries repos.CalendarEntryRepo
	library repos.LibraryItemRepo
	now     func() time.Time
}

func NewCalendarService(
	baseLog *logger.Logger,
	entries repos.CalendarEntryRepo,
	library repos.LibraryItemRepo,
) CalendarService {
	return &calendarService{
		log:     baseLog.With("service", "CalendarService"),
		entries: entries,
		library: library,
		now:     time.Now,
	}
}

func (s *calendarService) Schedule(ctx context.Context, input ScheduleInput) (*types.CalendarEntry, error) {
	const op = "services.CalendarService.Schedule"
	if strings.TrimSpace(input.Platform) == "" {
		return nil, types.NewError(types.CodeValidation, op, "platform is required", nil)
	}
	if !input.ScheduledAt.After(s.now()) {
		return nil, types.NewError(types.CodeValidation, op, "scheduled_at must be in the future", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.library.GetByID(dbc, input.LibraryItemID); err != nil {
		return nil, err
	}

	created, err := s.entries.Create(dbc, []*types.CalendarEntry{{
		LibraryItemID: input.LibraryItemID,
		Platform:      strings.TrimSpace(input.Platform),
		ScheduledAt:   input.ScheduledAt,
		Status:        types.CalendarEntryStatusScheduled,
	}})
	if err != nil {
		return nil, err
	}
	if err := s.library.UpdateFields(dbc, input.LibraryItemID, map[string]interface{}{
		"status": types.LibraryItemStatusScheduled,
	}); err != nil {
		return nil, err
	}
	s.log.Info("Entry scheduled",
		"entry_id", created[0].ID,
		"library_item_id", input.LibraryItemID,
		"scheduled_at", input.ScheduledAt)
	return created[0], nil
}

func (s *calendarService) Get(ctx context.Context, id uuid.UUID) (*types.CalendarEntry, error) {
	return s.entries.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// ListRange defaults to the four weeks ahead when the caller gives no
// bounds.
func (s *calendarService) ListRange(ctx context.Context, from, to time.Time) ([]*types.CalendarEntry, error) {
	const op = "services.CalendarService.ListRange"
	if from.IsZero() {
		from = s.now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 28)
	}
	if to.Before(from) {
		return nil, types.NewError(types.CodeValidation, op, "range end precedes range start", nil)
	}
	return s.entries.ListRange(dbctx.Context{Ctx: ctx}, from, to)
}

func (s *calendarService) Reschedule(ctx context.Context, id uuid.UUID, input RescheduleInput) (*types.CalendarEntry, error) {
	const op = "services.CalendarService.Reschedule"
	dbc := dbctx.Context{Ctx: ctx}
	entry, err := s.entries.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != types.CalendarEntryStatusScheduled {
		return nil, types.NewError(types.CodeConflict, op,
			fmt.Sprintf("entry is %s; only scheduled entries move", entry.Status), nil)
	}

	updates := map[string]interface{}{}
	if input.ScheduledAt != nil {
		if !input.ScheduledAt.After(s.now()) {
			return nil, types.NewError(types.CodeValidation, op, "scheduled_at must be in the future", nil)
		}
		updates["scheduled_at"] = *input.ScheduledAt
	}
	if input.Platform != nil {
		if strings.TrimSpace(*input.Platform) == "" {
			return nil, types.NewError(types.CodeValidation, op, "platform cannot be empty", nil)
		}
		updates["platform"] = strings.TrimSpace(*input.Platform)
	}
	if len(updates) > 0 {
		if err := s.entries.UpdateFields(dbc, id, updates); err != nil {
			return nil, err
		}
	}
	return s.entries.GetByID(dbc, id)
}

func (s *calendarService) MarkPublished(ctx context.Context, id uuid.UUID) (*types.CalendarEntry, error) {
	const op = "services.CalendarService.MarkPublished"
	dbc := dbctx.Context{Ctx: ctx}
	entry, err := s.entries.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != types.CalendarEntryStatusScheduled {
		return nil, types.NewError(types.CodeConflict, op,
			fmt.Sprintf("entry is %s; only scheduled entries publish", entry.Status), nil)
	}
	if err := s.entries.UpdateFields(dbc, id, map[string]interface{}{
		"status": types.CalendarEntryStatusPublished,
	}); err != nil {
		return nil, err
	}
	if err := s.library.UpdateFields(dbc, entry.LibraryItemID, map[string]interface{}{
		"status": types.LibraryItemStatusPublished,
	}); err != nil {
		return nil, err
	}
	return s.entries.GetByID(dbc, id)
}

// Cancel is terminal for the entry but returns the library item to
// draft so it can be rescheduled.
func (s *calendarService) Cancel(ctx context.Context, id uuid.UUID) error {
	const op = "services.CalendarService.Cancel"
	dbc := dbctx.Context{Ctx: ctx}
	entry, err := s.entries.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if entry.Status == types.CalendarEntryStatusPublished {
		return types.NewError(types.CodeConflict, op, "published entries cannot be canceled", nil)
	}
	if err := s.entries.UpdateFields(dbc, id, map[string]interface{}{
		"status": types.CalendarEntryStatusCanceled,
	}); err != nil {
		return err
	}
	return s.library.UpdateFields(dbc, entry.LibraryItemID, map[string]interface{}{
		"status": types.LibraryItemStatusDraft,
	})
}
