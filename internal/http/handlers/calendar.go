package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/http/response"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/services"
)

type CalendarHandler struct {
	log      *logger.Logger
	calendar services.CalendarService
}

func NewCalendarHandler(baseLog *logger.Logger, calendar services.CalendarService) *CalendarHandler {
	return &CalendarHandler{
		log:      baseLog.With("handler", "CalendarHandler"),
		calendar: calendar,
	}
}

func (h *CalendarHandler) Schedule(c *gin.Context) {
	var input services.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	entry, err := h.calendar.Schedule(c.Request.Context(), input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, entry)
}

func (h *CalendarHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.calendar.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, entry)
}

// List reads RFC 3339 from/to query params; the service fills in a
// default window when they are absent.
func (h *CalendarHandler) List(c *gin.Context) {
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}
	entries, err := h.calendar.ListRange(c.Request.Context(), from, to)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

func (h *CalendarHandler) Reschedule(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.RescheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	entry, err := h.calendar.Reschedule(c.Request.Context(), id, input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, entry)
}

func (h *CalendarHandler) MarkPublished(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.calendar.MarkPublished(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, entry)
}

func (h *CalendarHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.calendar.Cancel(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return time.Time{}, false
	}
	return t, true
}
