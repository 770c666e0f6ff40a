package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/http/response"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/services"
)

type EpisodeHandler struct {
	log           *logger.Logger
	episodes      services.EpisodeService
	transcription services.TranscriptionService
	quoteCards    services.QuoteCardService
}

func NewEpisodeHandler(
	baseLog *logger.Logger,
	episodes services.EpisodeService,
	transcription services.TranscriptionService,
	quoteCards services.QuoteCardService,
) *EpisodeHandler {
	return &EpisodeHandler{
		log:           baseLog.With("handler", "EpisodeHandler"),
		episodes:      episodes,
		transcription: transcription,
		quoteCards:    quoteCards,
	}
}

func (h *EpisodeHandler) Create(c *gin.Context) {
	var input services.CreateEpisodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	ep, err := h.episodes.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, ep)
}

func (h *EpisodeHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ep, err := h.episodes.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, ep)
}

func (h *EpisodeHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	episodes, err := h.episodes.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"episodes": episodes})
}

func (h *EpisodeHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.UpdateEpisodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	ep, err := h.episodes.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, ep)
}

func (h *EpisodeHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.episodes.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type processRequest struct {
	StartFromStage int `json:"start_from_stage"`
}

// Process claims the episode and detaches the run; the 202 carries the
// claimed row. Progress streams over the events endpoint.
func (h *EpisodeHandler) Process(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req processRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
			return
		}
	}
	ep, err := h.episodes.Process(c.Request.Context(), id, req.StartFromStage)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondAccepted(c, ep)
}

func (h *EpisodeHandler) Pause(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ep, err := h.episodes.Pause(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, ep)
}

type regenerateRequest struct {
	SubStage string `json:"sub_stage"`
}

func (h *EpisodeHandler) Regenerate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stage, ok := pathInt(c, "stage")
	if !ok {
		return
	}
	var req regenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
			return
		}
	}
	ep, err := h.episodes.Regenerate(c.Request.Context(), id, stage, req.SubStage)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondAccepted(c, ep)
}

func (h *EpisodeHandler) Status(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	status, err := h.episodes.Status(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, status)
}

func (h *EpisodeHandler) Stages(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := h.episodes.StageRecords(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stages": records})
}

func (h *EpisodeHandler) UploadAudio(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	defer file.Close()

	ep, err := h.transcription.UploadAudio(c.Request.Context(), id, fileHeader.Filename, file)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, ep)
}

func (h *EpisodeHandler) Transcribe(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ep, err := h.transcription.Transcribe(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, ep)
}

func (h *EpisodeHandler) GenerateQuoteCards(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.quoteCards.GenerateCards(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"items": items})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return uuid.Nil, false
	}
	return id, true
}
