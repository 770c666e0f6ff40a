package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/http/response"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/services"
)

type LibraryHandler struct {
	log     *logger.Logger
	library services.LibraryService
}

func NewLibraryHandler(baseLog *logger.Logger, library services.LibraryService) *LibraryHandler {
	return &LibraryHandler{
		log:     baseLog.With("handler", "LibraryHandler"),
		library: library,
	}
}

func (h *LibraryHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	item, err := h.library.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, item)
}

// List filters on the optional kind query param (blog, social, email,
// quote_card); no kind lists everything.
func (h *LibraryHandler) List(c *gin.Context) {
	kind := types.LibraryItemKind(c.Query("kind"))
	switch kind {
	case "", types.LibraryItemKindBlog, types.LibraryItemKindSocial,
		types.LibraryItemKindEmail, types.LibraryItemKindQuoteCard:
	default:
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation),
			types.NewError(types.CodeValidation, "handlers.LibraryHandler.List", "unknown kind "+string(kind), nil))
		return
	}
	limit, offset := pagination(c)
	items, err := h.library.List(c.Request.Context(), kind, limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

func (h *LibraryHandler) ListByEpisode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.library.ListByEpisode(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

func (h *LibraryHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.UpdateLibraryItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	item, err := h.library.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, item)
}

func (h *LibraryHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.library.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) Materialize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.library.MaterializeFromEpisode(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"items": items})
}
