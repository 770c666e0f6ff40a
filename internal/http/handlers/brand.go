package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/http/response"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/services"
)

type BrandHandler struct {
	log    *logger.Logger
	brands services.BrandService
}

func NewBrandHandler(baseLog *logger.Logger, brands services.BrandService) *BrandHandler {
	return &BrandHandler{
		log:    baseLog.With("handler", "BrandHandler"),
		brands: brands,
	}
}

func (h *BrandHandler) Create(c *gin.Context) {
	var input services.BrandProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	profile, err := h.brands.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, profile)
}

func (h *BrandHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	profile, err := h.brands.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

func (h *BrandHandler) List(c *gin.Context) {
	profiles, err := h.brands.List(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profiles": profiles})
}

func (h *BrandHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input services.BrandProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(types.CodeValidation), err)
		return
	}
	profile, err := h.brands.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

func (h *BrandHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.brands.Delete(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
