package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
	"gorm.io/gorm"
)

// CatalogHandler is the admin CRUD surface for the model catalog.
type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{
		catalogService: services.NewCatalogService(db),
	}
}

func (h *CatalogHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	entries, err := h.catalogService.List(activeOnly)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, entries)
}

func (h *CatalogHandler) Get(c *gin.Context) {
	entry, err := h.catalogService.Get(c.Param("model_id"))
	if err != nil {
		response.NotFound(c, "model not found")
		return
	}
	response.Success(c, entry)
}

func (h *CatalogHandler) Create(c *gin.Context) {
	var req services.CreateCatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	entry, err := h.catalogService.Create(&req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, entry)
}

func (h *CatalogHandler) Update(c *gin.Context) {
	var req services.UpdateCatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	entry, err := h.catalogService.Update(c.Param("model_id"), &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "model not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, entry)
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.catalogService.Delete(c.Param("model_id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "model not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}
