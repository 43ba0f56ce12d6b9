package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
	"gorm.io/gorm"
)

// CallerHandler is the admin surface for API key holders and their budgets.
type CallerHandler struct {
	callerService *services.CallerService
	budgetService *services.BudgetService
}

func NewCallerHandler(db *gorm.DB) *CallerHandler {
	return &CallerHandler{
		callerService: services.NewCallerService(db),
		budgetService: services.NewBudgetService(db),
	}
}

func callerID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid caller id")
		return 0, false
	}
	return uint(id), true
}

func (h *CallerHandler) List(c *gin.Context) {
	callers, err := h.callerService.List()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	type callerView struct {
		ID               uint     `json:"id"`
		Name             string   `json:"name"`
		APIKeyMasked     string   `json:"api_key_masked"`
		SpendingLimitUSD *float64 `json:"spending_limit_usd"`
		TotalSpentUSD    float64  `json:"total_spent_usd"`
		IsActive         bool     `json:"is_active"`
	}
	views := make([]callerView, len(callers))
	for i, caller := range callers {
		views[i] = callerView{
			ID:               caller.ID,
			Name:             caller.Name,
			APIKeyMasked:     caller.MaskAPIKey(),
			SpendingLimitUSD: caller.SpendingLimitUSD,
			TotalSpentUSD:    caller.TotalSpentUSD,
			IsActive:         caller.IsActive,
		}
	}
	response.Success(c, views)
}

func (h *CallerHandler) Create(c *gin.Context) {
	var req services.CreateCallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.callerService.Create(&req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, resp)
}

func (h *CallerHandler) Snapshot(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	snapshot, err := h.budgetService.Snapshot(id)
	if err != nil {
		response.NotFound(c, "caller not found")
		return
	}
	response.Success(c, snapshot)
}

type setLimitRequest struct {
	SpendingLimitUSD *float64 `json:"spending_limit_usd"`
}

func (h *CallerHandler) SetLimit(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req setLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.budgetService.SetLimit(id, req.SpendingLimitUSD); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "limit updated"})
}

func (h *CallerHandler) ResetSpend(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.budgetService.ResetSpend(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "spend reset"})
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *CallerHandler) SetActive(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.callerService.SetActive(id, *req.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "caller not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "caller updated"})
}

func (h *CallerHandler) RotateKey(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	apiKey, err := h.callerService.RotateKey(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "caller not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"api_key": apiKey})
}

func (h *CallerHandler) Delete(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.callerService.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "caller not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}
