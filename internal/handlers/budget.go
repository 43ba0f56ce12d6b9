package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/middleware"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
)

// BudgetHandler serves the caller-facing budget view.
type BudgetHandler struct {
	budget *services.BudgetService
}

func NewBudgetHandler(budget *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budget: budget}
}

// Snapshot returns the authenticated caller's budget position.
func (h *BudgetHandler) Snapshot(c *gin.Context) {
	caller := middleware.GetCaller(c)
	snapshot, err := h.budget.Snapshot(caller.ID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, snapshot)
}
