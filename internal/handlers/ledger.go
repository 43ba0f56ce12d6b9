package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/middleware"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
)

// LedgerHandler serves the caller's request history and comparison groups.
type LedgerHandler struct {
	ledger *services.LedgerService
}

func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// ListRequests pages through the caller's ledger rows.
func (h *LedgerHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	caller := middleware.GetCaller(c)
	rows, total, err := h.ledger.ListRequests(caller.ID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"requests":  rows,
	})
}

// GetGroup returns one comparison group with its ledger rows.
func (h *LedgerHandler) GetGroup(c *gin.Context) {
	caller := middleware.GetCaller(c)
	group, rows, err := h.ledger.GetGroup(c.Param("id"), caller.ID)
	if err != nil {
		response.NotFound(c, "group not found")
		return
	}
	response.Success(c, gin.H{
		"group":   group,
		"results": rows,
	})
}
