package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/middleware"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/response"
)

// ChatHandler serves the routed completion surface.
type ChatHandler struct {
	router *services.RouterService
	fanout *services.FanOutCoordinator
}

func NewChatHandler(router *services.RouterService, fanout *services.FanOutCoordinator) *ChatHandler {
	return &ChatHandler{router: router, fanout: fanout}
}

type chatCompletionRequest struct {
	Mode                 string              `json:"mode"` // manual, cost_optimized (default)
	Model                string              `json:"model"`
	Messages             []providers.Message `json:"messages" binding:"required,min=1,dive"`
	Temperature          *float64            `json:"temperature"`
	MaxTokens            int                 `json:"max_tokens"`
	MaxCostUSD           *float64            `json:"max_cost_usd"`
	Providers            []string            `json:"providers"`
	ExpectedOutputTokens int                 `json:"expected_output_tokens"`
}

// Completions routes one chat completion.
func (h *ChatHandler) Completions(c *gin.Context) {
	var req chatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCaller(c)
	result, err := h.router.Route(c.Request.Context(), caller, &services.ChatRequest{
		Mode:                 req.Mode,
		Model:                req.Model,
		Messages:             req.Messages,
		Temperature:          req.Temperature,
		MaxTokens:            req.MaxTokens,
		MaxCostUSD:           req.MaxCostUSD,
		Providers:            req.Providers,
		ExpectedOutputTokens: req.ExpectedOutputTokens,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type compareRequest struct {
	Models      []string            `json:"models" binding:"required"`
	Messages    []providers.Message `json:"messages" binding:"required,min=1,dive"`
	Temperature *float64            `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

// Compare fans the same messages out to several models.
func (h *ChatHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCaller(c)
	params := providers.Params{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	result, err := h.fanout.CompareAll(c.Request.Context(), caller, req.Models, req.Messages, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type batchRequestItem struct {
	ID       string              `json:"id"`
	Messages []providers.Message `json:"messages" binding:"required,min=1,dive"`
}

type batchRequest struct {
	Model       string             `json:"model" binding:"required"`
	Requests    []batchRequestItem `json:"requests" binding:"required,dive"`
	Temperature *float64           `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

// Batch fans several prompts out to one model.
func (h *ChatHandler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	items := make([]services.BatchItem, len(req.Requests))
	for i, r := range req.Requests {
		items[i] = services.BatchItem{ID: r.ID, Messages: r.Messages}
	}

	caller := middleware.GetCaller(c)
	params := providers.Params{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	result, err := h.fanout.BatchAll(c.Request.Context(), caller, req.Model, items, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
