package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/response"
)

// ModelsHandler serves the caller-facing catalog views.
type ModelsHandler struct {
	catalog *services.CatalogService
	ranker  *services.Ranker
}

func NewModelsHandler(catalog *services.CatalogService, ranker *services.Ranker) *ModelsHandler {
	return &ModelsHandler{catalog: catalog, ranker: ranker}
}

// List returns the active catalog.
func (h *ModelsHandler) List(c *gin.Context) {
	entries, err := h.catalog.List(true)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"models": entries})
}

type rankRequest struct {
	Messages             []providers.Message `json:"messages" binding:"required,min=1,dive"`
	Providers            []string            `json:"providers"`
	MaxCostUSD           *float64            `json:"max_cost_usd"`
	ExpectedOutputTokens int                 `json:"expected_output_tokens"`
}

type rankResponse struct {
	Candidates []services.RankedCandidate `json:"candidates"`
	// Projected saving of the cheapest candidate against the dearest.
	MaxSavingsUSD float64 `json:"max_savings_usd"`
}

// Rank previews the cost-optimized ranking for a prompt without dispatching.
func (h *ModelsHandler) Rank(c *gin.Context) {
	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	candidates, err := h.ranker.Rank(req.Messages, services.RankConstraints{
		Providers:            req.Providers,
		MaxCostUSD:           req.MaxCostUSD,
		ExpectedOutputTokens: req.ExpectedOutputTokens,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := rankResponse{Candidates: candidates}
	if len(candidates) > 1 {
		resp.MaxSavingsUSD = candidates[len(candidates)-1].Estimate.TotalCostUSD - candidates[0].Estimate.TotalCostUSD
	}
	response.Success(c, resp)
}
