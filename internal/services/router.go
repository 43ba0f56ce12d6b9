package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/logger"
	"github.com/huangang/llmrouter/pkg/response"
	"gorm.io/gorm"
)

// Routing modes.
const (
	ModeManual        = "manual"
	ModeCostOptimized = "cost_optimized"
)

// ChatRequest is one routed chat completion, already validated at the edge.
type ChatRequest struct {
	Mode                 string
	Model                string
	Messages             []providers.Message
	Temperature          *float64
	MaxTokens            int
	MaxCostUSD           *float64
	Providers            []string
	ExpectedOutputTokens int
}

// Usage is the token and cost accounting attached to a routed response.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	InputCostUSD     float64 `json:"input_cost_usd"`
	OutputCostUSD    float64 `json:"output_cost_usd"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
}

// ChatResult is the routed response returned to the caller.
type ChatResult struct {
	Model                string   `json:"model"`
	Provider             string   `json:"provider"`
	Content              string   `json:"content"`
	FinishReason         string   `json:"finish_reason"`
	Usage                Usage    `json:"usage"`
	LatencyMs            int64    `json:"latency_ms"`
	Cached               bool     `json:"cached"`
	EstimatedCostUSD     *float64 `json:"estimated_cost_usd,omitempty"`
	CandidatesConsidered int      `json:"candidates_considered,omitempty"`
}

// RouterService is the single-request routing engine. Mode decides the
// policy mix: manual dispatches one named model and consults the cache;
// cost-optimized ranks the catalog, checks admission against the cheapest
// projection, then walks the ranking until a provider answers.
type RouterService struct {
	db                  *gorm.DB
	estimator           CostEstimator
	ranker              *Ranker
	budget              *BudgetService
	cache               *ResponseCache
	dispatcher          *Dispatcher
	ledger              *LedgerService
	defaultOutputTokens int
}

func NewRouterService(db *gorm.DB, estimator CostEstimator, ranker *Ranker, budget *BudgetService, cache *ResponseCache, dispatcher *Dispatcher, ledger *LedgerService, defaultOutputTokens int) *RouterService {
	return &RouterService{
		db:                  db,
		estimator:           estimator,
		ranker:              ranker,
		budget:              budget,
		cache:               cache,
		dispatcher:          dispatcher,
		ledger:              ledger,
		defaultOutputTokens: defaultOutputTokens,
	}
}

// Route handles one chat completion end to end.
func (s *RouterService) Route(ctx context.Context, caller *models.Caller, req *ChatRequest) (*ChatResult, error) {
	if len(req.Messages) == 0 {
		return nil, response.NewBadRequest("messages must not be empty")
	}
	if req.ExpectedOutputTokens == 0 {
		req.ExpectedOutputTokens = s.defaultOutputTokens
	}

	switch req.Mode {
	case ModeManual:
		return s.routeManual(ctx, caller, req)
	case "", ModeCostOptimized:
		return s.routeCostOptimized(ctx, caller, req)
	default:
		return nil, response.NewBadRequest(fmt.Sprintf("unknown routing mode: %s", req.Mode))
	}
}

// routeManual dispatches to exactly the named model. This is the only mode
// that consults the response cache: a manual request names a deterministic
// target, so an identical earlier response is a legitimate answer.
func (s *RouterService) routeManual(ctx context.Context, caller *models.Caller, req *ChatRequest) (*ChatResult, error) {
	if req.Model == "" {
		return nil, response.NewBadRequest("model is required in manual mode")
	}

	var entry models.CatalogEntry
	if err := s.db.Where("model_id = ? AND is_active = ?", req.Model, true).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewBadRequest(fmt.Sprintf("model %s not found or inactive", req.Model))
		}
		return nil, err
	}

	params := providers.Params{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	key := Fingerprint(entry.ModelID, req.Messages, params)

	if cached, ok := s.cache.Get(ctx, key); ok {
		logger.Infof("[Router] cache hit for %s", entry.ModelID)
		s.ledger.Append(&models.RequestLog{
			CallerID:       caller.ID,
			CatalogEntryID: entry.ID,
			Provider:       entry.Provider,
			Model:          entry.ModelID,
			PromptText:     lastUserContent(req.Messages),
			ResponseText:   cached.Content,
			InputTokens:    cached.InputTokens,
			OutputTokens:   cached.OutputTokens,
			TotalTokens:    cached.TotalTokens,
			Status:         models.StatusCached,
		})
		return &ChatResult{
			Model:        entry.ModelID,
			Provider:     entry.Provider,
			Content:      cached.Content,
			FinishReason: cached.FinishReason,
			Usage: Usage{
				PromptTokens:     cached.InputTokens,
				CompletionTokens: cached.OutputTokens,
				TotalTokens:      cached.TotalTokens,
			},
			Cached: true,
		}, nil
	}

	outcome := s.dispatcher.Dispatch(ctx, &entry, req.Messages, params)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result, err := s.settle(caller, &entry, req, outcome, nil)
	if err != nil {
		return nil, err
	}

	s.cache.Put(ctx, key, &CachedResponse{
		Content:      outcome.Content,
		FinishReason: outcome.FinishReason,
		InputTokens:  outcome.InputTokens,
		OutputTokens: outcome.OutputTokens,
		TotalTokens:  outcome.TotalTokens,
		Model:        entry.ModelID,
		Provider:     entry.Provider,
		CreatedAt:    time.Now(),
	}, TTLFor(&entry))
	return result, nil
}

// routeCostOptimized ranks the catalog, admits against the cheapest
// candidate's projection, then walks the ranking cheapest-first until a
// dispatch succeeds. Every attempt lands in the ledger, including the
// failures that triggered a fallback.
func (s *RouterService) routeCostOptimized(ctx context.Context, caller *models.Caller, req *ChatRequest) (*ChatResult, error) {
	candidates, err := s.ranker.Rank(req.Messages, RankConstraints{
		Providers:            req.Providers,
		MaxCostUSD:           req.MaxCostUSD,
		ExpectedOutputTokens: req.ExpectedOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, response.NewBadRequest("no eligible model candidates for this request")
	}

	decision, err := s.budget.Check(caller.ID, candidates[0].Estimate.TotalCostUSD)
	if err != nil {
		return nil, err
	}
	if !decision.Approved {
		return nil, response.NewPaymentRequired("spending limit exceeded", decision)
	}

	params := providers.Params{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	var lastErr string
	for i := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		candidate := &candidates[i]
		outcome := s.dispatcher.Dispatch(ctx, &candidate.Entry, req.Messages, params)
		// An attempt aborted by cancellation never completed; it gets no
		// ledger row and the walk stops.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		estimate := candidate.Estimate.TotalCostUSD
		result, err := s.settle(caller, &candidate.Entry, req, outcome, &estimate)
		if err != nil {
			lastErr = outcome.ErrorMessage
			logger.Warnf("[Router] %s failed, falling back: %s", candidate.Entry.ModelID, lastErr)
			continue
		}
		result.EstimatedCostUSD = &estimate
		result.CandidatesConsidered = len(candidates)
		return result, nil
	}

	return nil, response.NewBadGateway(fmt.Sprintf("all model candidates failed, last error: %s", lastErr))
}

// settle prices the outcome, appends the ledger row, and records spend.
// Failed outcomes get a ledger row and come back as a bad-gateway error.
func (s *RouterService) settle(caller *models.Caller, entry *models.CatalogEntry, req *ChatRequest, outcome *DispatchOutcome, estimate *float64) (*ChatResult, error) {
	row := &models.RequestLog{
		CallerID:         caller.ID,
		CatalogEntryID:   entry.ID,
		Provider:         entry.Provider,
		Model:            entry.ModelID,
		PromptText:       lastUserContent(req.Messages),
		LatencyMs:        outcome.LatencyMs,
		EstimatedCostUSD: estimate,
	}

	if !outcome.Success {
		row.Status = models.StatusError
		row.ErrorMessage = outcome.ErrorMessage
		s.ledger.Append(row)
		return nil, response.NewBadGateway(fmt.Sprintf("provider error: %s", outcome.ErrorMessage))
	}

	inputCost, outputCost, totalCost := CalculateCost(outcome.InputTokens, outcome.OutputTokens, entry)

	row.Status = models.StatusSuccess
	row.ResponseText = outcome.Content
	row.InputTokens = outcome.InputTokens
	row.OutputTokens = outcome.OutputTokens
	row.TotalTokens = outcome.TotalTokens
	row.InputCostUSD = inputCost
	row.OutputCostUSD = outputCost
	row.TotalCostUSD = totalCost
	s.ledger.Append(row)

	if err := s.budget.AddSpend(caller.ID, totalCost); err != nil {
		logger.Errorf("[Router] spend accounting failed for caller %d: %v", caller.ID, err)
	}

	return &ChatResult{
		Model:        entry.ModelID,
		Provider:     entry.Provider,
		Content:      outcome.Content,
		FinishReason: outcome.FinishReason,
		Usage: Usage{
			PromptTokens:     outcome.InputTokens,
			CompletionTokens: outcome.OutputTokens,
			TotalTokens:      outcome.TotalTokens,
			InputCostUSD:     inputCost,
			OutputCostUSD:    outputCost,
			TotalCostUSD:     totalCost,
		},
		LatencyMs: outcome.LatencyMs,
	}, nil
}

// lastUserContent returns the content of the last user message, the prompt
// text recorded in the ledger.
func lastUserContent(messages []providers.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
