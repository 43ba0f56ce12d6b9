package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/logger"
	"github.com/huangang/llmrouter/pkg/response"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fan-out size bounds.
const (
	CompareMinModels = 2
	CompareMaxModels = 10
	BatchMinRequests = 1
	BatchMaxRequests = 100
)

// GroupItemResult is one branch of a fan-out, in the caller's input order.
type GroupItemResult struct {
	Index        int    `json:"index"`
	ItemID       string `json:"id,omitempty"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
	LatencyMs    int64  `json:"latency_ms"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// GroupResult is the joined outcome of one compare or batch call.
type GroupResult struct {
	GroupID        string            `json:"group_id"`
	TotalCostUSD   float64           `json:"total_cost_usd"`
	TotalLatencyMs int64             `json:"total_latency_ms"`
	SucceededN     int               `json:"succeeded"`
	FailedN        int               `json:"failed"`
	Results        []GroupItemResult `json:"results"`
}

// BatchItem is one prompt in a batch call. ID is a caller-chosen correlation
// tag echoed back on the matching result.
type BatchItem struct {
	ID       string
	Messages []providers.Message
}

// FanOutCoordinator runs compare and batch groups: N dispatches sharing one
// group id, bounded by a concurrency semaphore, joined before returning.
// Results come back in input order regardless of completion order. One
// branch failing never cancels its siblings.
type FanOutCoordinator struct {
	db             *gorm.DB
	dispatcher     *Dispatcher
	ledger         *LedgerService
	budget         *BudgetService
	maxConcurrency int
}

func NewFanOutCoordinator(db *gorm.DB, dispatcher *Dispatcher, ledger *LedgerService, budget *BudgetService, maxConcurrency int) *FanOutCoordinator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &FanOutCoordinator{
		db:             db,
		dispatcher:     dispatcher,
		ledger:         ledger,
		budget:         budget,
		maxConcurrency: maxConcurrency,
	}
}

// CompareAll sends the same messages to several models concurrently and
// records the group. Every named model must exist and be active.
func (f *FanOutCoordinator) CompareAll(ctx context.Context, caller *models.Caller, modelIDs []string, messages []providers.Message, params providers.Params) (*GroupResult, error) {
	if len(modelIDs) < CompareMinModels || len(modelIDs) > CompareMaxModels {
		return nil, response.NewBadRequest(fmt.Sprintf("compare requires between %d and %d models", CompareMinModels, CompareMaxModels))
	}
	if len(messages) == 0 {
		return nil, response.NewBadRequest("messages must not be empty")
	}

	entries := make([]models.CatalogEntry, len(modelIDs))
	for i, id := range modelIDs {
		if err := f.db.Where("model_id = ? AND is_active = ?", id, true).First(&entries[i]).Error; err != nil {
			return nil, response.NewBadRequest(fmt.Sprintf("model %s not found or inactive", id))
		}
	}

	groupID := uuid.New().String()
	items := make([]fanOutItem, len(entries))
	for i := range entries {
		items[i] = fanOutItem{entry: &entries[i], messages: messages}
	}

	result := f.run(ctx, caller, groupID, items, params)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	modelsJSON, _ := json.Marshal(modelIDs)
	if err := f.ledger.CreateGroup(&models.ComparisonGroup{
		ID:           groupID,
		CallerID:     caller.ID,
		PromptText:   lastUserContent(messages),
		ModelsUsed:   string(modelsJSON),
		TotalCostUSD: result.TotalCostUSD,
	}); err != nil {
		logger.Errorf("[FanOut] group record failed: %v", err)
	}
	return result, nil
}

// BatchAll sends several prompts to one model concurrently under a shared
// group id.
func (f *FanOutCoordinator) BatchAll(ctx context.Context, caller *models.Caller, modelID string, batch []BatchItem, params providers.Params) (*GroupResult, error) {
	if len(batch) < BatchMinRequests || len(batch) > BatchMaxRequests {
		return nil, response.NewBadRequest(fmt.Sprintf("batch requires between %d and %d requests", BatchMinRequests, BatchMaxRequests))
	}
	for i, item := range batch {
		if len(item.Messages) == 0 {
			return nil, response.NewBadRequest(fmt.Sprintf("batch item %d has no messages", i))
		}
	}

	var entry models.CatalogEntry
	if err := f.db.Where("model_id = ? AND is_active = ?", modelID, true).First(&entry).Error; err != nil {
		return nil, response.NewBadRequest(fmt.Sprintf("model %s not found or inactive", modelID))
	}

	groupID := uuid.New().String()
	items := make([]fanOutItem, len(batch))
	for i := range batch {
		items[i] = fanOutItem{entry: &entry, messages: batch[i].Messages, itemID: batch[i].ID}
	}

	result := f.run(ctx, caller, groupID, items, params)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return result, nil
}

type fanOutItem struct {
	entry    *models.CatalogEntry
	messages []providers.Message
	itemID   string
}

// run executes the branches under the semaphore and joins them all. Branches
// that never ran because the context was cancelled write no ledger rows.
func (f *FanOutCoordinator) run(ctx context.Context, caller *models.Caller, groupID string, items []fanOutItem, params providers.Params) *GroupResult {
	start := time.Now()
	results := make([]GroupItemResult, len(items))
	sem := make(chan struct{}, f.maxConcurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	totalCost := decimal.Zero
	succeeded := 0

	for i := range items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			item := items[idx]
			results[idx] = GroupItemResult{
				Index:    idx,
				ItemID:   item.itemID,
				Model:    item.entry.ModelID,
				Provider: item.entry.Provider,
				Status:   models.StatusError,
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx].ErrorMessage = ctx.Err().Error()
				return
			}
			if ctx.Err() != nil {
				results[idx].ErrorMessage = ctx.Err().Error()
				return
			}

			outcome := f.dispatcher.Dispatch(ctx, item.entry, item.messages, params)
			results[idx].LatencyMs = outcome.LatencyMs

			row := &models.RequestLog{
				CallerID:       caller.ID,
				CatalogEntryID: item.entry.ID,
				Provider:       item.entry.Provider,
				Model:          item.entry.ModelID,
				GroupID:        &groupID,
				PromptText:     lastUserContent(item.messages),
				LatencyMs:      outcome.LatencyMs,
			}

			if !outcome.Success {
				// A branch aborted by cancellation never completed; it gets
				// no ledger row and no fabricated outcome.
				if ctx.Err() != nil {
					results[idx].ErrorMessage = ctx.Err().Error()
					return
				}
				results[idx].ErrorMessage = outcome.ErrorMessage
				row.Status = models.StatusError
				row.ErrorMessage = outcome.ErrorMessage
				f.ledger.Append(row)
				return
			}

			inputCost, outputCost, itemCost := CalculateCost(outcome.InputTokens, outcome.OutputTokens, item.entry)

			row.Status = models.StatusSuccess
			row.ResponseText = outcome.Content
			row.InputTokens = outcome.InputTokens
			row.OutputTokens = outcome.OutputTokens
			row.TotalTokens = outcome.TotalTokens
			row.InputCostUSD = inputCost
			row.OutputCostUSD = outputCost
			row.TotalCostUSD = itemCost
			f.ledger.Append(row)

			if err := f.budget.AddSpend(caller.ID, itemCost); err != nil {
				logger.Errorf("[FanOut] spend accounting failed for caller %d: %v", caller.ID, err)
			}

			results[idx].Status = models.StatusSuccess
			results[idx].Content = outcome.Content
			results[idx].FinishReason = outcome.FinishReason
			results[idx].Usage = Usage{
				PromptTokens:     outcome.InputTokens,
				CompletionTokens: outcome.OutputTokens,
				TotalTokens:      outcome.TotalTokens,
				InputCostUSD:     inputCost,
				OutputCostUSD:    outputCost,
				TotalCostUSD:     itemCost,
			}

			mu.Lock()
			totalCost = totalCost.Add(decimal.NewFromFloat(itemCost))
			succeeded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	total, _ := totalCost.Round(costScale).Float64()
	return &GroupResult{
		GroupID:        groupID,
		TotalCostUSD:   total,
		TotalLatencyMs: time.Since(start).Milliseconds(),
		SucceededN:     succeeded,
		FailedN:        len(items) - succeeded,
		Results:        results,
	}
}
