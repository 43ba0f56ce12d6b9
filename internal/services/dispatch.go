package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/logger"
)

// DispatchOutcome is the result of one provider attempt, success or not.
// Failed attempts still carry latency so the ledger records what the attempt
// cost in wall time.
type DispatchOutcome struct {
	Success      bool
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	LatencyMs    int64
	ErrorMessage string
}

// Dispatcher sends one request to the provider behind a catalog entry.
type Dispatcher struct {
	registry providers.Registry
}

func NewDispatcher(registry providers.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch invokes the adapter for the entry's provider and normalizes the
// result. A provider with no registered adapter is a failure for this entry,
// not a panic: the catalog may list providers the deployment has no
// credentials for.
func (d *Dispatcher) Dispatch(ctx context.Context, entry *models.CatalogEntry, messages []providers.Message, params providers.Params) *DispatchOutcome {
	adapter, ok := d.registry.Lookup(entry.Provider)
	if !ok {
		return &DispatchOutcome{
			ErrorMessage: fmt.Sprintf("no adapter registered for provider %q", entry.Provider),
		}
	}

	logger.Infof("[Dispatch] provider=%s model=%s", entry.Provider, entry.ModelID)

	start := time.Now()
	outcome, err := adapter.Invoke(ctx, entry.ModelID, messages, params)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return &DispatchOutcome{
			LatencyMs:    latency,
			ErrorMessage: err.Error(),
		}
	}

	return &DispatchOutcome{
		Success:      true,
		Content:      outcome.Content,
		FinishReason: outcome.FinishReason,
		InputTokens:  outcome.InputTokens,
		OutputTokens: outcome.OutputTokens,
		TotalTokens:  outcome.TotalTokens,
		LatencyMs:    latency,
	}
}
