package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/huangang/llmrouter/pkg/logger"
	"github.com/ollama/ollama/api"
)

// OllamaAdapter handles local Ollama models using the native SDK. No API key
// is involved; the base URL points at the local daemon.
type OllamaAdapter struct {
	baseURL string
}

func NewOllamaAdapter(baseURL string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaAdapter{baseURL: baseURL}
}

func (a *OllamaAdapter) Name() string { return "ollama" }

func (a *OllamaAdapter) Invoke(ctx context.Context, modelID string, messages []Message, params Params) (*Outcome, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.MaxTokens > 0 {
		options["num_predict"] = params.MaxTokens
	}

	stream := false
	var content strings.Builder
	var last api.ChatResponse
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    modelID,
		Messages: toOllamaMessages(messages),
		Options:  options,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	if err != nil {
		logger.Infof("[Provider] ollama API error: %v", err)
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	return &Outcome{
		Content:      content.String(),
		FinishReason: last.DoneReason,
		InputTokens:  last.Metrics.PromptEvalCount,
		OutputTokens: last.Metrics.EvalCount,
		TotalTokens:  last.Metrics.PromptEvalCount + last.Metrics.EvalCount,
	}, nil
}

func toOllamaMessages(messages []Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
