package providers

import (
	"context"
	"fmt"

	"github.com/huangang/llmrouter/pkg/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter handles OpenAI and OpenAI-compatible APIs. DeepSeek runs
// through the same adapter with its own name and base URL.
type OpenAIAdapter struct {
	name    string
	apiKey  string
	baseURL string
}

func NewOpenAIAdapter(name, apiKey, baseURL string) *OpenAIAdapter {
	return &OpenAIAdapter{name: name, apiKey: apiKey, baseURL: baseURL}
}

func (a *OpenAIAdapter) Name() string { return a.name }

func (a *OpenAIAdapter) Invoke(ctx context.Context, modelID string, messages []Message, params Params) (*Outcome, error) {
	clientConfig := openai.DefaultConfig(a.apiKey)
	if a.baseURL != "" {
		clientConfig.BaseURL = a.baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: toOpenAIMessages(messages),
	}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.Infof("[Provider] %s API error: %v", a.name, err)
		return nil, fmt.Errorf("%s API error: %w", a.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", a.name)
	}

	choice := resp.Choices[0]
	return &Outcome{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return out
}
