package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/huangang/llmrouter/pkg/logger"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicAdapter handles the Anthropic Claude API using the native SDK.
// System messages are lifted out of the turn list into the system prompt,
// which the Messages API requires.
type AnthropicAdapter struct {
	apiKey string
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{apiKey: apiKey}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Invoke(ctx context.Context, modelID string, messages []Message, params Params) (*Outcome, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(a.apiKey),
	)

	var system string
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(params.MaxTokens)
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: maxTokens,
		Messages:  turns,
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}

	resp, err := client.Messages.New(ctx, req)
	if err != nil {
		logger.Infof("[Provider] anthropic API error: %v", err)
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Outcome{
		Content:      content,
		FinishReason: string(resp.StopReason),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}
