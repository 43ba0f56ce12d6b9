package providers

import (
	"context"
	"fmt"

	"github.com/huangang/llmrouter/pkg/logger"
	"google.golang.org/genai"
)

// GoogleAdapter handles the Google Gemini API using the native SDK.
type GoogleAdapter struct {
	apiKey string
}

func NewGoogleAdapter(apiKey string) *GoogleAdapter {
	return &GoogleAdapter{apiKey: apiKey}
}

func (a *GoogleAdapter) Name() string { return "google" }

func (a *GoogleAdapter) Invoke(ctx context.Context, modelID string, messages []Message, params Params) (*Outcome, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: a.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}

	cfg := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if params.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*params.Temperature))
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, modelID, contents, cfg)
	if err != nil {
		logger.Infof("[Provider] gemini API error: %v", err)
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	outcome := &Outcome{
		Content:      resp.Text(),
		FinishReason: string(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		outcome.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outcome.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		outcome.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return outcome, nil
}
