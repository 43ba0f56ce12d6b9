package services

import (
	"fmt"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/pkoukk/tiktoken-go"
	"github.com/shopspring/decimal"
)

const (
	// Per-message framing overhead of the chat format.
	tokensPerMessage = 3
	tokensPerName    = 1
	// Every reply is primed with an assistant header.
	replyPrimingTokens = 3

	// Safety margin applied to the raw input token count. Tokenizers differ
	// across providers; overestimating beats blowing past a budget ceiling.
	tokenBufferMultiplier = 1.15

	// Monetary values are kept at 8 decimal places. Per-token prices for
	// cheap models go below a millionth of a dollar.
	costScale          = 8
	tokensPerPriceUnit = 1_000_000
)

// CostEstimate is a pre-dispatch cost projection for one catalog entry.
type CostEstimate struct {
	InputTokens   int     `json:"estimated_input_tokens"`
	OutputTokens  int     `json:"estimated_output_tokens"`
	TotalTokens   int     `json:"estimated_total_tokens"`
	InputCostUSD  float64 `json:"estimated_input_cost_usd"`
	OutputCostUSD float64 `json:"estimated_output_cost_usd"`
	TotalCostUSD  float64 `json:"estimated_total_cost_usd"`
}

// Estimator projects token counts and USD cost before any provider is
// called. Token counts use tiktoken; models without their own encoding fall
// back to cl100k_base.
type Estimator struct {
	fallback *tiktoken.Tiktoken
}

func NewEstimator() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load fallback encoding: %w", err)
	}
	return &Estimator{fallback: enc}, nil
}

func (e *Estimator) encodingFor(modelID string) *tiktoken.Tiktoken {
	enc, err := tiktoken.EncodingForModel(modelID)
	if err != nil {
		return e.fallback
	}
	return enc
}

// CountMessageTokens counts the chat-format tokens of a message list: per
// message the framing overhead plus every field value, plus one extra token
// when a name is present, plus the reply priming tokens.
func (e *Estimator) CountMessageTokens(messages []providers.Message, modelID string) int {
	enc := e.encodingFor(modelID)
	total := 0
	for _, m := range messages {
		total += tokensPerMessage
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
		if m.Name != "" {
			total += len(enc.Encode(m.Name, nil, nil))
			total += tokensPerName
		}
	}
	return total + replyPrimingTokens
}

// Estimate projects the cost of sending messages to one catalog entry,
// assuming expectedOutputTokens in the reply. The input count carries the
// safety buffer; the output count is taken as given.
func (e *Estimator) Estimate(messages []providers.Message, entry *models.CatalogEntry, expectedOutputTokens int) (*CostEstimate, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages must not be empty")
	}
	if expectedOutputTokens < 0 {
		return nil, fmt.Errorf("expected output tokens must not be negative: %d", expectedOutputTokens)
	}
	if entry.InputPricePer1M <= 0 || entry.OutputPricePer1M <= 0 {
		return nil, fmt.Errorf("model %s has no valid pricing", entry.ModelID)
	}

	rawInput := e.CountMessageTokens(messages, entry.ModelID)
	inputTokens := int(float64(rawInput) * tokenBufferMultiplier)

	inputCost := tokenCost(inputTokens, entry.InputPricePer1M)
	outputCost := tokenCost(expectedOutputTokens, entry.OutputPricePer1M)

	return &CostEstimate{
		InputTokens:   inputTokens,
		OutputTokens:  expectedOutputTokens,
		TotalTokens:   inputTokens + expectedOutputTokens,
		InputCostUSD:  inputCost.InexactFloat64(),
		OutputCostUSD: outputCost.InexactFloat64(),
		TotalCostUSD:  inputCost.Add(outputCost).InexactFloat64(),
	}, nil
}

// CalculateCost prices an actual, provider-reported usage against a catalog
// entry. Unlike Estimate it accepts zero prices: a free local model costs
// exactly nothing.
func CalculateCost(inputTokens, outputTokens int, entry *models.CatalogEntry) (inputCost, outputCost, totalCost float64) {
	in := tokenCost(inputTokens, entry.InputPricePer1M)
	out := tokenCost(outputTokens, entry.OutputPricePer1M)
	return in.InexactFloat64(), out.InexactFloat64(), in.Add(out).InexactFloat64()
}

// tokenCost converts a token count and a price per million tokens into USD,
// rounded to costScale decimal places. Decimal arithmetic keeps the ledger
// free of float drift.
func tokenCost(tokens int, pricePer1M float64) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).
		Mul(decimal.NewFromFloat(pricePer1M)).
		Div(decimal.NewFromInt(tokensPerPriceUnit)).
		Round(costScale)
}
