package services

import (
	"math"
	"testing"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
)

// newTestEstimator skips the test when the tokenizer data is unavailable
// (offline environments).
func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := NewEstimator()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return e
}

func testEntry(modelID string, inPrice, outPrice float64) *models.CatalogEntry {
	return &models.CatalogEntry{
		ModelID:          modelID,
		Provider:         "openai",
		InputPricePer1M:  inPrice,
		OutputPricePer1M: outPrice,
		IsActive:         true,
	}
}

func TestCalculateCost_Exact(t *testing.T) {
	entry := testEntry("gpt-4o", 2.50, 10.00)

	// 1M input tokens at $2.50/1M and 500k output tokens at $10.00/1M.
	in, out, total := CalculateCost(1_000_000, 500_000, entry)

	if in != 2.50 {
		t.Errorf("input cost = %v, expected 2.50", in)
	}
	if out != 5.00 {
		t.Errorf("output cost = %v, expected 5.00", out)
	}
	if total != 7.50 {
		t.Errorf("total cost = %v, expected 7.50", total)
	}
}

func TestCalculateCost_RoundsToEightDecimals(t *testing.T) {
	// 1 token at $0.15/1M is $0.00000015 exactly at 8 decimal places.
	entry := testEntry("gpt-4o-mini", 0.15, 0.60)

	in, _, _ := CalculateCost(1, 0, entry)
	if in != 0.00000015 {
		t.Errorf("input cost = %.10f, expected 0.00000015", in)
	}

	// 3 tokens at $0.27/1M is 0.00000081.
	entry = testEntry("deepseek-chat", 0.27, 1.10)
	in, _, _ = CalculateCost(3, 0, entry)
	if in != 0.00000081 {
		t.Errorf("input cost = %.10f, expected 0.00000081", in)
	}
}

func TestCalculateCost_TotalIsSumOfRoundedParts(t *testing.T) {
	entry := testEntry("claude-3-5-haiku-20241022", 0.80, 4.00)

	in, out, total := CalculateCost(1234, 567, entry)
	if math.Abs(total-(in+out)) > 1e-12 {
		t.Errorf("total %v != input %v + output %v", total, in, out)
	}
}

func TestCalculateCost_FreeModel(t *testing.T) {
	entry := testEntry("llama3", 0, 0)

	in, out, total := CalculateCost(100000, 100000, entry)
	if in != 0 || out != 0 || total != 0 {
		t.Errorf("free model should cost nothing, got %v/%v/%v", in, out, total)
	}
}

func TestEstimate_RejectsInvalidInput(t *testing.T) {
	e := newTestEstimator(t)
	messages := []providers.Message{{Role: "user", Content: "hello"}}

	tests := []struct {
		name     string
		messages []providers.Message
		entry    *models.CatalogEntry
		expected int
	}{
		{"empty messages", nil, testEntry("gpt-4o", 2.50, 10.00), 500},
		{"negative expected output", messages, testEntry("gpt-4o", 2.50, 10.00), -1},
		{"zero input price", messages, testEntry("free", 0, 10.00), 500},
		{"negative output price", messages, testEntry("bad", 2.50, -1), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Estimate(tt.messages, tt.entry, tt.expected); err == nil {
				t.Error("Estimate() should return error")
			}
		})
	}
}

func TestEstimate_AppliesInputBuffer(t *testing.T) {
	e := newTestEstimator(t)
	entry := testEntry("gpt-4o", 2.50, 10.00)
	messages := []providers.Message{{Role: "user", Content: "summarize this document for me please"}}

	raw := e.CountMessageTokens(messages, entry.ModelID)
	est, err := e.Estimate(messages, entry, 500)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	expected := int(float64(raw) * tokenBufferMultiplier)
	if est.InputTokens != expected {
		t.Errorf("buffered input tokens = %d, expected %d (raw %d)", est.InputTokens, expected, raw)
	}
	if est.OutputTokens != 500 {
		t.Errorf("output tokens = %d, expected 500", est.OutputTokens)
	}
	if est.TotalTokens != est.InputTokens+est.OutputTokens {
		t.Errorf("total tokens = %d, expected %d", est.TotalTokens, est.InputTokens+est.OutputTokens)
	}
}

func TestEstimate_TotalCostIsSumOfParts(t *testing.T) {
	e := newTestEstimator(t)
	entry := testEntry("gpt-4o-mini", 0.15, 0.60)
	messages := []providers.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "What is the capital of France?"},
	}

	est, err := e.Estimate(messages, entry, 200)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	if math.Abs(est.TotalCostUSD-(est.InputCostUSD+est.OutputCostUSD)) > 1e-12 {
		t.Errorf("total %v != input %v + output %v", est.TotalCostUSD, est.InputCostUSD, est.OutputCostUSD)
	}
	if est.TotalCostUSD <= 0 {
		t.Errorf("total cost should be positive, got %v", est.TotalCostUSD)
	}
}

func TestCountMessageTokens_Invariants(t *testing.T) {
	e := newTestEstimator(t)

	short := []providers.Message{{Role: "user", Content: "hi"}}
	long := []providers.Message{{Role: "user", Content: "this is a much longer message with many more words in it"}}

	shortCount := e.CountMessageTokens(short, "gpt-4o")
	longCount := e.CountMessageTokens(long, "gpt-4o")

	if shortCount <= replyPrimingTokens {
		t.Errorf("short message count %d should exceed the reply priming overhead", shortCount)
	}
	if longCount <= shortCount {
		t.Errorf("longer content should count more tokens: %d <= %d", longCount, shortCount)
	}

	// A named message counts at least one token more than the same unnamed one.
	unnamed := []providers.Message{{Role: "user", Content: "hello"}}
	named := []providers.Message{{Role: "user", Content: "hello", Name: "alice"}}
	if e.CountMessageTokens(named, "gpt-4o") <= e.CountMessageTokens(unnamed, "gpt-4o") {
		t.Error("named message should count more tokens than unnamed")
	}
}

func TestCountMessageTokens_UnknownModelFallsBack(t *testing.T) {
	e := newTestEstimator(t)
	messages := []providers.Message{{Role: "user", Content: "hello world"}}

	// Unknown model ids must not panic; they use the fallback encoding.
	count := e.CountMessageTokens(messages, "some-model-nobody-has-heard-of")
	if count <= 0 {
		t.Errorf("fallback token count should be positive, got %d", count)
	}
}
