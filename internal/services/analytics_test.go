package services

import (
	"testing"

	"github.com/huangang/llmrouter/internal/models"
)

func seedLedger(t *testing.T, ledger *LedgerService) {
	t.Helper()
	rows := []models.RequestLog{
		{CallerID: 1, Provider: "openai", Model: "gpt-4o", Status: models.StatusSuccess, TotalCostUSD: 0.01, InputTokens: 100, OutputTokens: 50, TotalTokens: 150, LatencyMs: 200},
		{CallerID: 1, Provider: "openai", Model: "gpt-4o", Status: models.StatusError, LatencyMs: 100},
		{CallerID: 1, Provider: "anthropic", Model: "claude", Status: models.StatusCached, InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
		{CallerID: 2, Provider: "openai", Model: "gpt-4o", Status: models.StatusSuccess, TotalCostUSD: 0.05, TotalTokens: 300, LatencyMs: 400},
	}
	for i := range rows {
		ledger.Append(&rows[i])
	}
}

func TestGetStats_PerCaller(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedLedger(t, ledger)

	analytics := NewAnalyticsService(db)
	callerID := uint(1)
	stats, err := analytics.GetStats(&callerID, "", "")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, expected 3", stats.TotalRequests)
	}
	if stats.SuccessCount != 1 || stats.FailureCount != 1 || stats.CachedCount != 1 {
		t.Errorf("success/failure/cached = %d/%d/%d, expected 1/1/1",
			stats.SuccessCount, stats.FailureCount, stats.CachedCount)
	}
	if stats.TotalCostUSD != 0.01 {
		t.Errorf("TotalCostUSD = %v, expected 0.01", stats.TotalCostUSD)
	}
	// Cached answers count as served requests.
	want := float64(2) / 3 * 100
	if stats.SuccessRate < want-0.01 || stats.SuccessRate > want+0.01 {
		t.Errorf("SuccessRate = %v, expected ~%v", stats.SuccessRate, want)
	}
}

func TestGetStats_AllCallers(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedLedger(t, ledger)

	analytics := NewAnalyticsService(db)
	stats, err := analytics.GetStats(nil, "", "")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("TotalRequests = %d, expected 4", stats.TotalRequests)
	}
	if stats.TotalCostUSD < 0.0599 || stats.TotalCostUSD > 0.0601 {
		t.Errorf("TotalCostUSD = %v, expected ~0.06", stats.TotalCostUSD)
	}
}

func TestGetModelBreakdown(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedLedger(t, ledger)

	analytics := NewAnalyticsService(db)
	breakdown, err := analytics.GetModelBreakdown(nil, "", "")
	if err != nil {
		t.Fatalf("GetModelBreakdown() error = %v", err)
	}

	if len(breakdown) != 2 {
		t.Fatalf("breakdown rows = %d, expected 2", len(breakdown))
	}
	// Most used first: gpt-4o has 3 rows, claude has 1.
	if breakdown[0].Model != "gpt-4o" || breakdown[0].Requests != 3 {
		t.Errorf("first row = %s/%d, expected gpt-4o/3", breakdown[0].Model, breakdown[0].Requests)
	}
}

func TestGetDailyTrend_EmptyLedger(t *testing.T) {
	analytics := NewAnalyticsService(newTestDB(t))

	trend, err := analytics.GetDailyTrend(nil, "", "")
	if err != nil {
		t.Fatalf("GetDailyTrend() error = %v", err)
	}
	if trend == nil {
		t.Error("empty trend should be an empty slice, not nil")
	}
}
