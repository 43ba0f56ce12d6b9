package services

import (
	"gorm.io/gorm"
)

// AnalyticsService aggregates the request ledger into usage and spend views.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// UsageStats holds aggregated ledger statistics.
type UsageStats struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	TotalTokens      int64   `json:"total_tokens"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	SuccessRate      float64 `json:"success_rate"`
	SuccessCount     int64   `json:"success_count"`
	FailureCount     int64   `json:"failure_count"`
	CachedCount      int64   `json:"cached_count"`
}

func (s *AnalyticsService) baseQuery(callerID *uint, startDate, endDate string) *gorm.DB {
	query := s.db.Table("request_logs")
	if callerID != nil && *callerID > 0 {
		query = query.Where("caller_id = ?", *callerID)
	}
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}
	return query
}

// GetStats returns aggregated usage statistics for the given time range.
// A nil callerID aggregates across all callers (admin view).
func (s *AnalyticsService) GetStats(callerID *uint, startDate, endDate string) (*UsageStats, error) {
	var stats UsageStats
	err := s.baseQuery(callerID, startDate, endDate).Select(
		"COUNT(*) as total_requests, " +
			"COALESCE(SUM(total_cost_usd), 0) as total_cost_usd, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(input_tokens), 0) as prompt_tokens, " +
			"COALESCE(SUM(output_tokens), 0) as completion_tokens, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) as failure_count, " +
			"COALESCE(SUM(CASE WHEN status = 'cached' THEN 1 ELSE 0 END), 0) as cached_count",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessCount+stats.CachedCount) / float64(stats.TotalRequests) * 100
	}
	return &stats, nil
}

// ModelUsage holds ledger data grouped by provider and model.
type ModelUsage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Requests     int     `json:"requests"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	TotalTokens  int     `json:"total_tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}

// GetModelBreakdown returns usage grouped by provider and model, most used
// first.
func (s *AnalyticsService) GetModelBreakdown(callerID *uint, startDate, endDate string) ([]ModelUsage, error) {
	var results []ModelUsage
	err := s.baseQuery(callerID, startDate, endDate).Select(
		"provider, model, " +
			"COUNT(*) as requests, " +
			"COALESCE(SUM(total_cost_usd), 0) as total_cost_usd, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(AVG(CASE WHEN status = 'error' THEN 0.0 ELSE 100.0 END), 0) as success_rate",
	).Group("provider, model").Order("requests DESC").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []ModelUsage{}
	}
	return results, nil
}

// DailySpend holds spend data for a single day.
type DailySpend struct {
	Date         string  `json:"date"`
	Requests     int     `json:"requests"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	TotalTokens  int     `json:"total_tokens"`
}

// GetDailyTrend returns daily aggregated spend for charting.
func (s *AnalyticsService) GetDailyTrend(callerID *uint, startDate, endDate string) ([]DailySpend, error) {
	var results []DailySpend
	err := s.baseQuery(callerID, startDate, endDate).Select(
		"DATE(created_at) as date, " +
			"COUNT(*) as requests, " +
			"COALESCE(SUM(total_cost_usd), 0) as total_cost_usd, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens",
	).Group("DATE(created_at)").Order("date ASC").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []DailySpend{}
	}
	return results, nil
}
