package services

import (
	"fmt"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdmissionDecision is the outcome of checking one projected cost against a
// caller's ceiling. Denials carry the shortfall so the caller can see how
// far over the ceiling the request would land.
type AdmissionDecision struct {
	Approved         bool     `json:"approved"`
	Reason           string   `json:"reason"`
	EstimatedCostUSD float64  `json:"estimated_cost_usd"`
	TotalSpentUSD    float64  `json:"total_spent_usd"`
	SpendingLimitUSD *float64 `json:"spending_limit_usd"`
	RemainingUSD     *float64 `json:"remaining_usd,omitempty"`
	WouldExceedByUSD float64  `json:"would_exceed_by_usd,omitempty"`
}

// SpendingSnapshot is the caller-facing budget view.
type SpendingSnapshot struct {
	CallerID         uint     `json:"caller_id"`
	Name             string   `json:"name"`
	TotalSpentUSD    float64  `json:"total_spent_usd"`
	SpendingLimitUSD *float64 `json:"spending_limit_usd"`
	RemainingUSD     *float64 `json:"remaining_usd,omitempty"`
	UsedPercent      *float64 `json:"used_percent,omitempty"`
}

// BudgetService owns caller spend accounting. The ceiling is soft: checks
// happen against projected cost before dispatch, actual cost lands after,
// so a single in-flight request may finish over the line.
type BudgetService struct {
	db *gorm.DB
}

func NewBudgetService(db *gorm.DB) *BudgetService {
	return &BudgetService{db: db}
}

// Check decides whether a request with the given projected cost may proceed.
// A caller with no limit is always approved.
func (s *BudgetService) Check(callerID uint, estimatedCost float64) (*AdmissionDecision, error) {
	var caller models.Caller
	if err := s.db.First(&caller, callerID).Error; err != nil {
		return nil, fmt.Errorf("load caller: %w", err)
	}

	decision := &AdmissionDecision{
		Approved:         true,
		Reason:           "no spending limit configured",
		EstimatedCostUSD: estimatedCost,
		TotalSpentUSD:    caller.TotalSpentUSD,
		SpendingLimitUSD: caller.SpendingLimitUSD,
	}
	if caller.SpendingLimitUSD == nil {
		return decision, nil
	}

	limit := decimal.NewFromFloat(*caller.SpendingLimitUSD)
	spent := decimal.NewFromFloat(caller.TotalSpentUSD)
	projected := spent.Add(decimal.NewFromFloat(estimatedCost))
	remaining, _ := limit.Sub(spent).Round(costScale).Float64()
	decision.RemainingUSD = &remaining

	if projected.LessThanOrEqual(limit) {
		decision.Reason = "within spending limit"
		return decision, nil
	}

	shortfall, _ := projected.Sub(limit).Round(costScale).Float64()
	decision.Approved = false
	decision.Reason = "estimated cost exceeds remaining budget"
	decision.WouldExceedByUSD = shortfall
	return decision, nil
}

// AddSpend increments a caller's lifetime spend. The increment happens in
// SQL so concurrent requests never lose updates to a read-modify-write race.
func (s *BudgetService) AddSpend(callerID uint, amount float64) error {
	if amount == 0 {
		return nil
	}
	result := s.db.Model(&models.Caller{}).
		Where("id = ?", callerID).
		UpdateColumn("total_spent_usd", gorm.Expr("total_spent_usd + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("record spend: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("caller %d not found", callerID)
	}
	return nil
}

// SetLimit replaces a caller's ceiling. A nil limit removes it.
func (s *BudgetService) SetLimit(callerID uint, limit *float64) error {
	if limit != nil && *limit < 0 {
		return fmt.Errorf("spending limit must not be negative")
	}
	result := s.db.Model(&models.Caller{}).
		Where("id = ?", callerID).
		Update("spending_limit_usd", limit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("caller %d not found", callerID)
	}
	return nil
}

// ResetSpend zeroes a caller's lifetime spend counter.
func (s *BudgetService) ResetSpend(callerID uint) error {
	result := s.db.Model(&models.Caller{}).
		Where("id = ?", callerID).
		Update("total_spent_usd", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("caller %d not found", callerID)
	}
	return nil
}

// Snapshot returns the caller's current budget position.
func (s *BudgetService) Snapshot(callerID uint) (*SpendingSnapshot, error) {
	var caller models.Caller
	if err := s.db.First(&caller, callerID).Error; err != nil {
		return nil, fmt.Errorf("load caller: %w", err)
	}

	snapshot := &SpendingSnapshot{
		CallerID:         caller.ID,
		Name:             caller.Name,
		TotalSpentUSD:    caller.TotalSpentUSD,
		SpendingLimitUSD: caller.SpendingLimitUSD,
	}
	if caller.SpendingLimitUSD != nil {
		limit := decimal.NewFromFloat(*caller.SpendingLimitUSD)
		spent := decimal.NewFromFloat(caller.TotalSpentUSD)
		remaining, _ := limit.Sub(spent).Round(costScale).Float64()
		snapshot.RemainingUSD = &remaining
		if limit.IsPositive() {
			used, _ := spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(2).Float64()
			snapshot.UsedPercent = &used
		}
	}
	return snapshot, nil
}
