package models

import "time"

// ComparisonGroup records one compare call: the same prompt sent to several
// catalog entries. TotalCostUSD sums the actual cost of the succeeded
// dispatches only; failed siblings contribute zero.
type ComparisonGroup struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"` // uuid
	CallerID     uint      `gorm:"index;not null" json:"caller_id"`
	PromptText   string    `gorm:"type:text" json:"prompt_text"`
	ModelsUsed   string    `gorm:"type:text" json:"models_used"` // JSON array of model ids
	TotalCostUSD float64   `gorm:"not null;default:0" json:"total_cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ComparisonGroup) TableName() string { return "comparison_groups" }
