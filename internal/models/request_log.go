package models

import "time"

// Request log statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCached  = "cached"
)

// RequestLog is the append-only spend ledger: one row per dispatch attempt,
// successful or not. Rows are never mutated after creation. GroupID links a
// cohort of rows created by one compare or batch call.
type RequestLog struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	CallerID       uint    `gorm:"index;not null" json:"caller_id"`
	CatalogEntryID uint    `gorm:"index" json:"catalog_entry_id"`
	Provider       string  `gorm:"size:50" json:"provider"`
	Model          string  `gorm:"size:100" json:"model"`
	GroupID        *string `gorm:"size:36;index" json:"group_id,omitempty"`

	PromptText   string `gorm:"type:text" json:"prompt_text"`
	ResponseText string `gorm:"type:text" json:"response_text,omitempty"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	InputCostUSD     float64  `json:"input_cost_usd"`
	OutputCostUSD    float64  `json:"output_cost_usd"`
	TotalCostUSD     float64  `json:"total_cost_usd"`
	EstimatedCostUSD *float64 `json:"estimated_cost_usd,omitempty"` // pre-dispatch estimate, cost-optimized mode only

	LatencyMs    int64  `json:"latency_ms"`
	Status       string `gorm:"size:20;index;not null" json:"status"` // success, error, cached
	ErrorMessage string `gorm:"size:500" json:"error_message,omitempty"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (RequestLog) TableName() string { return "request_logs" }
