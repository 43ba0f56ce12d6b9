package models

import (
	"time"

	"gorm.io/gorm"
)

// Caller is an API key holder with a spend ledger. SpendingLimitUSD is a
// soft ceiling: admission compares it against total spent plus the
// pre-dispatch estimate, so actual spend can overshoot by the estimation
// error margin. TotalSpentUSD is only ever mutated through an atomic SQL
// increment (see services.BudgetService.AddSpend).
type Caller struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"size:100;not null" json:"name"`
	APIKey           string         `gorm:"size:64;uniqueIndex;not null" json:"-"`
	SpendingLimitUSD *float64       `json:"spending_limit_usd"` // nil = unlimited
	TotalSpentUSD    float64        `gorm:"not null;default:0" json:"total_spent_usd"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Caller) TableName() string { return "callers" }

// MaskAPIKey returns a masked API key for display.
func (c *Caller) MaskAPIKey() string {
	if len(c.APIKey) <= 8 {
		return "****"
	}
	return c.APIKey[:4] + "****" + c.APIKey[len(c.APIKey)-4:]
}
