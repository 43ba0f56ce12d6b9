package models

import (
	"time"

	"gorm.io/gorm"
)

// CatalogEntry is one addressable backend model with its pricing. Entries are
// immutable after creation except for the active flag.
type CatalogEntry struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ModelID          string         `gorm:"size:100;uniqueIndex;not null" json:"model_id"` // wire id, e.g. "gpt-4o-mini"
	Provider         string         `gorm:"size:50;index;not null" json:"provider"`        // openai, anthropic, google, deepseek, ollama
	DisplayName      string         `gorm:"size:100" json:"display_name"`
	InputPricePer1M  float64        `gorm:"column:input_price_per_1m;not null" json:"input_price_per_1m"`   // USD per 1M input tokens
	OutputPricePer1M float64        `gorm:"column:output_price_per_1m;not null" json:"output_price_per_1m"` // USD per 1M output tokens
	ContextWindow    int            `json:"context_window"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CatalogEntry) TableName() string { return "catalog_entries" }
