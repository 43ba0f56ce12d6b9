package models

import (
	"fmt"

	"github.com/huangang/llmrouter/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Caller{},
		&CatalogEntry{},
		&RequestLog{},
		&ComparisonGroup{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData populates the model catalog on first boot. Prices are USD
// per 1M tokens; local ollama entries are free.
func SeedDefaultData() error {
	var count int64
	DB.Model(&CatalogEntry{}).Count(&count)
	if count > 0 {
		return nil
	}

	entries := []CatalogEntry{
		{ModelID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o", InputPricePer1M: 2.50, OutputPricePer1M: 10.00, ContextWindow: 128000, IsActive: true},
		{ModelID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini", InputPricePer1M: 0.15, OutputPricePer1M: 0.60, ContextWindow: 128000, IsActive: true},
		{ModelID: "claude-sonnet-4-20250514", Provider: "anthropic", DisplayName: "Claude Sonnet 4", InputPricePer1M: 3.00, OutputPricePer1M: 15.00, ContextWindow: 200000, IsActive: true},
		{ModelID: "claude-3-5-haiku-20241022", Provider: "anthropic", DisplayName: "Claude 3.5 Haiku", InputPricePer1M: 0.80, OutputPricePer1M: 4.00, ContextWindow: 200000, IsActive: true},
		{ModelID: "gemini-2.5-flash", Provider: "google", DisplayName: "Gemini 2.5 Flash", InputPricePer1M: 0.30, OutputPricePer1M: 2.50, ContextWindow: 1048576, IsActive: true},
		{ModelID: "deepseek-chat", Provider: "deepseek", DisplayName: "DeepSeek Chat", InputPricePer1M: 0.27, OutputPricePer1M: 1.10, ContextWindow: 64000, IsActive: true},
		{ModelID: "llama3", Provider: "ollama", DisplayName: "Llama 3 (local)", InputPricePer1M: 0, OutputPricePer1M: 0, ContextWindow: 8192, IsActive: false},
	}

	for _, entry := range entries {
		if err := DB.Create(&entry).Error; err != nil {
			return err
		}
	}

	return nil
}
