package services

import (
	"errors"
	"fmt"

	"github.com/huangang/llmrouter/internal/models"
	"gorm.io/gorm"
)

// CatalogService manages the model catalog.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

type CreateCatalogEntryRequest struct {
	ModelID          string  `json:"model_id" binding:"required"`
	Provider         string  `json:"provider" binding:"required"`
	DisplayName      string  `json:"display_name"`
	InputPricePer1M  float64 `json:"input_price_per_1m"`
	OutputPricePer1M float64 `json:"output_price_per_1m"`
	ContextWindow    int     `json:"context_window"`
	IsActive         *bool   `json:"is_active"`
}

type UpdateCatalogEntryRequest struct {
	DisplayName      *string  `json:"display_name"`
	InputPricePer1M  *float64 `json:"input_price_per_1m"`
	OutputPricePer1M *float64 `json:"output_price_per_1m"`
	ContextWindow    *int     `json:"context_window"`
	IsActive         *bool    `json:"is_active"`
}

// List returns catalog entries, optionally filtered to active ones, in
// insertion order.
func (s *CatalogService) List(activeOnly bool) ([]models.CatalogEntry, error) {
	query := s.db.Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var entries []models.CatalogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one entry by its wire model id.
func (s *CatalogService) Get(modelID string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	if err := s.db.Where("model_id = ?", modelID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create adds a catalog entry. Prices must not be negative; a zero price is
// allowed only so local free models can be listed, and such entries are
// skipped by the ranker.
func (s *CatalogService) Create(req *CreateCatalogEntryRequest) (*models.CatalogEntry, error) {
	if req.InputPricePer1M < 0 || req.OutputPricePer1M < 0 {
		return nil, errors.New("prices must not be negative")
	}

	var count int64
	s.db.Model(&models.CatalogEntry{}).Where("model_id = ?", req.ModelID).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("model %s already exists", req.ModelID)
	}

	entry := models.CatalogEntry{
		ModelID:          req.ModelID,
		Provider:         req.Provider,
		DisplayName:      req.DisplayName,
		InputPricePer1M:  req.InputPricePer1M,
		OutputPricePer1M: req.OutputPricePer1M,
		ContextWindow:    req.ContextWindow,
		IsActive:         true,
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update modifies an entry. Only provided fields change.
func (s *CatalogService) Update(modelID string, req *UpdateCatalogEntryRequest) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	if err := s.db.Where("model_id = ?", modelID).First(&entry).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.InputPricePer1M != nil {
		if *req.InputPricePer1M < 0 {
			return nil, errors.New("prices must not be negative")
		}
		updates["input_price_per_1m"] = *req.InputPricePer1M
	}
	if req.OutputPricePer1M != nil {
		if *req.OutputPricePer1M < 0 {
			return nil, errors.New("prices must not be negative")
		}
		updates["output_price_per_1m"] = *req.OutputPricePer1M
	}
	if req.ContextWindow != nil {
		updates["context_window"] = *req.ContextWindow
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&entry).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

// Delete soft-deletes an entry. Ledger rows referencing it survive.
func (s *CatalogService) Delete(modelID string) error {
	result := s.db.Where("model_id = ?", modelID).Delete(&models.CatalogEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
