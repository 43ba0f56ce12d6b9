package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/llmrouter/internal/models"
	"gorm.io/gorm"
)

// CallerService manages API key holders.
type CallerService struct {
	db *gorm.DB
}

func NewCallerService(db *gorm.DB) *CallerService {
	return &CallerService{db: db}
}

type CreateCallerRequest struct {
	Name             string   `json:"name" binding:"required"`
	SpendingLimitUSD *float64 `json:"spending_limit_usd"`
}

// CreateCallerResponse carries the plaintext API key. It is shown exactly
// once, at creation.
type CreateCallerResponse struct {
	Caller *models.Caller `json:"caller"`
	APIKey string         `json:"api_key"`
}

// Create mints a new caller with a fresh API key.
func (s *CallerService) Create(req *CreateCallerRequest) (*CreateCallerResponse, error) {
	if req.SpendingLimitUSD != nil && *req.SpendingLimitUSD < 0 {
		return nil, errors.New("spending limit must not be negative")
	}

	apiKey := NewAPIKey()
	caller := models.Caller{
		Name:             req.Name,
		APIKey:           apiKey,
		SpendingLimitUSD: req.SpendingLimitUSD,
		IsActive:         true,
	}
	if err := s.db.Create(&caller).Error; err != nil {
		return nil, err
	}
	return &CreateCallerResponse{Caller: &caller, APIKey: apiKey}, nil
}

// NewAPIKey mints a caller API key: two UUIDs with the dashes stripped,
// prefixed for greppability in logs and configs.
func NewAPIKey() string {
	raw := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	return "lr-" + raw
}

// List returns all callers.
func (s *CallerService) List() ([]models.Caller, error) {
	var callers []models.Caller
	if err := s.db.Order("id ASC").Find(&callers).Error; err != nil {
		return nil, err
	}
	return callers, nil
}

// Get returns one caller by id.
func (s *CallerService) Get(id uint) (*models.Caller, error) {
	var caller models.Caller
	if err := s.db.First(&caller, id).Error; err != nil {
		return nil, err
	}
	return &caller, nil
}

// SetActive enables or disables a caller. Disabled callers fail API key
// auth; their history stays.
func (s *CallerService) SetActive(id uint, active bool) error {
	result := s.db.Model(&models.Caller{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RotateKey replaces a caller's API key and returns the new plaintext key.
func (s *CallerService) RotateKey(id uint) (string, error) {
	apiKey := NewAPIKey()
	result := s.db.Model(&models.Caller{}).Where("id = ?", id).Update("api_key", apiKey)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return apiKey, nil
}

// Delete soft-deletes a caller.
func (s *CallerService) Delete(id uint) error {
	result := s.db.Delete(&models.Caller{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
