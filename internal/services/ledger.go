package services

import (
	"fmt"
	"time"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/pkg/logger"
	"gorm.io/gorm"
)

// LedgerService appends dispatch attempts to the request ledger. Rows are
// write-once; nothing in the router ever updates a ledger row after Append.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Append writes one ledger row. A failed write is logged and swallowed:
// losing one audit row must never fail a request that the provider already
// answered.
func (s *LedgerService) Append(row *models.RequestLog) {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.CompletedAt == nil {
		now := time.Now()
		row.CompletedAt = &now
	}
	if err := s.db.Create(row).Error; err != nil {
		logger.Errorf("[Ledger] append failed for caller %d model %s: %v", row.CallerID, row.Model, err)
	}
}

// CreateGroup records the metadata row for one compare call.
func (s *LedgerService) CreateGroup(group *models.ComparisonGroup) error {
	if err := s.db.Create(group).Error; err != nil {
		return fmt.Errorf("create comparison group: %w", err)
	}
	return nil
}

// GetGroup loads a comparison group with its ledger rows.
func (s *LedgerService) GetGroup(groupID string, callerID uint) (*models.ComparisonGroup, []models.RequestLog, error) {
	var group models.ComparisonGroup
	if err := s.db.Where("id = ? AND caller_id = ?", groupID, callerID).First(&group).Error; err != nil {
		return nil, nil, err
	}
	var rows []models.RequestLog
	if err := s.db.Where("group_id = ?", groupID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	return &group, rows, nil
}

// ListRequests pages through a caller's ledger, newest first.
func (s *LedgerService) ListRequests(callerID uint, page, pageSize int) ([]models.RequestLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&models.RequestLog{}).Where("caller_id = ?", callerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.RequestLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

// PurgeBefore deletes ledger rows older than the cutoff and returns the
// number removed. Used by the retention job.
func (s *LedgerService) PurgeBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.RequestLog{})
	return result.RowsAffected, result.Error
}
