package services

import (
	"time"

	"github.com/huangang/llmrouter/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CleanupService prunes old ledger rows on a nightly schedule.
type CleanupService struct {
	ledger        *LedgerService
	retentionDays int
	cron          *cron.Cron
}

func NewCleanupService(ledger *LedgerService, retentionDays int) *CleanupService {
	return &CleanupService{
		ledger:        ledger,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start schedules the nightly purge. Retention of zero disables it.
func (s *CleanupService) Start() error {
	if s.retentionDays <= 0 {
		logger.Infof("[Cleanup] ledger retention disabled")
		return nil
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.run); err != nil {
		return err
	}
	s.cron.Start()
	logger.Infof("[Cleanup] ledger retention job scheduled, keeping %d days", s.retentionDays)
	return nil
}

// Stop halts the scheduler.
func (s *CleanupService) Stop() {
	s.cron.Stop()
}

func (s *CleanupService) run() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	removed, err := s.ledger.PurgeBefore(cutoff)
	if err != nil {
		logger.Errorf("[Cleanup] ledger purge failed: %v", err)
		return
	}
	logger.Infof("[Cleanup] removed %d ledger rows older than %s", removed, cutoff.Format("2006-01-02"))
}
