package services

import (
	"fmt"
	"sort"

	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/logger"
	"gorm.io/gorm"
)

// CostEstimator is the estimation capability the ranker and router consume.
type CostEstimator interface {
	Estimate(messages []providers.Message, entry *models.CatalogEntry, expectedOutputTokens int) (*CostEstimate, error)
}

// RankedCandidate pairs a catalog entry with its cost projection for the
// request being ranked.
type RankedCandidate struct {
	Entry    models.CatalogEntry `json:"entry"`
	Estimate *CostEstimate       `json:"estimate"`
}

// RankConstraints narrow the candidate set before ranking.
type RankConstraints struct {
	// Providers, when non-empty, keeps only entries from these providers.
	Providers []string
	// MaxCostUSD, when set, drops candidates whose projected cost exceeds it.
	MaxCostUSD *float64
	// ExpectedOutputTokens feeds the per-candidate estimate.
	ExpectedOutputTokens int
}

// Ranker orders active catalog entries by projected cost, cheapest first.
type Ranker struct {
	db        *gorm.DB
	estimator CostEstimator
}

func NewRanker(db *gorm.DB, estimator CostEstimator) *Ranker {
	return &Ranker{db: db, estimator: estimator}
}

// Rank returns the eligible candidates sorted by ascending projected total
// cost. Ties keep catalog insertion order. Entries whose estimate fails
// (for example missing pricing) are skipped, not fatal.
func (r *Ranker) Rank(messages []providers.Message, constraints RankConstraints) ([]RankedCandidate, error) {
	query := r.db.Where("is_active = ?", true).Order("id ASC")
	if len(constraints.Providers) > 0 {
		query = query.Where("provider IN ?", constraints.Providers)
	}

	var entries []models.CatalogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	candidates := make([]RankedCandidate, 0, len(entries))
	for _, entry := range entries {
		estimate, err := r.estimator.Estimate(messages, &entry, constraints.ExpectedOutputTokens)
		if err != nil {
			logger.Warnf("[Ranker] skipping %s: %v", entry.ModelID, err)
			continue
		}
		if constraints.MaxCostUSD != nil && estimate.TotalCostUSD > *constraints.MaxCostUSD {
			continue
		}
		candidates = append(candidates, RankedCandidate{Entry: entry, Estimate: estimate})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Estimate.TotalCostUSD < candidates[j].Estimate.TotalCostUSD
	})
	return candidates, nil
}
