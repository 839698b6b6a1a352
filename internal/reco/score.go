package reco

import (
	"papeterie/internal/config"
)

// Scorer computes the recommendation score from margin and stock. The
// margin half falls back to an assumed default ratio when margin data is
// missing; the stock half applies a strong penalty for zero or unknown
// stock.
type Scorer struct {
	DefaultMarginRatio float64
	OutOfStockPenalty  float64
}

func NewScorer(cfg config.Config) Scorer {
	return Scorer{
		DefaultMarginRatio: cfg.DefaultMarginRatio,
		OutOfStockPenalty:  cfg.OutOfStockPenalty,
	}
}

// Score is pure and bounded to [0,1]:
// 0.5*clamp(margin/100, 0, 1) + 0.5*stockFactor.
func (s Scorer) Score(marginPercent *float64, stockQuantity *int) float64 {
	marginRatio := s.DefaultMarginRatio
	if marginPercent != nil {
		marginRatio = *marginPercent / 100
	}
	marginRatio = clamp01(marginRatio)

	stockFactor := s.OutOfStockPenalty
	if stockQuantity != nil && *stockQuantity > 0 {
		stockFactor = 1
	}

	return 0.5*marginRatio + 0.5*stockFactor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
