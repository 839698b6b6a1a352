package copilot

import (
	"papeterie/internal"
	"papeterie/internal/config"
)

// Classifier buckets a match confidence into its display band. Bands are
// purely presentational and never feed back into MatchStatus.
type Classifier struct {
	Sure   float64
	Medium float64
}

func NewClassifier(cfg config.Config) Classifier {
	return Classifier{Sure: cfg.ConfidenceSure, Medium: cfg.ConfidenceMedium}
}

// Classify is total over [0,1] with a closed lower bound on each band.
func (c Classifier) Classify(confidence float64) internal.ConfidenceBand {
	switch {
	case confidence >= c.Sure:
		return internal.BandSure
	case confidence >= c.Medium:
		return internal.BandMedium
	default:
		return internal.BandUncertain
	}
}

// BandFor returns the badge for a match, or nil when the match carries no
// candidate at all (an unmatched line renders its status icon without a
// confidence badge).
func (c Classifier) BandFor(match internal.SchoolListMatch) *internal.ConfidenceBand {
	if len(match.Candidates) == 0 {
		return nil
	}
	band := c.Classify(match.Confidence)
	return &band
}
