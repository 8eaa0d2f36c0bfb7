package config

import (
	"time"

	"github.com/memorygraphco/memorygraph/pkg/retrieval"
	"github.com/memorygraphco/memorygraph/pkg/scoring"
)

// NewDefaultConfig returns a fully-populated Config with the stock values.
func NewDefaultConfig() *Config {
	params := scoring.DefaultParams()
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: ":8000",
		},
		Retrieval: RetrievalConfig{
			TopK: retrieval.DefaultTopK,
		},
		Scoring: ScoringConfig{
			HalfLifeHours:    params.HalfLife.Hours(),
			IntentBonus:      params.IntentBonus,
			AssocBonusPerTag: params.AssocBonusPerTag,
			AssocBonusCap:    params.AssocBonusCap,
			SurfacedPenalty:  params.SurfacedPenalty,
		},
		Feedback: FeedbackConfig{
			LearningRate: 0.1,
		},
	}
}

// ScoringParams converts the scoring section into engine parameters.
// Zero-value fields fall back to the engine defaults; PinnedFloor is not
// configurable because lowering it would break the pinned-first guarantee.
func (c *Config) ScoringParams() scoring.Params {
	params := scoring.DefaultParams()

	if c.Scoring.HalfLifeHours > 0 {
		params.HalfLife = time.Duration(c.Scoring.HalfLifeHours * float64(time.Hour))
	}
	if c.Scoring.IntentBonus > 0 {
		params.IntentBonus = c.Scoring.IntentBonus
	}
	if c.Scoring.AssocBonusPerTag > 0 {
		params.AssocBonusPerTag = c.Scoring.AssocBonusPerTag
	}
	if c.Scoring.AssocBonusCap > 0 {
		params.AssocBonusCap = c.Scoring.AssocBonusCap
	}
	if c.Scoring.SurfacedPenalty > 0 {
		params.SurfacedPenalty = c.Scoring.SurfacedPenalty
	}

	return params
}
