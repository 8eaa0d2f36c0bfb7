// Package scoring ranks facts against a query context. Score is a pure
// function: identical inputs always produce identical output, and the
// decomposed breakdown is what operators see in the UI's debug view.
package scoring

import (
	"math"
	"time"

	"github.com/memorygraphco/memorygraph/pkg/graph"
)

// Params are the tunable scoring constants. All values are plain constants,
// never derived at runtime, so orderings stay reproducible across calls.
type Params struct {
	// HalfLife controls the recency decay of the base term: a fact's
	// contribution halves every HalfLife of age.
	HalfLife time.Duration

	// IntentBonus is the fixed increment for a query/fact intent match.
	IntentBonus float64

	// AssocBonusPerTag is the increment per tag shared with facts already
	// surfaced in the conversation, up to AssocBonusCap.
	AssocBonusPerTag float64
	AssocBonusCap    float64

	// PinnedFloor is added to a pinned fact's base. It must exceed the
	// maximum achievable unpinned total (1 + IntentBonus + AssocBonusCap)
	// so pinned facts always rank first without a separate sort key.
	PinnedFloor float64

	// SurfacedPenalty multiplies the base of facts already surfaced in the
	// current conversation, suppressing verbatim repetition.
	SurfacedPenalty float64
}

// DefaultParams returns the stock scoring constants.
func DefaultParams() Params {
	return Params{
		HalfLife:         7 * 24 * time.Hour,
		IntentBonus:      0.5,
		AssocBonusPerTag: 0.25,
		AssocBonusCap:    0.5,
		PinnedFloor:      10.0,
		SurfacedPenalty:  0.4,
	}
}

// Query is the retrieval context a fact is scored against.
type Query struct {
	NPCID    string
	PlayerID string
	Scene    string
	Intent   graph.Intent
}

// ConversationContext carries what the active conversation has already
// surfaced. Zero value means "no conversation": no penalties, no priming.
type ConversationContext struct {
	// SurfacedIDs are fact ids already returned in this conversation.
	SurfacedIDs map[string]struct{}

	// SurfacedTags is the union of tags across surfaced facts, used for
	// associative priming.
	SurfacedTags map[string]struct{}
}

// Breakdown decomposes a fact's score.
type Breakdown struct {
	Base        float64 `json:"base"`
	IntentBonus float64 `json:"intent_bonus"`
	AssocBonus  float64 `json:"assoc_bonus"`
	Total       float64 `json:"total"`
}

// Score computes the ranking score for one fact. Pure and side-effect free.
func (p Params) Score(fact graph.Fact, query Query, conv ConversationContext, now time.Time) Breakdown {
	base := fact.Weight * p.decay(now.Sub(fact.CreatedAt))

	if _, surfaced := conv.SurfacedIDs[fact.ID]; surfaced {
		base *= p.SurfacedPenalty
	}

	if fact.Pinned {
		base += p.PinnedFloor
	}

	var intentBonus float64
	if query.Intent != graph.IntentNone && fact.Intent == query.Intent {
		intentBonus = p.IntentBonus
	}

	var assocBonus float64
	if len(conv.SurfacedTags) > 0 {
		for _, tag := range fact.Tags {
			if _, ok := conv.SurfacedTags[tag]; ok {
				assocBonus += p.AssocBonusPerTag
			}
		}
		assocBonus = math.Min(assocBonus, p.AssocBonusCap)
	}

	return Breakdown{
		Base:        base,
		IntentBonus: intentBonus,
		AssocBonus:  assocBonus,
		Total:       base + intentBonus + assocBonus,
	}
}

// decay returns the recency multiplier in (0, 1], halving every HalfLife.
// Future timestamps clamp to 1 so clock skew never inflates a score.
func (p Params) decay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(p.HalfLife))
}
