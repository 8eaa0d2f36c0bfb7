// Package feedback applies bounded online weight updates from explicit
// player/designer reward signals. It is the only mutator of a fact's weight
// after creation.
package feedback

import (
	"context"

	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// DefaultLearningRate is the stock α for the exponential moving adjustment.
const DefaultLearningRate = 0.1

// Result reports a weight transition so callers can render old → new.
type Result struct {
	FactID    string  `json:"fact_id"`
	OldWeight float64 `json:"old_weight"`
	NewWeight float64 `json:"weight"`
}

// Adapter mutates fact weights through the store.
type Adapter struct {
	store storage.Driver
	alpha float64
}

// NewAdapter creates a feedback adapter. A learning rate outside (0, 1)
// falls back to the default.
func NewAdapter(store storage.Driver, alpha float64) *Adapter {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultLearningRate
	}
	return &Adapter{store: store, alpha: alpha}
}

// Apply adjusts the fact's weight for a ±1 reward:
//
//	w' = w + α(1−w)  for reward +1
//	w' = w − αw      for reward −1
//
// The update exhibits diminishing returns and keeps the weight strictly
// inside (0, 1) for any starting weight in (0, 1).
//
// The read-modify-write runs inside the store's atomic weight update, so
// concurrent rewards on the same fact all land.
func (a *Adapter) Apply(ctx context.Context, factID string, reward int) (Result, error) {
	if reward != 1 && reward != -1 {
		return Result{}, storage.ValidationError{Field: "reward", Reason: "must be +1 or -1"}
	}

	old, updated, err := a.store.UpdateWeight(ctx, factID, func(w float64) float64 {
		if reward > 0 {
			return w + a.alpha*(1-w)
		}
		return w - a.alpha*w
	})
	if err != nil {
		return Result{}, err
	}

	return Result{FactID: factID, OldWeight: old, NewWeight: updated}, nil
}
