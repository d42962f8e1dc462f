// Package replay re-runs arbitrage grouping and MEV classification over
// stored swap records without touching the RPC.
package replay

import (
	"context"
	"errors"
	"fmt"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/registry"
	"solana-mev-lab/internal/storage"
)

// ErrInvalidRange is returned when from > to.
var ErrInvalidRange = errors.New("invalid slot range")

// Runner loads swap records from storage and replays them slot by slot.
type Runner struct {
	swaps      storage.SwapRecordStore
	classifier *mev.Classifier
	profile    arbitrage.Profile
}

// NewRunner creates a replay runner. A zero profile means permissive.
func NewRunner(swaps storage.SwapRecordStore, reg *registry.Registry, profile arbitrage.Profile, opts mev.Options) *Runner {
	if profile.Name == "" {
		profile = arbitrage.Permissive
	}
	return &Runner{
		swaps:      swaps,
		classifier: mev.NewClassifier(reg, opts),
		profile:    profile,
	}
}

// Profile returns the arbitrage profile used for grouping.
func (r *Runner) Profile() arbitrage.Profile {
	return r.profile
}

// Run replays the records in [from, to] through engine, one slot at a
// time in ascending order. Slots without stored records are not visited.
func (r *Runner) Run(ctx context.Context, from, to int64, engine Engine) error {
	if from > to {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	records, err := r.swaps.GetBySlotRange(ctx, from, to)
	if err != nil {
		return err
	}

	for _, batch := range GroupBySlot(records) {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := &SlotResult{
			Slot:          batch[0].Slot,
			Opportunities: arbitrage.Group(batch, r.profile),
		}
		res.Records, res.OrderingErr = r.classifier.Classify(batch)
		if err := engine.OnSlot(ctx, res); err != nil {
			return err
		}
	}
	return nil
}
