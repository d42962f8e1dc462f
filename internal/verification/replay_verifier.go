package verification

import (
	"context"
	"maps"
	"slices"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/replay"
	"solana-mev-lab/internal/storage"
)

// ReplayVerifier replays stored swap records and compares the outcome
// with the stored findings and opportunities of the same slots.
type ReplayVerifier struct {
	runner    *replay.Runner
	findings  storage.MEVFindingStore
	arbitrage storage.ArbitrageStore
}

// NewReplayVerifier creates a verifier. Opportunities are only comparable
// when runner uses the profile they were stored with; stored opportunities
// of other profiles are ignored.
func NewReplayVerifier(runner *replay.Runner, findings storage.MEVFindingStore, arbitrage storage.ArbitrageStore) *ReplayVerifier {
	return &ReplayVerifier{runner: runner, findings: findings, arbitrage: arbitrage}
}

// VerifyRange verifies every slot in [from, to] that has stored records.
func (v *ReplayVerifier) VerifyRange(ctx context.Context, from, to int64) (*Report, error) {
	report := &Report{From: from, To: to}
	err := v.runner.Run(ctx, from, to, engine(func(ctx context.Context, res *replay.SlotResult) error {
		report.Slots++
		return v.verifySlot(ctx, report, res)
	}))
	if err != nil {
		return nil, err
	}
	return report, nil
}

type engine func(ctx context.Context, res *replay.SlotResult) error

func (f engine) OnSlot(ctx context.Context, res *replay.SlotResult) error { return f(ctx, res) }

func (v *ReplayVerifier) verifySlot(ctx context.Context, report *Report, res *replay.SlotResult) error {
	stored, err := v.findings.GetBySlotRange(ctx, res.Slot, res.Slot)
	if err != nil {
		return err
	}
	storedBySig := make(map[string]*domain.MEVFinding, len(stored))
	for _, f := range stored {
		storedBySig[f.Signature] = f
	}
	for _, rec := range res.Records {
		divs := CompareFindings(storedBySig[rec.Signature], rec.MEV)
		delete(storedBySig, rec.Signature)
		if rec.MEV == nil && len(divs) == 0 {
			continue
		}
		report.add(Result{Kind: KindFinding, Key: rec.Signature, Slot: res.Slot, Match: len(divs) == 0, Divergences: divs})
	}
	// Stored findings without a stored swap record.
	for _, sig := range slices.Sorted(maps.Keys(storedBySig)) {
		report.add(Result{Kind: KindFinding, Key: sig, Slot: res.Slot, Divergences: CompareFindings(storedBySig[sig], nil)})
	}

	opps, err := v.arbitrage.GetBySlotRange(ctx, res.Slot, res.Slot)
	if err != nil {
		return err
	}
	profile := v.runner.Profile().Name
	storedByID := make(map[string]*domain.ArbitrageOpportunity, len(opps))
	for _, o := range opps {
		if o.Profile == profile {
			storedByID[o.ID] = o
		}
	}
	for i := range res.Opportunities {
		o := &res.Opportunities[i]
		divs := CompareOpportunities(storedByID[o.ID], o)
		delete(storedByID, o.ID)
		report.add(Result{Kind: KindOpportunity, Key: o.ID, Slot: res.Slot, Match: len(divs) == 0, Divergences: divs})
	}
	for _, id := range slices.Sorted(maps.Keys(storedByID)) {
		report.add(Result{Kind: KindOpportunity, Key: id, Slot: res.Slot, Divergences: CompareOpportunities(storedByID[id], nil)})
	}
	return nil
}
