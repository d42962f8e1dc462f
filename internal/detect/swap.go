package detect

import (
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/registry"
)

// Complexity thresholds.
const (
	mediumComplexityInnerInstructions = 10
)

// Detector turns transactions into swap records. It holds no mutable state
// and may be shared across goroutines.
type Detector struct {
	reg *registry.Registry
}

// NewDetector creates a detector over the given registry.
func NewDetector(reg *registry.Registry) *Detector {
	return &Detector{reg: reg}
}

// Registry returns the registry the detector consults.
func (d *Detector) Registry() *registry.Registry {
	return d.reg
}

// Detect classifies one transaction.
//
// A balance-based candidate is required. The swap is definite when a known
// venue was touched or a relevant token op is present, and probable when no
// known venue was touched. Infrastructure programs are never venue evidence.
//
// Detect returns (nil, nil) when the transaction is not a swap and
// ErrMissingData when metadata or balance snapshots are absent.
func (d *Detector) Detect(tx *domain.Transaction) (*domain.SwapRecord, error) {
	if tx == nil || tx.Meta == nil {
		return nil, ErrMissingData
	}

	cand, err := FindCandidate(tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances)
	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, nil
	}

	tp := ReconstructPath(tx, d.reg)

	var matched []string
	for _, pid := range tp.Programs {
		if d.reg.IsVenue(pid) {
			matched = append(matched, pid)
		}
	}
	knownVenue := len(matched) > 0

	relevantOp := false
	for _, ix := range tx.AllInstructions() {
		if IsRelevantTokenOp(tx, ix, d.reg) {
			relevantOp = true
			break
		}
	}

	definite := knownVenue || relevantOp
	probable := !knownVenue

	rec := &domain.SwapRecord{
		Signature:          tx.Signature,
		Slot:               tx.Slot,
		TxIndex:            tx.TxIndex,
		BlockTime:          tx.BlockTime,
		Owner:              cand.Owner,
		InitiatorWallet:    tx.FeePayer(),
		TokensIn:           cand.TokensIn,
		TokensOut:          cand.TokensOut,
		Platforms:          tp.Venues,
		TradePath:          tp.Path,
		SwapDetected:       definite || probable,
		MatchedProgramIDs:  matched,
		HasRelevantTokenOp: relevantOp,
		GainCount:          cand.GainCount,
		LossCount:          cand.LossCount,
		UniqueMints:        cand.UniqueMints,
		Success:            tx.Succeeded(),
		Fee:                tx.Meta.Fee,
		ComputeUnits:       tx.Meta.ComputeUnitsConsumed,
		OuterInstructions:  len(tx.Message.Instructions),
		InnerInstructions:  tx.InnerInstructionCount(),
		StablePnL:          d.stablePnL(cand),
	}
	if rec.InitiatorWallet == "" {
		rec.InitiatorWallet = cand.Owner
	}

	if definite {
		rec.Confidence = domain.SwapDefinite
	} else {
		rec.Confidence = domain.SwapProbable
	}
	if probable {
		rec.UnknownPrograms = tp.Programs
	}
	rec.Complexity = classifyComplexity(len(tp.Venues), rec.InnerInstructions)

	return rec, nil
}

// stablePnL sums the owner's stable-coin changes, rounded to 6 decimals.
// It returns nil when the owner has no stable-coin delta.
func (d *Detector) stablePnL(c *Candidate) *decimal.Decimal {
	total := decimal.Zero
	found := false
	for _, delta := range c.Deltas {
		if !d.reg.IsStable(delta.Mint) {
			continue
		}
		total = total.Add(delta.Change)
		found = true
	}
	if !found {
		return nil
	}
	pnl := total.Round(6)
	return &pnl
}

func classifyComplexity(venues, inner int) domain.Complexity {
	switch {
	case venues > 1:
		return domain.ComplexityHigh
	case inner > mediumComplexityInnerInstructions:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}
