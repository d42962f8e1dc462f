package replay

import (
	"context"

	"solana-mev-lab/internal/domain"
)

// SlotResult is the re-analysis of one slot's stored swap records.
type SlotResult struct {
	Slot int64
	// Records are ordered by TxIndex. MEV is set when classification ran.
	Records       []domain.SwapRecord
	Opportunities []domain.ArbitrageOpportunity
	// OrderingErr is set when classification was skipped for the slot.
	OrderingErr error
}

// Findings returns the findings attached to the slot's records.
func (r *SlotResult) Findings() []domain.MEVFinding {
	var out []domain.MEVFinding
	for _, rec := range r.Records {
		if rec.MEV != nil {
			out = append(out, *rec.MEV)
		}
	}
	return out
}

// Engine receives slot results in ascending slot order.
type Engine interface {
	OnSlot(ctx context.Context, res *SlotResult) error
}

// Collector is an Engine that keeps every result.
type Collector struct {
	Results []*SlotResult
}

// OnSlot appends res.
func (c *Collector) OnSlot(_ context.Context, res *SlotResult) error {
	c.Results = append(c.Results, res)
	return nil
}

// Findings returns every collected finding in slot order.
func (c *Collector) Findings() []domain.MEVFinding {
	var out []domain.MEVFinding
	for _, r := range c.Results {
		out = append(out, r.Findings()...)
	}
	return out
}

// Opportunities returns every collected opportunity in slot order.
func (c *Collector) Opportunities() []domain.ArbitrageOpportunity {
	var out []domain.ArbitrageOpportunity
	for _, r := range c.Results {
		out = append(out, r.Opportunities...)
	}
	return out
}
