// Package verification checks that stored MEV findings and arbitrage
// opportunities are reproduced when their swap records are replayed.
package verification

import (
	"slices"

	"solana-mev-lab/internal/domain"
)

// Kind of verified item.
const (
	KindFinding     = "finding"
	KindOpportunity = "opportunity"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name
	Expected any    // stored value
	Actual   any    // replayed value
}

// Result is the verification of one finding or opportunity.
type Result struct {
	Kind        string
	Key         string // signature for findings, ID for opportunities
	Slot        int64
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for a verified slot range.
type Report struct {
	From, To      int64
	Slots         int // slots replayed
	Findings      int // findings seen stored or replayed
	Opportunities int // opportunities seen stored or replayed
	Matched       int
	Divergent     int
	// Results holds divergent items only.
	Results []Result
}

// OK reports whether nothing diverged.
func (r *Report) OK() bool {
	return r.Divergent == 0
}

func (r *Report) add(res Result) {
	if res.Kind == KindFinding {
		r.Findings++
	} else {
		r.Opportunities++
	}
	if res.Match {
		r.Matched++
		return
	}
	r.Divergent++
	r.Results = append(r.Results, res)
}

// CompareFindings compares a stored finding with its replay. Either may
// be nil, in which case the divergence is on presence.
func CompareFindings(stored, replayed *domain.MEVFinding) []FieldDivergence {
	if stored == nil || replayed == nil {
		if stored == nil && replayed == nil {
			return nil
		}
		return []FieldDivergence{{Field: "Present", Expected: stored != nil, Actual: replayed != nil}}
	}

	var divergences []FieldDivergence
	diff := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.ID != replayed.ID {
		diff("ID", stored.ID, replayed.ID)
	}
	if stored.Type != replayed.Type {
		diff("Type", stored.Type, replayed.Type)
	}
	if stored.Confidence != replayed.Confidence {
		diff("Confidence", stored.Confidence, replayed.Confidence)
	}
	if stored.Wallet != replayed.Wallet {
		diff("Wallet", stored.Wallet, replayed.Wallet)
	}
	if sp, rp := patternTypes(stored), patternTypes(replayed); !slices.Equal(sp, rp) {
		diff("Patterns", sp, rp)
	}
	if !slices.Equal(stored.Details.Suspicious, replayed.Details.Suspicious) {
		diff("Suspicious", stored.Details.Suspicious, replayed.Details.Suspicious)
	}
	return divergences
}

// CompareOpportunities compares a stored opportunity with its replay.
// Either may be nil, in which case the divergence is on presence.
func CompareOpportunities(stored, replayed *domain.ArbitrageOpportunity) []FieldDivergence {
	if stored == nil || replayed == nil {
		if stored == nil && replayed == nil {
			return nil
		}
		return []FieldDivergence{{Field: "Present", Expected: stored != nil, Actual: replayed != nil}}
	}

	var divergences []FieldDivergence
	diff := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.Sender != replayed.Sender {
		diff("Sender", stored.Sender, replayed.Sender)
	}
	if stored.Confidence != replayed.Confidence {
		diff("Confidence", stored.Confidence, replayed.Confidence)
	}
	if stored.Score != replayed.Score {
		diff("Score", stored.Score, replayed.Score)
	}
	if stored.AllCriteriaMet != replayed.AllCriteriaMet {
		diff("AllCriteriaMet", stored.AllCriteriaMet, replayed.AllCriteriaMet)
	}
	if !slices.Equal(stored.PlatformsUsed, replayed.PlatformsUsed) {
		diff("PlatformsUsed", stored.PlatformsUsed, replayed.PlatformsUsed)
	}
	if !slices.Equal(stored.RoundTripTokens, replayed.RoundTripTokens) {
		diff("RoundTripTokens", stored.RoundTripTokens, replayed.RoundTripTokens)
	}
	if !slices.Equal(stored.Signatures, replayed.Signatures) {
		diff("Signatures", stored.Signatures, replayed.Signatures)
	}
	return divergences
}

func patternTypes(f *domain.MEVFinding) []domain.MEVType {
	out := make([]domain.MEVType, len(f.Details.Patterns))
	for i, p := range f.Details.Patterns {
		out[i] = p.Type
	}
	return out
}
