// Package mev classifies extractive patterns from the in-block ordering
// of swap records.
package mev

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/idhash"
	"solana-mev-lab/internal/registry"
)

// Pattern confidences.
const (
	SandwichConfidence         = 96
	FrontrunConfidence         = 90
	BackrunConfidence          = 92
	InTxArbitrageConfidence    = 70
	CrossTxArbitrageConfidence = 88
	KnownBotConfidence         = 90
	MaxConfidence              = 100
)

// Suspicious-pattern tags and their confidence boosts.
const (
	TagComplexMultiSwap = "complex_multi_swap"
	TagMultipleDexUsage = "multiple_dex_usage"
	TagPreciseAmounts   = "precise_amounts"

	complexMultiSwapBoost = 10
	multipleDexBoost      = 15
	preciseAmountsBoost   = 5
)

// Options gates the positional heuristics.
type Options struct {
	// MaxIndexGap limits front/back-run to neighbours at most this many
	// positions apart. Zero disables the gate.
	MaxIndexGap int
	// RequireRepeatActor limits front/back-run to wallets seen at least
	// twice in the batch.
	RequireRepeatActor bool
}

// Classifier annotates swap records with MEV findings.
type Classifier struct {
	reg  *registry.Registry
	opts Options
}

// NewClassifier creates a classifier.
func NewClassifier(reg *registry.Registry, opts Options) *Classifier {
	return &Classifier{reg: reg, opts: opts}
}

// view caches per-record mint sets.
type view struct {
	rec    domain.SwapRecord
	in     mapset.Set[string]
	out    mapset.Set[string]
	wallet string
}

func newView(r domain.SwapRecord) view {
	return view{
		rec:    r,
		in:     mapset.NewSet[string](r.InMints()...),
		out:    mapset.NewSet[string](r.OutMints()...),
		wallet: r.InitiatorWallet,
	}
}

// Classify returns the records ordered by (slot, txIndex), each annotated
// with at most one finding. When ordering cannot be established the records
// are returned unannotated in input order together with ErrInvalidOrdering.
func (c *Classifier) Classify(records []domain.SwapRecord) ([]domain.SwapRecord, error) {
	if err := ValidateOrdering(records); err != nil {
		out := make([]domain.SwapRecord, len(records))
		copy(out, records)
		return out, err
	}

	sorted := sortByPosition(records)
	views := make([]view, len(sorted))
	occurrences := make(map[string]int)
	for i, r := range sorted {
		views[i] = newView(r)
		if r.InitiatorWallet != "" {
			occurrences[r.InitiatorWallet]++
		}
	}
	perfect := arbitrage.PerfectWallets(sorted, arbitrage.MEVArbitrage)

	out := make([]domain.SwapRecord, len(sorted))
	for i := range views {
		var prev, next *view
		if i > 0 && views[i-1].rec.Slot == views[i].rec.Slot {
			prev = &views[i-1]
		}
		if i+1 < len(views) && views[i+1].rec.Slot == views[i].rec.Slot {
			next = &views[i+1]
		}
		out[i] = sorted[i].WithMEV(c.classifyOne(views[i], prev, next, occurrences, perfect))
	}
	return out, nil
}

func (c *Classifier) classifyOne(
	target view,
	prev, next *view,
	occurrences map[string]int,
	perfect map[string]domain.ArbitrageOpportunity,
) *domain.MEVFinding {
	if !target.rec.SwapDetected {
		return nil
	}

	var patterns []domain.PatternMatch
	knownBot := c.isKnownBot(target.rec)
	if knownBot {
		patterns = append(patterns, domain.PatternMatch{
			Type:       domain.MEVKnownBot,
			Confidence: KnownBotConfidence,
			Reason:     "Known MEV bot address",
			Attacker:   target.wallet,
		})
	}

	if m, ok := inTxArbitrage(target); ok {
		patterns = append(patterns, m)
	}

	if m, ok := c.sandwich(target, prev, next); ok {
		patterns = append(patterns, m)
	} else {
		if m, ok := c.frontrun(target, prev, occurrences); ok {
			patterns = append(patterns, m)
		}
		if m, ok := c.backrun(target, next, occurrences); ok {
			patterns = append(patterns, m)
		}
	}

	if opp, ok := perfect[target.wallet]; ok && target.wallet != "" {
		patterns = append(patterns, domain.PatternMatch{
			Type:              domain.MEVArbitrage,
			Confidence:        CrossTxArbitrageConfidence,
			Reason:            "Repeated round-trip trading across venues",
			Attacker:          target.wallet,
			RelatedSignatures: others(opp.Signatures, target.rec.Signature),
			Mints:             roundTripMints(opp),
		})
	}

	if len(patterns) == 0 {
		return nil
	}

	f := &domain.MEVFinding{
		Signature: target.rec.Signature,
		Slot:      target.rec.Slot,
		TxIndex:   target.rec.TxIndex,
		Details:   domain.MEVDetails{Patterns: patterns},
	}

	best := patterns[0]
	for _, p := range patterns[1:] {
		if p.Confidence > best.Confidence {
			best = p
		}
	}
	f.Confidence = best.Confidence
	f.Wallet = best.Attacker

	switch {
	case knownBot:
		f.Type = domain.MEVKnownBot
		f.Wallet = target.wallet
		if f.Confidence < KnownBotConfidence {
			f.Confidence = KnownBotConfidence
		}
	case len(patterns) == 1 || sameType(patterns):
		f.Type = best.Type
	default:
		f.Type = domain.MEVMultiple
	}

	tags, boost := suspicious(target.rec)
	f.Details.Suspicious = tags
	f.Confidence += boost
	if f.Confidence > MaxConfidence {
		f.Confidence = MaxConfidence
	}

	f.ID = idhash.ComputeFindingID(f.Signature, f.Slot, f.TxIndex, f.Type)
	return f
}

func (c *Classifier) isKnownBot(r domain.SwapRecord) bool {
	if r.InitiatorWallet != "" && c.reg.IsKnownBot(r.InitiatorWallet) {
		return true
	}
	return r.Owner != "" && c.reg.IsKnownBot(r.Owner)
}

// sandwich: the same wallet trades right before and right after the target,
// buying what the target buys with what the target spends, then selling it.
func (c *Classifier) sandwich(target view, prev, next *view) (domain.PatternMatch, bool) {
	if prev == nil || next == nil {
		return domain.PatternMatch{}, false
	}
	if prev.wallet == "" || prev.wallet != next.wallet || prev.wallet == target.wallet {
		return domain.PatternMatch{}, false
	}

	sameBuy := target.out.Intersect(prev.out)
	unwind := target.out.Intersect(next.in)
	sameFunding := target.in.Intersect(prev.in)
	if sameBuy.Cardinality() == 0 || unwind.Cardinality() == 0 || sameFunding.Cardinality() == 0 {
		return domain.PatternMatch{}, false
	}

	return domain.PatternMatch{
		Type:              domain.MEVSandwich,
		Confidence:        SandwichConfidence,
		Reason:            "Sandwich attack pattern detected",
		Attacker:          prev.wallet,
		Victim:            target.wallet,
		RelatedSignatures: []string{prev.rec.Signature, next.rec.Signature},
		Mints:             sortedSlice(sameBuy.Union(sameFunding)),
	}, true
}

// frontrun: a different wallet executed the same trade immediately before.
func (c *Classifier) frontrun(target view, prev *view, occurrences map[string]int) (domain.PatternMatch, bool) {
	if prev == nil || prev.wallet == "" || prev.wallet == target.wallet {
		return domain.PatternMatch{}, false
	}
	if !prev.in.IsSuperset(target.in) || !prev.out.IsSuperset(target.out) {
		return domain.PatternMatch{}, false
	}
	if !c.passesGates(target.rec.TxIndex-prev.rec.TxIndex, occurrences[prev.wallet]) {
		return domain.PatternMatch{}, false
	}

	conf := FrontrunConfidence
	if occurrences[prev.wallet] >= 2 {
		conf++
	}
	return domain.PatternMatch{
		Type:              domain.MEVFrontrun,
		Confidence:        conf,
		Reason:            "Front-running detected - same trade executed first",
		Attacker:          prev.wallet,
		Victim:            target.wallet,
		RelatedSignatures: []string{prev.rec.Signature},
		Mints:             sortedSlice(target.in.Union(target.out)),
	}, true
}

// backrun: a different wallet reversed the target's trade immediately after.
func (c *Classifier) backrun(target view, next *view, occurrences map[string]int) (domain.PatternMatch, bool) {
	if next == nil || next.wallet == "" || next.wallet == target.wallet {
		return domain.PatternMatch{}, false
	}
	if !next.in.IsSuperset(target.out) || !next.out.IsSuperset(target.in) {
		return domain.PatternMatch{}, false
	}
	if !c.passesGates(next.rec.TxIndex-target.rec.TxIndex, occurrences[next.wallet]) {
		return domain.PatternMatch{}, false
	}

	conf := BackrunConfidence
	if occurrences[next.wallet] >= 2 {
		conf++
	}
	if len(next.rec.Platforms) > 1 {
		conf++
	}
	return domain.PatternMatch{
		Type:              domain.MEVBackrun,
		Confidence:        conf,
		Reason:            "Back-running detected - arbitrage after user trade",
		Attacker:          next.wallet,
		Victim:            target.wallet,
		RelatedSignatures: []string{next.rec.Signature},
		Mints:             sortedSlice(target.in.Union(target.out)),
	}, true
}

func (c *Classifier) passesGates(gap, actorCount int) bool {
	if c.opts.MaxIndexGap > 0 && gap > c.opts.MaxIndexGap {
		return false
	}
	if c.opts.RequireRepeatActor && actorCount < 2 {
		return false
	}
	return true
}

// inTxArbitrage: three or more distinct mints moved inside one swap.
func inTxArbitrage(target view) (domain.PatternMatch, bool) {
	all := target.in.Union(target.out)
	if all.Cardinality() < 3 {
		return domain.PatternMatch{}, false
	}
	return domain.PatternMatch{
		Type:       domain.MEVArbitrage,
		Confidence: InTxArbitrageConfidence,
		Reason:     "Multiple token arbitrage detected",
		Attacker:   target.wallet,
		Mints:      sortedSlice(all),
	}, true
}

// suspicious returns the tags that apply to r and the summed boost.
func suspicious(r domain.SwapRecord) ([]string, int) {
	var tags []string
	boost := 0

	if len(r.TokensIn)+len(r.TokensOut) > 4 {
		tags = append(tags, TagComplexMultiSwap)
		boost += complexMultiSwapBoost
	}
	if len(r.Platforms) > 2 {
		tags = append(tags, TagMultipleDexUsage)
		boost += multipleDexBoost
	}
	for _, side := range [][]domain.MintAmount{r.TokensIn, r.TokensOut} {
		if hasPreciseAmount(side) {
			tags = append(tags, TagPreciseAmounts)
			boost += preciseAmountsBoost
			break
		}
	}
	return tags, boost
}

func hasPreciseAmount(amounts []domain.MintAmount) bool {
	for _, a := range amounts {
		s := a.Amount.String()
		if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 6 {
			return true
		}
	}
	return false
}

func sameType(patterns []domain.PatternMatch) bool {
	for _, p := range patterns[1:] {
		if p.Type != patterns[0].Type {
			return false
		}
	}
	return true
}

func others(sigs []string, self string) []string {
	out := make([]string, 0, len(sigs))
	for _, s := range sigs {
		if s != self {
			out = append(out, s)
		}
	}
	return out
}

func roundTripMints(o domain.ArbitrageOpportunity) []string {
	out := make([]string, len(o.RoundTripTokens))
	for i, rt := range o.RoundTripTokens {
		out[i] = rt.Mint
	}
	return out
}
