// Package arbitrage groups swap records by wallet and grades repeated
// multi-venue and round-trip trading as arbitrage.
package arbitrage

import (
	"sort"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/idhash"
)

// walletGroup is the per-wallet accumulator. Each fold step returns a new value.
type walletGroup struct {
	sender     string
	slot       int64
	records    int
	venues     map[string]struct{}
	buys       map[string]int
	sells      map[string]int
	signatures []string
}

func (g walletGroup) add(r domain.SwapRecord) walletGroup {
	next := walletGroup{
		sender:     g.sender,
		slot:       g.slot,
		records:    g.records + 1,
		venues:     make(map[string]struct{}, len(g.venues)+len(r.Platforms)),
		buys:       make(map[string]int, len(g.buys)+len(r.TokensOut)),
		sells:      make(map[string]int, len(g.sells)+len(r.TokensIn)),
		signatures: append(append(make([]string, 0, len(g.signatures)+1), g.signatures...), r.Signature),
	}
	if g.records == 0 || r.Slot < g.slot {
		next.slot = r.Slot
	}
	for v := range g.venues {
		next.venues[v] = struct{}{}
	}
	for m, n := range g.buys {
		next.buys[m] = n
	}
	for m, n := range g.sells {
		next.sells[m] = n
	}

	for _, p := range r.Platforms {
		next.venues[p] = struct{}{}
	}
	for _, out := range r.TokensOut {
		next.buys[out.Mint]++
	}
	for _, in := range r.TokensIn {
		next.sells[in.Mint]++
	}
	return next
}

// Group folds records into per-wallet arbitrage opportunities under the given
// profile. Records that were not detected as swaps or have no initiator are
// ignored. Wallets without multi-venue or round-trip evidence are not reported.
//
// Group is a pure function of its input: the same records and profile always
// yield the same opportunities in the same order.
func Group(records []domain.SwapRecord, p Profile) []domain.ArbitrageOpportunity {
	groups := make(map[string]walletGroup)
	var order []string

	for _, r := range records {
		if !r.SwapDetected || r.InitiatorWallet == "" {
			continue
		}
		g, ok := groups[r.InitiatorWallet]
		if !ok {
			g = walletGroup{sender: r.InitiatorWallet}
			order = append(order, r.InitiatorWallet)
		}
		groups[r.InitiatorWallet] = g.add(r)
	}

	var opps []domain.ArbitrageOpportunity
	for _, sender := range order {
		g := groups[sender]
		if g.records < p.MinGroupSize {
			continue
		}
		if opp, ok := classify(g, p); ok {
			opps = append(opps, opp)
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		if a.TransactionCount != b.TransactionCount {
			return a.TransactionCount > b.TransactionCount
		}
		return a.Sender < b.Sender
	})
	return opps
}

func classify(g walletGroup, p Profile) (domain.ArbitrageOpportunity, bool) {
	platforms := make([]string, 0, len(g.venues))
	for v := range g.venues {
		platforms = append(platforms, v)
	}
	sort.Strings(platforms)

	var roundTrips []domain.RoundTripToken
	for mint, buys := range g.buys {
		sells := g.sells[mint]
		if buys >= p.MinBuys && sells >= p.MinSells && buys > 0 && sells > 0 {
			roundTrips = append(roundTrips, domain.RoundTripToken{Mint: mint, BuyCount: buys, SellCount: sells})
		}
	}
	sort.Slice(roundTrips, func(i, j int) bool { return roundTrips[i].Mint < roundTrips[j].Mint })

	multi := len(platforms) >= p.MinVenues
	roundTrip := len(roundTrips) >= p.MinRoundTripTokens && len(roundTrips) > 0
	if !multi && !roundTrip {
		return domain.ArbitrageOpportunity{}, false
	}

	opp := domain.ArbitrageOpportunity{
		Sender:            g.sender,
		Slot:              g.slot,
		Profile:           p.Name,
		TransactionCount:  g.records,
		PlatformsUsed:     platforms,
		UsedMultipleDexes: multi,
		RoundTripTokens:   roundTrips,
		HasRoundTrip:      roundTrip,
		Signatures:        g.signatures,
	}
	opp.ID = idhash.ComputeOpportunityID(opp.Sender, opp.Slot, opp.Profile, opp.Signatures)

	switch {
	case g.records >= p.PerfectMinTransactions && multi && roundTrip:
		opp.AllCriteriaMet = true
		opp.Confidence = domain.ArbitragePerfect
		bonus := g.records - p.PerfectMinTransactions
		if bonus > p.MaxPerfectBonus {
			bonus = p.MaxPerfectBonus
		}
		opp.Score = p.PerfectScore + bonus
	case multi:
		opp.Confidence = domain.ArbitrageHigh
		opp.Score = p.HighScore
	default:
		opp.Confidence = domain.ArbitrageMedium
		opp.Score = p.MediumScore
	}
	return opp, true
}

// Summary aggregates a grouping result.
func Summary(opps []domain.ArbitrageOpportunity) domain.ArbitrageSummary {
	s := domain.ArbitrageSummary{
		TotalOpportunities: len(opps),
		UniqueArbitragers:  len(opps),
	}
	for _, o := range opps {
		if o.AllCriteriaMet {
			s.AnyAllCriteriaMet = true
			s.PerfectArbitrageCount++
		}
		if o.Confidence == domain.ArbitrageHigh {
			s.HighConfidenceCount++
		}
		if o.UsedMultipleDexes {
			s.MultiDexUsageCount++
		}
		if o.HasRoundTrip {
			s.RoundTripTradingCount++
		}
	}
	return s
}

// PerfectWallets returns the senders graded PERFECT under p.
func PerfectWallets(records []domain.SwapRecord, p Profile) map[string]domain.ArbitrageOpportunity {
	out := make(map[string]domain.ArbitrageOpportunity)
	for _, o := range Group(records, p) {
		if o.Confidence == domain.ArbitragePerfect {
			out[o.Sender] = o
		}
	}
	return out
}
