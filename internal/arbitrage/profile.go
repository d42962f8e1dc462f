package arbitrage

import (
	"fmt"
	"strings"
)

// Profile holds the thresholds of one grouping variant.
type Profile struct {
	Name string

	MinGroupSize       int // records per wallet
	MinVenues          int // distinct venues for UsedMultipleDexes
	MinRoundTripTokens int
	MinBuys            int // per round-trip token
	MinSells           int // per round-trip token

	PerfectMinTransactions int

	PerfectScore int
	HighScore    int
	MediumScore  int
	// MaxPerfectBonus adds one point per transaction beyond
	// PerfectMinTransactions to PerfectScore, up to this many.
	MaxPerfectBonus int
}

// Permissive accepts any repeated multi-venue or round-trip activity.
// A third transaction is required for PERFECT so that a plain
// buy-then-sell pair across two venues stays HIGH.
var Permissive = Profile{
	Name:                   "permissive",
	MinGroupSize:           2,
	MinVenues:              2,
	MinRoundTripTokens:     1,
	MinBuys:                1,
	MinSells:               1,
	PerfectMinTransactions: 3,
	PerfectScore:           90,
	HighScore:              75,
	MediumScore:            60,
}

// Strict is the high-confidence operating point.
var Strict = Profile{
	Name:                   "strict",
	MinGroupSize:           2,
	MinVenues:              3,
	MinRoundTripTokens:     2,
	MinBuys:                2,
	MinSells:               2,
	PerfectMinTransactions: 4,
	PerfectScore:           95,
	HighScore:              80,
	MediumScore:            65,
	MaxPerfectBonus:        4,
}

// MEVArbitrage is used by the MEV classifier to flag position-independent
// arbitrage: three or more swaps over three or more venues with round-trip trading.
var MEVArbitrage = Profile{
	Name:                   "mev",
	MinGroupSize:           3,
	MinVenues:              3,
	MinRoundTripTokens:     1,
	MinBuys:                1,
	MinSells:               1,
	PerfectMinTransactions: 3,
	PerfectScore:           88,
	HighScore:              70,
	MediumScore:            55,
}

// ProfileByName resolves a profile from configuration.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Permissive.Name:
		return Permissive, nil
	case Strict.Name:
		return Strict, nil
	case MEVArbitrage.Name:
		return MEVArbitrage, nil
	default:
		return Profile{}, fmt.Errorf("unknown arbitrage profile %q", name)
	}
}
