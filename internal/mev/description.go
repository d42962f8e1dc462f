package mev

import "solana-mev-lab/internal/domain"

var descriptions = map[domain.MEVType]string{
	domain.MEVKnownBot:  "Transaction from known MEV bot address",
	domain.MEVArbitrage: "Arbitrage - profiting from price differences across markets",
	domain.MEVSandwich:  "Sandwich attack - manipulating price around user transaction",
	domain.MEVFrontrun:  "Front-running - copying user trade with higher priority",
	domain.MEVBackrun:   "Back-running - following user trade to extract arbitrage",
	domain.MEVMultiple:  "Multiple MEV strategies detected",
}

// Description returns a human-readable description of an MEV type.
func Description(t domain.MEVType) string {
	if d, ok := descriptions[t]; ok {
		return d
	}
	return "Unknown MEV type"
}
