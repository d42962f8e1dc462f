package domain

// MEVType names an extractive pattern.
type MEVType string

const (
	MEVSandwich  MEVType = "sandwich"
	MEVFrontrun  MEVType = "frontrun"
	MEVBackrun   MEVType = "backrun"
	MEVArbitrage MEVType = "arbitrage"
	MEVMultiple  MEVType = "multiple"
	MEVKnownBot  MEVType = "known_bot"
)

// String returns the string representation of MEVType.
func (t MEVType) String() string {
	return string(t)
}

// IsValid checks if the type is a valid value.
func (t MEVType) IsValid() bool {
	switch t {
	case MEVSandwich, MEVFrontrun, MEVBackrun, MEVArbitrage, MEVMultiple, MEVKnownBot:
		return true
	}
	return false
}

// PatternMatch is one heuristic that fired for a transaction.
type PatternMatch struct {
	Type              MEVType
	Confidence        int
	Reason            string
	Attacker          string   // wallet believed to extract value
	Victim            string   // wallet believed to lose value, if any
	RelatedSignatures []string // neighbouring transactions involved
	Mints             []string // mints that tied the pattern together
}

// MEVDetails accumulates every matched pattern for a transaction.
type MEVDetails struct {
	Patterns   []PatternMatch
	Suspicious []string // complex_multi_swap, multiple_dex_usage, precise_amounts
}

// MEVFinding is the classification attached to a SwapRecord.
type MEVFinding struct {
	ID         string
	Signature  string
	Slot       int64
	TxIndex    int
	Type       MEVType
	Confidence int // 0..100
	Wallet     string
	Details    MEVDetails
}

// HasPattern reports whether a pattern of the given type was matched.
func (f *MEVFinding) HasPattern(t MEVType) bool {
	for _, p := range f.Details.Patterns {
		if p.Type == t {
			return true
		}
	}
	return false
}
