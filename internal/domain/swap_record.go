package domain

import "github.com/shopspring/decimal"

// SwapConfidence separates program-corroborated swaps from balance-only ones.
type SwapConfidence string

const (
	SwapDefinite SwapConfidence = "definite"
	SwapProbable SwapConfidence = "probable"
)

// String returns the string representation of SwapConfidence.
func (c SwapConfidence) String() string {
	return string(c)
}

// IsValid checks if the confidence is a valid value.
func (c SwapConfidence) IsValid() bool {
	return c == SwapDefinite || c == SwapProbable
}

// Complexity is a coarse label for how involved a transaction is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// TokenDelta is the balance change of one (account, mint) pair inside a transaction.
type TokenDelta struct {
	AccountIndex int
	Mint         string
	Owner        string
	Pre          decimal.Decimal
	Post         decimal.Decimal
	Change       decimal.Decimal
}

// MintAmount is an absolute, non-dust amount of a mint.
type MintAmount struct {
	Mint   string
	Amount decimal.Decimal
}

// SwapRecord is the normalized result for one transaction that behaves like a swap.
// Records are immutable once produced; use WithMEV to annotate.
type SwapRecord struct {
	Signature       string
	Slot            int64
	TxIndex         int
	BlockTime       *int64
	InitiatorWallet string // fee payer, falls back to Owner
	Owner           string // balance owner that qualified the swap

	TokensIn  []MintAmount // mints the owner gave up
	TokensOut []MintAmount // mints the owner received

	Platforms    []string // venues touched, in first-seen order
	TradePath    string   // "" when no hop could be reconstructed
	SwapDetected bool
	Confidence   SwapConfidence

	MatchedProgramIDs  []string // registered venue programs
	UnknownPrograms    []string // non-infrastructure programs behind a probable swap
	HasRelevantTokenOp bool

	GainCount   int
	LossCount   int
	UniqueMints int

	Success           bool
	Fee               uint64
	ComputeUnits      *uint64
	OuterInstructions int
	InnerInstructions int
	Complexity        Complexity
	StablePnL         *decimal.Decimal // owner's stable-coin delta, nil when not applicable

	MEV *MEVFinding
}

// WithMEV returns a copy of the record annotated with the finding.
func (r SwapRecord) WithMEV(f *MEVFinding) SwapRecord {
	r.MEV = f
	return r
}

// InMints returns the distinct mints of TokensIn in first-seen order.
func (r *SwapRecord) InMints() []string {
	return distinctMints(r.TokensIn)
}

// OutMints returns the distinct mints of TokensOut in first-seen order.
func (r *SwapRecord) OutMints() []string {
	return distinctMints(r.TokensOut)
}

// AllMints returns the distinct mints on either side.
func (r *SwapRecord) AllMints() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, side := range [][]MintAmount{r.TokensIn, r.TokensOut} {
		for _, m := range side {
			if _, ok := seen[m.Mint]; ok {
				continue
			}
			seen[m.Mint] = struct{}{}
			out = append(out, m.Mint)
		}
	}
	return out
}

func distinctMints(amounts []MintAmount) []string {
	seen := make(map[string]struct{}, len(amounts))
	out := make([]string, 0, len(amounts))
	for _, m := range amounts {
		if _, ok := seen[m.Mint]; ok {
			continue
		}
		seen[m.Mint] = struct{}{}
		out = append(out, m.Mint)
	}
	return out
}
