package domain

// ArbitrageConfidence grades a wallet's arbitrage evidence.
type ArbitrageConfidence string

const (
	ArbitragePerfect ArbitrageConfidence = "PERFECT"
	ArbitrageHigh    ArbitrageConfidence = "HIGH"
	ArbitrageMedium  ArbitrageConfidence = "MEDIUM"
)

// String returns the string representation of ArbitrageConfidence.
func (c ArbitrageConfidence) String() string {
	return string(c)
}

// Rank orders confidences: PERFECT > HIGH > MEDIUM > unknown.
func (c ArbitrageConfidence) Rank() int {
	switch c {
	case ArbitragePerfect:
		return 3
	case ArbitrageHigh:
		return 2
	case ArbitrageMedium:
		return 1
	default:
		return 0
	}
}

// RoundTripToken is a mint a wallet both acquired and disposed of.
type RoundTripToken struct {
	Mint      string
	BuyCount  int
	SellCount int
}

// ArbitrageOpportunity is one wallet's grouped swap activity within a scope.
type ArbitrageOpportunity struct {
	ID                string // deterministic, see idhash.ComputeOpportunityID
	Sender            string
	Slot              int64 // scope slot (first slot of the window)
	Profile           string
	TransactionCount  int
	PlatformsUsed     []string // sorted
	UsedMultipleDexes bool
	RoundTripTokens   []RoundTripToken // sorted by mint
	HasRoundTrip      bool
	AllCriteriaMet    bool
	Confidence        ArbitrageConfidence
	Score             int
	Signatures        []string // in input order
}

// ArbitrageSummary aggregates a grouping run.
type ArbitrageSummary struct {
	TotalOpportunities    int
	AnyAllCriteriaMet     bool
	UniqueArbitragers     int
	PerfectArbitrageCount int
	HighConfidenceCount   int
	MultiDexUsageCount    int
	RoundTripTradingCount int
}
