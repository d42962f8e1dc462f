package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
)

// Report summarizes the stored analysis of a slot range.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	FromSlot    int64
	ToSlot      int64

	// Run is set when the report was generated for a scan run.
	Run *RunSummary

	Swaps     SwapSummary
	Venues    []VenueRow        // busiest first
	MEV       MEVSection
	Arbitrage ArbitrageSection
	Unknown   []UnknownProgramRow // most sighted first
}

// RunSummary counts slot outcomes of one scan run.
type RunSummary struct {
	RunID     string
	Completed int
	Skipped   int
	Failed    int
	Errors    []string // "slot N: error", failed slots only
}

// SwapSummary describes the detected swaps.
type SwapSummary struct {
	Total         int
	Definite      int
	Probable      int
	UniqueWallets int
	LowComplexity int
	MedComplexity int
	HiComplexity  int
	Failed        int // swaps whose transaction did not succeed
	StablePnL     decimal.Decimal
}

// VenueRow is swap activity on one venue.
type VenueRow struct {
	Venue   string
	Swaps   int
	Wallets int
}

// MEVSection lists findings.
type MEVSection struct {
	Counts   []FindingCountRow // sorted by type
	Findings []FindingRow      // ordered by (slot, tx_index)
}

// FindingCountRow counts findings of one type.
type FindingCountRow struct {
	Type        domain.MEVType
	Count       int
	Description string
}

// FindingRow is one finding.
type FindingRow struct {
	Signature  string
	Slot       int64
	TxIndex    int
	Type       domain.MEVType
	Confidence int
	Wallet     string
	Patterns   string // matched pattern types, "+" separated
	TradePath  string
}

// ArbitrageSection lists opportunities.
type ArbitrageSection struct {
	Summary       domain.ArbitrageSummary
	Opportunities []OpportunityRow // ordered by slot ASC, score DESC
}

// OpportunityRow is one arbitrage opportunity.
type OpportunityRow struct {
	ID           string
	Slot         int64
	Sender       string
	Confidence   domain.ArbitrageConfidence
	Score        int
	Transactions int
	Platforms    string
	RoundTrips   string
}

// UnknownProgramRow is one unregistered program.
type UnknownProgramRow struct {
	ProgramID    string
	GuessedVenue string
	Sightings    int
	FirstSlot    int64
	LastSlot     int64
}
