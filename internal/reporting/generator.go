package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/storage"
)

// ErrInvalidRange is returned when to < from.
var ErrInvalidRange = errors.New("invalid slot range")

// DefaultUnknownLimit caps the unknown-program section.
const DefaultUnknownLimit = 20

// Stores is the set of stores a Generator reads. Swaps, Findings and
// Arbitrage are required; the others may be nil.
type Stores struct {
	Swaps     storage.SwapRecordStore
	Findings  storage.MEVFindingStore
	Arbitrage storage.ArbitrageStore
	Progress  storage.ScanProgressStore
	Unknown   storage.UnknownProgramStore
	// Analytics, when set, answers venue activity and finding counts.
	Analytics storage.AnalyticsStore
}

// Generator produces reports from stored data.
type Generator struct {
	stores       Stores
	unknownLimit int
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(stores Stores) *Generator {
	return &Generator{
		stores:       stores,
		unknownLimit: DefaultUnknownLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithUnknownLimit sets how many unknown programs are listed.
func (g *Generator) WithUnknownLimit(n int) *Generator {
	g.unknownLimit = n
	return g
}

// Generate builds a report over slots [from, to].
func (g *Generator) Generate(ctx context.Context, from, to int64) (*Report, error) {
	if to < from {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, from, to)
	}

	records, err := g.stores.Swaps.GetBySlotRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load swap records: %w", err)
	}
	findings, err := g.stores.Findings.GetBySlotRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load mev findings: %w", err)
	}
	opps, err := g.stores.Arbitrage.GetBySlotRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load arbitrage opportunities: %w", err)
	}

	venues, err := g.venueRows(ctx, from, to, records)
	if err != nil {
		return nil, err
	}
	counts, err := g.findingCounts(ctx, from, to, findings)
	if err != nil {
		return nil, err
	}
	unknown, err := g.unknownRows(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		FromSlot:    from,
		ToSlot:      to,
		Swaps:       swapSummary(records),
		Venues:      venues,
		MEV: MEVSection{
			Counts:   counts,
			Findings: findingRows(findings, records),
		},
		Arbitrage: arbitrageSection(opps),
		Unknown:   unknown,
	}, nil
}

// GenerateRun builds a report over the slot range a scan run covered.
func (g *Generator) GenerateRun(ctx context.Context, runID string) (*Report, error) {
	if g.stores.Progress == nil {
		return nil, fmt.Errorf("scan progress store not configured")
	}
	rows, err := g.stores.Progress.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load scan progress: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}

	r, err := g.Generate(ctx, rows[0].Slot, rows[len(rows)-1].Slot)
	if err != nil {
		return nil, err
	}
	r.Run = runSummary(runID, rows)
	return r, nil
}

func runSummary(runID string, rows []*domain.ScanProgress) *RunSummary {
	s := &RunSummary{RunID: runID}
	for _, p := range rows {
		switch p.Status {
		case domain.ScanCompleted:
			s.Completed++
		case domain.ScanSkipped:
			s.Skipped++
		case domain.ScanFailed:
			s.Failed++
			s.Errors = append(s.Errors, fmt.Sprintf("slot %d: %s", p.Slot, p.Error))
		}
	}
	return s
}

func swapSummary(records []*domain.SwapRecord) SwapSummary {
	s := SwapSummary{Total: len(records), StablePnL: decimal.Zero}
	wallets := mapset.NewThreadUnsafeSet[string]()
	for _, r := range records {
		wallets.Add(r.InitiatorWallet)
		switch r.Confidence {
		case domain.SwapDefinite:
			s.Definite++
		case domain.SwapProbable:
			s.Probable++
		}
		switch r.Complexity {
		case domain.ComplexityHigh:
			s.HiComplexity++
		case domain.ComplexityMedium:
			s.MedComplexity++
		default:
			s.LowComplexity++
		}
		if !r.Success {
			s.Failed++
		}
		if r.StablePnL != nil {
			s.StablePnL = s.StablePnL.Add(*r.StablePnL)
		}
	}
	s.UniqueWallets = wallets.Cardinality()
	return s
}

func (g *Generator) venueRows(ctx context.Context, from, to int64, records []*domain.SwapRecord) ([]VenueRow, error) {
	if g.stores.Analytics != nil {
		stats, err := g.stores.Analytics.VenueActivity(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("load venue activity: %w", err)
		}
		rows := make([]VenueRow, len(stats))
		for i, v := range stats {
			rows[i] = VenueRow{Venue: v.Venue, Swaps: v.Swaps, Wallets: v.Wallets}
		}
		return rows, nil
	}

	swaps := make(map[string]int)
	wallets := make(map[string]mapset.Set[string])
	for _, r := range records {
		for _, venue := range r.Platforms {
			swaps[venue]++
			if wallets[venue] == nil {
				wallets[venue] = mapset.NewThreadUnsafeSet[string]()
			}
			wallets[venue].Add(r.InitiatorWallet)
		}
	}
	rows := make([]VenueRow, 0, len(swaps))
	for venue, n := range swaps {
		rows = append(rows, VenueRow{Venue: venue, Swaps: n, Wallets: wallets[venue].Cardinality()})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Swaps != rows[j].Swaps {
			return rows[i].Swaps > rows[j].Swaps
		}
		return rows[i].Venue < rows[j].Venue
	})
	return rows, nil
}

func (g *Generator) findingCounts(ctx context.Context, from, to int64, findings []*domain.MEVFinding) ([]FindingCountRow, error) {
	var counts map[domain.MEVType]int
	if g.stores.Analytics != nil {
		var err error
		counts, err = g.stores.Analytics.FindingCounts(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("load finding counts: %w", err)
		}
	} else {
		counts = make(map[domain.MEVType]int)
		for _, f := range findings {
			counts[f.Type]++
		}
	}

	rows := make([]FindingCountRow, 0, len(counts))
	for t, n := range counts {
		rows = append(rows, FindingCountRow{Type: t, Count: n, Description: mev.Description(t)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Type < rows[j].Type })
	return rows, nil
}

func findingRows(findings []*domain.MEVFinding, records []*domain.SwapRecord) []FindingRow {
	paths := make(map[string]string, len(records))
	for _, r := range records {
		paths[r.Signature] = r.TradePath
	}

	rows := make([]FindingRow, len(findings))
	for i, f := range findings {
		patterns := make([]string, len(f.Details.Patterns))
		for j, p := range f.Details.Patterns {
			patterns[j] = string(p.Type)
		}
		rows[i] = FindingRow{
			Signature:  f.Signature,
			Slot:       f.Slot,
			TxIndex:    f.TxIndex,
			Type:       f.Type,
			Confidence: f.Confidence,
			Wallet:     f.Wallet,
			Patterns:   strings.Join(patterns, "+"),
			TradePath:  paths[f.Signature],
		}
	}
	return rows
}

func arbitrageSection(opps []*domain.ArbitrageOpportunity) ArbitrageSection {
	values := make([]domain.ArbitrageOpportunity, len(opps))
	senders := mapset.NewThreadUnsafeSet[string]()
	rows := make([]OpportunityRow, len(opps))
	for i, o := range opps {
		values[i] = *o
		senders.Add(o.Sender)

		trips := make([]string, len(o.RoundTripTokens))
		for j, rt := range o.RoundTripTokens {
			trips[j] = fmt.Sprintf("%s(%d/%d)", rt.Mint, rt.BuyCount, rt.SellCount)
		}
		rows[i] = OpportunityRow{
			ID:           o.ID,
			Slot:         o.Slot,
			Sender:       o.Sender,
			Confidence:   o.Confidence,
			Score:        o.Score,
			Transactions: o.TransactionCount,
			Platforms:    strings.Join(o.PlatformsUsed, "+"),
			RoundTrips:   strings.Join(trips, " "),
		}
	}

	summary := arbitrage.Summary(values)
	// A wallet can appear in several scopes of the range.
	summary.UniqueArbitragers = senders.Cardinality()
	return ArbitrageSection{Summary: summary, Opportunities: rows}
}

func (g *Generator) unknownRows(ctx context.Context) ([]UnknownProgramRow, error) {
	if g.stores.Unknown == nil || g.unknownLimit <= 0 {
		return nil, nil
	}
	stats, err := g.stores.Unknown.List(ctx, g.unknownLimit)
	if err != nil {
		return nil, fmt.Errorf("load unknown programs: %w", err)
	}
	rows := make([]UnknownProgramRow, len(stats))
	for i, s := range stats {
		rows[i] = UnknownProgramRow{
			ProgramID:    s.ProgramID,
			GuessedVenue: s.GuessedVenue,
			Sightings:    s.Sightings,
			FirstSlot:    s.FirstSlot,
			LastSlot:     s.LastSlot,
		}
	}
	return rows, nil
}
