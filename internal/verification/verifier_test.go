package verification

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/registry"
	"solana-mev-lab/internal/replay"
	"solana-mev-lab/internal/storage/memory"
)

const (
	sol   = "So11111111111111111111111111111111111111112"
	mintM = "MintM"
)

func record(sig, wallet string, idx int, in, out string) *domain.SwapRecord {
	return &domain.SwapRecord{
		Signature:       sig,
		Slot:            500,
		TxIndex:         idx,
		InitiatorWallet: wallet,
		Owner:           wallet,
		TokensIn:        []domain.MintAmount{{Mint: in, Amount: decimal.NewFromInt(10)}},
		TokensOut:       []domain.MintAmount{{Mint: out, Amount: decimal.NewFromInt(10)}},
		Platforms:       []string{"Raydium"},
		SwapDetected:    true,
		Confidence:      domain.SwapDefinite,
	}
}

type fixture struct {
	swaps     *memory.SwapRecordStore
	findings  *memory.MEVFindingStore
	arbitrage *memory.ArbitrageStore
	runner    *replay.Runner
}

// newFixture stores a sandwich block together with the findings and
// opportunities a replay produces for it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		swaps:     memory.NewSwapRecordStore(),
		findings:  memory.NewMEVFindingStore(),
		arbitrage: memory.NewArbitrageStore(),
	}
	f.runner = replay.NewRunner(f.swaps, registry.Empty(), arbitrage.Permissive, mev.Options{})

	err := f.swaps.InsertBulk(ctx, []*domain.SwapRecord{
		record("tx4", "A", 4, sol, mintM),
		record("tx5", "V", 5, sol, mintM),
		record("tx6", "A", 6, mintM, sol),
	})
	if err != nil {
		t.Fatalf("InsertBulk swaps failed: %v", err)
	}

	var c replay.Collector
	if err := f.runner.Run(ctx, 500, 500, &c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var findings []*domain.MEVFinding
	for _, fd := range c.Findings() {
		findings = append(findings, &fd)
	}
	var opps []*domain.ArbitrageOpportunity
	for _, o := range c.Opportunities() {
		opps = append(opps, &o)
	}
	if len(findings) == 0 || len(opps) == 0 {
		t.Fatalf("fixture produced %d findings and %d opportunities", len(findings), len(opps))
	}
	if err := f.findings.InsertBulk(ctx, findings); err != nil {
		t.Fatalf("InsertBulk findings failed: %v", err)
	}
	if err := f.arbitrage.InsertBulk(ctx, opps); err != nil {
		t.Fatalf("InsertBulk opportunities failed: %v", err)
	}
	return f
}

func (f *fixture) verify(t *testing.T) *Report {
	t.Helper()
	report, err := NewReplayVerifier(f.runner, f.findings, f.arbitrage).VerifyRange(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("VerifyRange failed: %v", err)
	}
	return report
}

func TestReplayVerifier_Reproducible(t *testing.T) {
	f := newFixture(t)
	report := f.verify(t)

	if !report.OK() {
		t.Fatalf("expected no divergences, got %+v", report.Results)
	}
	if report.Slots != 1 {
		t.Errorf("Slots = %d, want 1", report.Slots)
	}
	if report.Findings == 0 || report.Opportunities != 1 {
		t.Errorf("Findings = %d, Opportunities = %d", report.Findings, report.Opportunities)
	}
	if report.Matched != report.Findings+report.Opportunities {
		t.Errorf("Matched = %d, want %d", report.Matched, report.Findings+report.Opportunities)
	}
}

func TestReplayVerifier_DetectsMissingReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A finding for a transaction that is not among the stored swaps.
	extra := &domain.MEVFinding{ID: "x", Signature: "ghost", Slot: 500, TxIndex: 9, Type: domain.MEVFrontrun, Confidence: 70, Wallet: "G"}
	if err := f.findings.InsertBulk(ctx, []*domain.MEVFinding{extra}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	report := f.verify(t)
	if report.OK() {
		t.Fatal("expected a divergence")
	}
	if len(report.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(report.Results))
	}
	r := report.Results[0]
	if r.Kind != KindFinding || r.Key != "ghost" || r.Divergences[0].Field != "Present" {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestReplayVerifier_IgnoresOtherProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &domain.ArbitrageOpportunity{ID: "strict-1", Sender: "A", Slot: 500, Profile: arbitrage.Strict.Name}
	if err := f.arbitrage.InsertBulk(ctx, []*domain.ArbitrageOpportunity{other}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	if report := f.verify(t); !report.OK() {
		t.Errorf("expected other profiles to be ignored, got %+v", report.Results)
	}
}

func TestCompareFindings(t *testing.T) {
	base := &domain.MEVFinding{
		ID:         "f1",
		Type:       domain.MEVSandwich,
		Confidence: 80,
		Wallet:     "A",
		Details:    domain.MEVDetails{Patterns: []domain.PatternMatch{{Type: domain.MEVSandwich}}},
	}

	if divs := CompareFindings(base, base); len(divs) != 0 {
		t.Errorf("identical findings diverged: %+v", divs)
	}
	if divs := CompareFindings(nil, nil); len(divs) != 0 {
		t.Errorf("two absent findings diverged: %+v", divs)
	}

	changed := *base
	changed.Confidence = 95
	changed.Details = domain.MEVDetails{Patterns: []domain.PatternMatch{{Type: domain.MEVSandwich}, {Type: domain.MEVKnownBot}}}
	divs := CompareFindings(base, &changed)
	if len(divs) != 2 {
		t.Fatalf("len(divs) = %d, want 2: %+v", len(divs), divs)
	}
	if divs[0].Field != "Confidence" || divs[1].Field != "Patterns" {
		t.Errorf("fields = %s, %s", divs[0].Field, divs[1].Field)
	}

	if divs := CompareFindings(base, nil); len(divs) != 1 || divs[0].Actual != false {
		t.Errorf("missing replay: %+v", divs)
	}
}

func TestCompareOpportunities(t *testing.T) {
	base := &domain.ArbitrageOpportunity{
		ID:            "o1",
		Sender:        "A",
		Confidence:    domain.ArbitrageHigh,
		Score:         75,
		PlatformsUsed: []string{"Orca", "Raydium"},
		Signatures:    []string{"tx1", "tx2"},
	}
	if divs := CompareOpportunities(base, base); len(divs) != 0 {
		t.Errorf("identical opportunities diverged: %+v", divs)
	}

	changed := *base
	changed.Signatures = []string{"tx2", "tx1"}
	divs := CompareOpportunities(base, &changed)
	if len(divs) != 1 || divs[0].Field != "Signatures" {
		t.Errorf("divs = %+v, want Signatures", divs)
	}
}
