package arbitrage

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/idhash"
)

const (
	sol   = "So11111111111111111111111111111111111111112"
	mintX = "MintX"
	mintY = "MintY"
)

func rec(sig, wallet string, in, out string, venues ...string) domain.SwapRecord {
	return domain.SwapRecord{
		Signature:       sig,
		Slot:            100,
		InitiatorWallet: wallet,
		TokensIn:        []domain.MintAmount{{Mint: in, Amount: decimal.NewFromInt(10)}},
		TokensOut:       []domain.MintAmount{{Mint: out, Amount: decimal.NewFromInt(5)}},
		Platforms:       venues,
		SwapDetected:    true,
		Confidence:      domain.SwapDefinite,
	}
}

func findRoundTrip(o domain.ArbitrageOpportunity, mint string) (domain.RoundTripToken, bool) {
	for _, rt := range o.RoundTripTokens {
		if rt.Mint == mint {
			return rt, true
		}
	}
	return domain.RoundTripToken{}, false
}

// Wallet W sells SOL for X on V1, then X for SOL on V2.
func TestGroup_BuyThenSellAcrossTwoVenues(t *testing.T) {
	records := []domain.SwapRecord{
		rec("tx1", "W", sol, mintX, "V1"),
		rec("tx2", "W", mintX, sol, "V2"),
	}

	opps := Group(records, Permissive)
	if len(opps) != 1 {
		t.Fatalf("len(opps) = %d, want 1", len(opps))
	}
	o := opps[0]
	if o.Sender != "W" || o.TransactionCount != 2 {
		t.Errorf("Sender=%s TransactionCount=%d", o.Sender, o.TransactionCount)
	}
	if !o.UsedMultipleDexes {
		t.Error("UsedMultipleDexes should be true")
	}
	rt, ok := findRoundTrip(o, mintX)
	if !ok {
		t.Fatalf("mint X not in round-trip tokens: %+v", o.RoundTripTokens)
	}
	if rt.BuyCount != 1 || rt.SellCount != 1 {
		t.Errorf("X buy/sell = %d/%d, want 1/1", rt.BuyCount, rt.SellCount)
	}
	if o.Confidence != domain.ArbitrageHigh {
		t.Errorf("Confidence = %s, want HIGH", o.Confidence)
	}
	if o.AllCriteriaMet {
		t.Error("AllCriteriaMet should be false with two transactions")
	}
	if !reflect.DeepEqual(o.Signatures, []string{"tx1", "tx2"}) {
		t.Errorf("Signatures = %v", o.Signatures)
	}
	if want := idhash.ComputeOpportunityID("W", 100, Permissive.Name, []string{"tx1", "tx2"}); o.ID != want {
		t.Errorf("ID = %s, want %s", o.ID, want)
	}
}

func TestGroup_ThirdTransactionMakesPerfect(t *testing.T) {
	records := []domain.SwapRecord{
		rec("tx1", "W", sol, mintX, "V1"),
		rec("tx2", "W", mintX, sol, "V2"),
		rec("tx3", "W", sol, mintY, "V1"),
	}

	opps := Group(records, Permissive)
	if len(opps) != 1 {
		t.Fatalf("len(opps) = %d, want 1", len(opps))
	}
	if opps[0].Confidence != domain.ArbitragePerfect || !opps[0].AllCriteriaMet {
		t.Errorf("Confidence = %s, AllCriteriaMet = %v", opps[0].Confidence, opps[0].AllCriteriaMet)
	}
	if opps[0].Score != Permissive.PerfectScore {
		t.Errorf("Score = %d, want %d", opps[0].Score, Permissive.PerfectScore)
	}
}

func TestGroup_Exclusions(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.SwapRecord
	}{
		{
			name:    "single record",
			records: []domain.SwapRecord{rec("tx1", "W", sol, mintX, "V1", "V2")},
		},
		{
			name: "one venue, no round trip",
			records: []domain.SwapRecord{
				rec("tx1", "W", sol, mintX, "V1"),
				rec("tx2", "W", sol, mintY, "V1"),
			},
		},
		{
			name: "not detected",
			records: func() []domain.SwapRecord {
				a := rec("tx1", "W", sol, mintX, "V1")
				b := rec("tx2", "W", mintX, sol, "V2")
				a.SwapDetected, b.SwapDetected = false, false
				return []domain.SwapRecord{a, b}
			}(),
		},
		{
			name: "missing initiator",
			records: []domain.SwapRecord{
				rec("tx1", "", sol, mintX, "V1"),
				rec("tx2", "", mintX, sol, "V2"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if opps := Group(tt.records, Permissive); len(opps) != 0 {
				t.Errorf("expected no opportunities, got %+v", opps)
			}
		})
	}
}

func TestGroup_RoundTripOnlyIsMedium(t *testing.T) {
	records := []domain.SwapRecord{
		rec("tx1", "W", sol, mintX, "V1"),
		rec("tx2", "W", mintX, sol, "V1"),
	}

	opps := Group(records, Permissive)
	if len(opps) != 1 {
		t.Fatalf("len(opps) = %d, want 1", len(opps))
	}
	if opps[0].Confidence != domain.ArbitrageMedium {
		t.Errorf("Confidence = %s, want MEDIUM", opps[0].Confidence)
	}
	if opps[0].UsedMultipleDexes {
		t.Error("UsedMultipleDexes should be false")
	}
}

func TestGroup_Ordering(t *testing.T) {
	records := []domain.SwapRecord{
		// B: MEDIUM, 2 tx
		rec("b1", "B", sol, mintX, "V1"),
		rec("b2", "B", mintX, sol, "V1"),
		// C: HIGH, 2 tx
		rec("c1", "C", sol, mintX, "V1"),
		rec("c2", "C", sol, mintY, "V2"),
		// A: HIGH, 2 tx (ties with C, sorts first by sender)
		rec("a1", "A", sol, mintX, "V1"),
		rec("a2", "A", sol, mintY, "V2"),
		// D: PERFECT, 3 tx
		rec("d1", "D", sol, mintX, "V1"),
		rec("d2", "D", mintX, sol, "V2"),
		rec("d3", "D", sol, mintY, "V3"),
		// E: HIGH, 3 tx
		rec("e1", "E", sol, mintX, "V1"),
		rec("e2", "E", sol, mintY, "V2"),
		rec("e3", "E", sol, mintY, "V2"),
	}

	opps := Group(records, Permissive)
	var got []string
	for _, o := range opps {
		got = append(got, o.Sender)
	}
	want := []string{"D", "E", "A", "C", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestGroup_StrictProfile(t *testing.T) {
	base := []domain.SwapRecord{
		rec("tx1", "W", sol, mintX, "V1"),
		rec("tx2", "W", mintX, sol, "V2"),
		rec("tx3", "W", sol, mintX, "V3"),
		rec("tx4", "W", mintX, sol, "V1"),
	}

	opps := Group(base, Strict)
	if len(opps) != 1 {
		t.Fatalf("len(opps) = %d, want 1", len(opps))
	}
	o := opps[0]
	// SOL and X are each bought twice and sold twice
	if len(o.RoundTripTokens) != 2 {
		t.Fatalf("RoundTripTokens = %+v, want 2", o.RoundTripTokens)
	}
	if o.Confidence != domain.ArbitragePerfect || o.Score != 95 {
		t.Errorf("Confidence=%s Score=%d, want PERFECT/95", o.Confidence, o.Score)
	}

	more := append(append([]domain.SwapRecord{}, base...),
		rec("tx5", "W", sol, mintX, "V2"),
		rec("tx6", "W", mintX, sol, "V3"),
	)
	opps = Group(more, Strict)
	if opps[0].Score != 97 {
		t.Errorf("Score = %d, want 97", opps[0].Score)
	}

	// permissive PERFECT is not strict PERFECT
	weak := base[:3]
	opps = Group(weak, Strict)
	if len(opps) != 1 || opps[0].Confidence != domain.ArbitrageHigh {
		t.Errorf("three-venue, single round trip: got %+v, want HIGH", opps)
	}
}

func TestGroup_ScoreCap(t *testing.T) {
	var records []domain.SwapRecord
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			records = append(records, rec(fmt.Sprintf("tx%d", i), "W", sol, mintX, fmt.Sprintf("V%d", i%3)))
		} else {
			records = append(records, rec(fmt.Sprintf("tx%d", i), "W", mintX, sol, fmt.Sprintf("V%d", i%3)))
		}
	}

	opps := Group(records, Strict)
	if len(opps) != 1 || opps[0].Score != 99 {
		t.Errorf("Score = %+v, want 99", opps)
	}
}

func TestSummary(t *testing.T) {
	records := []domain.SwapRecord{
		rec("d1", "D", sol, mintX, "V1"),
		rec("d2", "D", mintX, sol, "V2"),
		rec("d3", "D", sol, mintY, "V3"),
		rec("c1", "C", sol, mintX, "V1"),
		rec("c2", "C", sol, mintY, "V2"),
		rec("b1", "B", sol, mintX, "V1"),
		rec("b2", "B", mintX, sol, "V1"),
	}

	s := Summary(Group(records, Permissive))
	want := domain.ArbitrageSummary{
		TotalOpportunities:    3,
		AnyAllCriteriaMet:     true,
		UniqueArbitragers:     3,
		PerfectArbitrageCount: 1,
		HighConfidenceCount:   1,
		MultiDexUsageCount:    2,
		RoundTripTradingCount: 2,
	}
	if s != want {
		t.Errorf("Summary() = %+v, want %+v", s, want)
	}
}

func TestProfileByName(t *testing.T) {
	for _, name := range []string{"", "permissive", "STRICT", " mev "} {
		if _, err := ProfileByName(name); err != nil {
			t.Errorf("ProfileByName(%q) error = %v", name, err)
		}
	}
	if _, err := ProfileByName("loose"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

// genRecords derives swap records from small integer seeds so that wallets,
// venues and mints collide often.
func genRecords(seeds []int) []domain.SwapRecord {
	wallets := []string{"W1", "W2", "W3"}
	venues := []string{"V1", "V2", "V3", "V4"}
	mints := []string{sol, mintX, mintY}

	out := make([]domain.SwapRecord, len(seeds))
	for i, n := range seeds {
		in := mints[n%3]
		outMint := mints[(n/3+1+n%3)%3]
		if outMint == in {
			outMint = mints[(n%3+1)%3]
		}
		out[i] = rec(fmt.Sprintf("sig%d", i), wallets[(n/9)%3], in, outMint, venues[(n/27)%4])
	}
	return out
}

func TestGroup_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("grouping twice yields identical output", prop.ForAll(
		func(seeds []int) bool {
			records := genRecords(seeds)
			for _, p := range []Profile{Permissive, Strict, MEVArbitrage} {
				if !reflect.DeepEqual(Group(records, p), Group(records, p)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("bought then sold mint is a round trip", prop.ForAll(
		func(seeds []int) bool {
			records := append(genRecords(seeds),
				rec("buy", "W9", sol, mintX, "V1"),
				rec("sell", "W9", mintX, sol, "V1"),
			)
			for _, o := range Group(records, Permissive) {
				if o.Sender != "W9" {
					continue
				}
				rt, ok := findRoundTrip(o, mintX)
				return ok && rt.BuyCount >= 1 && rt.SellCount >= 1
			}
			return false
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
