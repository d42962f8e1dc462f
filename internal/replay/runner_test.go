package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/registry"
	"solana-mev-lab/internal/storage/memory"
)

const (
	sol   = "So11111111111111111111111111111111111111112"
	mintM = "MintM"
)

func record(sig, wallet string, slot int64, idx int, in, out string) *domain.SwapRecord {
	return &domain.SwapRecord{
		Signature:       sig,
		Slot:            slot,
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

// orderValidatingEngine fails when slots arrive out of order or a slot's
// records are not ordered by TxIndex.
type orderValidatingEngine struct {
	lastSlot int64
	slots    int
}

func (e *orderValidatingEngine) OnSlot(_ context.Context, res *SlotResult) error {
	if e.slots > 0 && res.Slot <= e.lastSlot {
		return errors.New("slots out of order")
	}
	for i := 1; i < len(res.Records); i++ {
		if res.Records[i].TxIndex <= res.Records[i-1].TxIndex {
			return errors.New("records out of order")
		}
	}
	e.lastSlot = res.Slot
	e.slots++
	return nil
}

func newRunner(t *testing.T, records ...*domain.SwapRecord) *Runner {
	t.Helper()
	store := memory.NewSwapRecordStore()
	if err := store.InsertBulk(context.Background(), records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	return NewRunner(store, registry.Empty(), arbitrage.Permissive, mev.Options{})
}

func TestRunner_OrdersSlotsAndRecords(t *testing.T) {
	runner := newRunner(t,
		record("c", "X", 300, 2, sol, mintM),
		record("a", "Y", 100, 5, sol, mintM),
		record("b", "Z", 300, 1, sol, mintM),
		record("d", "W", 200, 0, sol, mintM),
	)

	engine := &orderValidatingEngine{}
	if err := runner.Run(context.Background(), 0, 1000, engine); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if engine.slots != 3 {
		t.Errorf("slots visited = %d, want 3", engine.slots)
	}
}

func TestRunner_ReclassifiesSandwich(t *testing.T) {
	runner := newRunner(t,
		record("tx6", "A", 500, 6, mintM, sol),
		record("tx4", "A", 500, 4, sol, mintM),
		record("tx5", "V", 500, 5, sol, mintM),
	)

	var c Collector
	if err := runner.Run(context.Background(), 500, 500, &c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(c.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(c.Results))
	}
	if c.Results[0].OrderingErr != nil {
		t.Fatalf("OrderingErr = %v", c.Results[0].OrderingErr)
	}

	findings := c.Findings()
	var sandwich *domain.MEVFinding
	for i := range findings {
		if findings[i].Signature == "tx5" {
			sandwich = &findings[i]
		}
	}
	if sandwich == nil || sandwich.Type != domain.MEVSandwich {
		t.Fatalf("tx5 finding = %+v, want sandwich", sandwich)
	}

	opps := c.Opportunities()
	if len(opps) != 1 || opps[0].Sender != "A" {
		t.Fatalf("opportunities = %+v, want one for A", opps)
	}
	if opps[0].Signatures[0] != "tx4" {
		t.Errorf("Signatures = %v, want tx4 first", opps[0].Signatures)
	}
}

func TestRunner_DropsStoredAnnotation(t *testing.T) {
	r := record("tx1", "A", 10, 0, sol, mintM)
	r.MEV = &domain.MEVFinding{Type: domain.MEVSandwich}
	runner := newRunner(t, r)

	var c Collector
	if err := runner.Run(context.Background(), 0, 100, &c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := c.Findings(); len(got) != 0 {
		t.Errorf("expected stale finding to be dropped, got %+v", got)
	}
}

func TestRunner_InvalidRange(t *testing.T) {
	runner := newRunner(t)
	err := runner.Run(context.Background(), 10, 5, &Collector{})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestRunner_EngineErrorStopsReplay(t *testing.T) {
	runner := newRunner(t,
		record("a", "A", 1, 0, sol, mintM),
		record("b", "B", 2, 0, sol, mintM),
	)
	wantErr := errors.New("boom")
	calls := 0
	engine := engineFunc(func(context.Context, *SlotResult) error {
		calls++
		return wantErr
	})

	if err := runner.Run(context.Background(), 0, 10, engine); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type engineFunc func(context.Context, *SlotResult) error

func (f engineFunc) OnSlot(ctx context.Context, res *SlotResult) error { return f(ctx, res) }

func TestGroupBySlot(t *testing.T) {
	batches := GroupBySlot([]*domain.SwapRecord{
		record("b", "A", 2, 1, sol, mintM),
		nil,
		record("a", "A", 2, 0, sol, mintM),
		record("c", "A", 1, 9, sol, mintM),
	})
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}
	if batches[0][0].Signature != "c" {
		t.Errorf("first batch = %s, want c", batches[0][0].Signature)
	}
	if batches[1][0].Signature != "a" || batches[1][1].Signature != "b" {
		t.Errorf("second batch order = %s,%s", batches[1][0].Signature, batches[1][1].Signature)
	}
}
