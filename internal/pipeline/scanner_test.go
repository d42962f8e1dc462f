package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/solana"
	"solana-mev-lab/internal/solana/stub"
	"solana-mev-lab/internal/storage/memory"
)

var fixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fastConfig() ScannerConfig {
	return ScannerConfig{Concurrency: 2, RateLimit: 1000, Burst: 100, PollInterval: 10 * time.Millisecond, MaxFollowBatch: 2}
}

func newTestScanner(rpc solana.RPCClient, sink Sink) *Scanner {
	return NewScanner(rpc, newTestAnalyzer(), sink, fastConfig(), quietLogger(), nil).
		WithClock(func() time.Time { return fixedTime })
}

func TestScanRange_CompletedSkippedFailed(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(sandwichBlock(100))
	rpc.AddBlock(&domain.Block{Slot: 102})
	rpc.FailSlots[103] = errors.New("rpc down")

	progress := memory.NewScanProgressStore()
	sink := NewStoreSink(Stores{Progress: progress}, quietLogger())

	report, err := newTestScanner(rpc, sink).ScanRange(context.Background(), 100, 103)
	if err != nil {
		t.Fatalf("ScanRange: %v", err)
	}

	if len(report.Blocks) != 2 || report.Blocks[0].Slot != 100 || report.Blocks[1].Slot != 102 {
		t.Errorf("unexpected blocks: %d", len(report.Blocks))
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != 101 {
		t.Errorf("Skipped = %v, want [101]", report.Skipped)
	}
	if len(report.Failed) != 1 || report.Failed[0].Slot != 103 || report.Failed[0].Op != "fetch" {
		t.Fatalf("Failed = %+v", report.Failed)
	}
	if len(report.Records()) != 3 || len(report.Findings()) != 1 || len(report.Opportunities()) != 1 {
		t.Errorf("records=%d findings=%d opportunities=%d",
			len(report.Records()), len(report.Findings()), len(report.Opportunities()))
	}

	rows, err := progress.GetByRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetByRun: %v", err)
	}
	want := []domain.ScanStatus{domain.ScanCompleted, domain.ScanSkipped, domain.ScanCompleted, domain.ScanFailed}
	if len(rows) != len(want) {
		t.Fatalf("got %d progress rows, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		if row.Status != want[i] {
			t.Errorf("slot %d status = %s, want %s", row.Slot, row.Status, want[i])
		}
		if !row.ScannedAt.Equal(fixedTime) {
			t.Errorf("slot %d ScannedAt = %v", row.Slot, row.ScannedAt)
		}
	}
	if rows[0].Swaps != 3 || rows[0].Findings != 1 || rows[0].Transactions != 4 {
		t.Errorf("slot 100 progress = %+v", rows[0])
	}
	if rows[3].Error == "" {
		t.Error("failed slot should carry its error")
	}
}

func TestScanRange_InvalidRange(t *testing.T) {
	s := newTestScanner(stub.NewRPCClient(), nil)
	if _, err := s.ScanRange(context.Background(), 10, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := s.ScanLatest(context.Background(), 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestScanLatest(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(sandwichBlock(200))
	rpc.AddBlock(sandwichBlock(201))
	rpc.Slot = 201

	report, err := newTestScanner(rpc, nil).ScanLatest(context.Background(), 3)
	if err != nil {
		t.Fatalf("ScanLatest: %v", err)
	}
	if report.From != 199 || report.To != 201 {
		t.Errorf("range = %d..%d, want 199..201", report.From, report.To)
	}
	if len(report.Blocks) != 2 || len(report.Skipped) != 1 {
		t.Errorf("blocks=%d skipped=%d", len(report.Blocks), len(report.Skipped))
	}
	for _, slot := range []int64{199, 200, 201} {
		if rpc.Calls(slot) != 1 {
			t.Errorf("slot %d fetched %d times, want 1", slot, rpc.Calls(slot))
		}
	}
}

type failingSink struct{}

func (failingSink) SaveBlock(context.Context, string, *BlockResult) error {
	return errors.New("disk full")
}

func (failingSink) SaveProgress(context.Context, domain.ScanProgress) error { return nil }

func TestScanRange_StoreFailureFailsScope(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(sandwichBlock(300))

	report, err := newTestScanner(rpc, failingSink{}).ScanRange(context.Background(), 300, 300)
	if err != nil {
		t.Fatalf("ScanRange: %v", err)
	}
	if len(report.Blocks) != 0 || len(report.Failed) != 1 || report.Failed[0].Op != "store" {
		t.Errorf("blocks=%d failed=%+v", len(report.Blocks), report.Failed)
	}
}

func TestScanRange_Cancelled(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(sandwichBlock(400))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestScanner(rpc, nil).ScanRange(ctx, 400, 410)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("report should be returned with the context error")
	}
	if len(report.Failed) != 0 {
		t.Errorf("cancelled scopes must not be reported as failed: %+v", report.Failed)
	}
}

func TestScanRange_DeadlineBeforeNextToken(t *testing.T) {
	rpc := stub.NewRPCClient()
	for slot := int64(100); slot <= 104; slot++ {
		rpc.AddBlock(&domain.Block{Slot: slot})
	}
	progress := memory.NewScanProgressStore()
	sink := NewStoreSink(Stores{Progress: progress}, quietLogger())

	cfg := fastConfig()
	cfg.RateLimit, cfg.Burst, cfg.Concurrency = 1, 1, 1
	s := NewScanner(rpc, newTestAnalyzer(), sink, cfg, quietLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	report, err := s.ScanRange(ctx, 100, 104)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ScanRange: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if got := len(report.Blocks) + len(report.Skipped) + len(report.Failed); got != 5 {
		t.Fatalf("accounted for %d of 5 slots: blocks=%d skipped=%d failed=%d",
			got, len(report.Blocks), len(report.Skipped), len(report.Failed))
	}
	if len(report.Failed) == 0 {
		t.Fatal("slots past the deadline should be reported as failed")
	}
	for _, f := range report.Failed {
		if f.Op != "rate limit" {
			t.Errorf("slot %d failed in %q, want rate limit", f.Slot, f.Op)
		}
	}

	rows, err := progress.GetByRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetByRun: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("got %d progress rows, want 5", len(rows))
	}
}

func TestFollow_TipLookupUsesLimiter(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Slot = 700

	cfg := fastConfig()
	cfg.RateLimit, cfg.Burst = 0.001, 1
	s := NewScanner(rpc, newTestAnalyzer(), nil, cfg, quietLogger(), nil)
	s.limiter.Allow() // spend the only token

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.Follow(ctx, nil, -1, nil)
	if err == nil {
		t.Fatal("expected the tip lookup to be refused by the limiter")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Follow waited %s instead of failing fast", time.Since(start))
	}
}

type chanSubscriber struct {
	ch chan solana.SlotNotification
}

func (s *chanSubscriber) SubscribeSlots(context.Context) (<-chan solana.SlotNotification, error) {
	return s.ch, nil
}

func (s *chanSubscriber) Close() error { return nil }

func TestFollow_CatchesUpInBatches(t *testing.T) {
	rpc := stub.NewRPCClient()
	for slot := int64(500); slot <= 504; slot++ {
		rpc.AddBlock(sandwichBlock(slot))
	}

	sub := &chanSubscriber{ch: make(chan solana.SlotNotification, 1)}
	sub.ch <- solana.SlotNotification{Slot: 504}

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu      sync.Mutex
		batches []*ScanReport
		scanned int
	)
	onBatch := func(r *ScanReport) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, r)
		scanned += len(r.Blocks)
		if scanned == 5 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- newTestScanner(rpc, nil).Follow(ctx, sub, 500, onBatch) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Follow did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (batch size 2)", len(batches))
	}
	if batches[0].From != 500 || batches[0].To != 501 || batches[2].From != 504 || batches[2].To != 504 {
		t.Errorf("unexpected batch bounds: %d..%d, %d..%d", batches[0].From, batches[0].To, batches[2].From, batches[2].To)
	}
	runID := batches[0].RunID
	for _, b := range batches {
		if b.RunID != runID || b.Mode != ModeFollow {
			t.Errorf("batch %d..%d run=%s mode=%s", b.From, b.To, b.RunID, b.Mode)
		}
	}
}

func TestFollow_PollsWithoutSubscriber(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddBlock(sandwichBlock(600))
	rpc.Slot = 600

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *ScanReport, 4)
	onBatch := func(r *ScanReport) {
		got <- r
		cancel()
	}

	done := make(chan error, 1)
	go func() { done <- newTestScanner(rpc, nil).Follow(ctx, nil, -1, onBatch) }()

	select {
	case r := <-got:
		if r.From != 600 || len(r.Blocks) != 1 {
			t.Errorf("unexpected report %d..%d with %d blocks", r.From, r.To, len(r.Blocks))
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("no batch received")
	}
	if err := <-done; err != nil {
		t.Errorf("Follow: %v", err)
	}
}
