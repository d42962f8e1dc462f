package memory

import (
	"context"
	"errors"
	"testing"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

func TestAnalyticsStore_VenueActivity(t *testing.T) {
	store := NewAnalyticsStore()
	ctx := context.Background()

	r1 := record("s1", "W", 100, 0)
	r1.Platforms = []string{"Raydium AMM", "Orca Whirlpool"}
	r2 := record("s2", "W", 100, 1)
	r2.Platforms = []string{"Raydium AMM"}
	r3 := record("s3", "X", 101, 0)
	r3.Platforms = []string{"Raydium AMM"}
	r4 := record("s4", "Y", 500, 0)
	r4.Platforms = []string{"Phoenix"}

	if err := store.InsertSwaps(ctx, []*domain.SwapRecord{r1, r2, r3, r4}); err != nil {
		t.Fatalf("InsertSwaps failed: %v", err)
	}
	if err := store.InsertSwaps(ctx, []*domain.SwapRecord{r1}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	stats, err := store.VenueActivity(ctx, 100, 200)
	if err != nil {
		t.Fatalf("VenueActivity failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d venues, want 2", len(stats))
	}
	if stats[0].Venue != "Raydium AMM" || stats[0].Swaps != 3 || stats[0].Wallets != 2 {
		t.Errorf("unexpected top venue: %+v", stats[0])
	}
	if stats[1].Venue != "Orca Whirlpool" || stats[1].Swaps != 1 {
		t.Errorf("unexpected second venue: %+v", stats[1])
	}
}

func TestAnalyticsStore_FindingCounts(t *testing.T) {
	store := NewAnalyticsStore()
	ctx := context.Background()

	err := store.InsertFindings(ctx, []*domain.MEVFinding{
		finding("a", 10, 0, domain.MEVSandwich, "bot"),
		finding("b", 10, 2, domain.MEVSandwich, "bot"),
		finding("c", 11, 0, domain.MEVArbitrage, "arb"),
		finding("d", 99, 0, domain.MEVKnownBot, "bot"),
	})
	if err != nil {
		t.Fatalf("InsertFindings failed: %v", err)
	}

	counts, _ := store.FindingCounts(ctx, 10, 20)
	if counts[domain.MEVSandwich] != 2 || counts[domain.MEVArbitrage] != 1 || counts[domain.MEVKnownBot] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
