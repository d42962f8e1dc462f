package memory

import (
	"context"
	"errors"
	"testing"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

func TestArbitrageStore_InsertAndQuery(t *testing.T) {
	store := NewArbitrageStore()
	ctx := context.Background()

	opps := []*domain.ArbitrageOpportunity{
		{ID: "o1", Sender: "W", Slot: 100, Score: 80, Confidence: domain.ArbitrageHigh},
		{ID: "o2", Sender: "X", Slot: 100, Score: 96, Confidence: domain.ArbitragePerfect},
		{ID: "o3", Sender: "W", Slot: 120, Score: 60, Confidence: domain.ArbitrageMedium},
	}
	if err := store.InsertBulk(ctx, opps); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySlotRange(ctx, 100, 100)
	if err != nil {
		t.Fatalf("GetBySlotRange failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "o2" || got[1].ID != "o1" {
		t.Errorf("expected [o2 o1] ordered by score, got %d items", len(got))
	}

	bySender, _ := store.GetBySender(ctx, "W")
	if len(bySender) != 2 || bySender[0].ID != "o1" || bySender[1].ID != "o3" {
		t.Errorf("GetBySender returned %d items", len(bySender))
	}

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.InsertBulk(ctx, opps[:1]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
