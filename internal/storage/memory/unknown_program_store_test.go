package memory

import (
	"context"
	"testing"

	"solana-mev-lab/internal/domain"
)

func TestUnknownProgramStore_AggregatesSightings(t *testing.T) {
	store := NewUnknownProgramStore()
	ctx := context.Background()

	sightings := []*domain.UnknownProgram{
		{ProgramID: "P1", Slot: 50, Signature: "a"},
		{ProgramID: "P2", GuessedVenue: "Raydium", Slot: 40, Signature: "b"},
		{ProgramID: "P1", GuessedVenue: "Jupiter", Slot: 70, Signature: "c"},
		{ProgramID: "P1", Slot: 20, Signature: "d"},
	}
	for _, s := range sightings {
		if err := store.Record(ctx, s); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List returned %d programs, want 2", len(list))
	}

	p1 := list[0]
	if p1.ProgramID != "P1" || p1.Sightings != 3 {
		t.Fatalf("expected P1 with 3 sightings first, got %+v", p1)
	}
	if p1.FirstSlot != 20 || p1.LastSlot != 70 || p1.LastSignature != "c" {
		t.Errorf("slot bounds = %d..%d last=%s", p1.FirstSlot, p1.LastSlot, p1.LastSignature)
	}
	if p1.GuessedVenue != "Jupiter" {
		t.Errorf("GuessedVenue = %q, want Jupiter", p1.GuessedVenue)
	}

	top, _ := store.List(ctx, 1)
	if len(top) != 1 {
		t.Errorf("List(1) returned %d programs", len(top))
	}
}
