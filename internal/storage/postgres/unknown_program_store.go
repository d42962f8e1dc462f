package postgres

import (
	"context"
	"fmt"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// UnknownProgramStore is a PostgreSQL implementation of storage.UnknownProgramStore.
type UnknownProgramStore struct {
	pool *Pool
}

// NewUnknownProgramStore creates a new PostgreSQL unknown program store.
func NewUnknownProgramStore(pool *Pool) *UnknownProgramStore {
	return &UnknownProgramStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UnknownProgramStore = (*UnknownProgramStore)(nil)

// Record adds one sighting. The first guessed venue seen for a program sticks.
func (s *UnknownProgramStore) Record(ctx context.Context, p *domain.UnknownProgram) (err error) {
	if p == nil || p.ProgramID == "" {
		return storage.ErrInvalidInput
	}
	defer s.pool.track("unknown_programs.record")(&err)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO unknown_programs (program_id, guessed_venue, sightings, first_slot, last_slot, last_signature, updated_at)
		VALUES ($1, $2, 1, $3, $3, $4, NOW())
		ON CONFLICT (program_id) DO UPDATE
		SET sightings = unknown_programs.sightings + 1,
		    first_slot = LEAST(unknown_programs.first_slot, EXCLUDED.first_slot),
		    last_slot = GREATEST(unknown_programs.last_slot, EXCLUDED.last_slot),
		    last_signature = CASE
		        WHEN EXCLUDED.last_slot >= unknown_programs.last_slot THEN EXCLUDED.last_signature
		        ELSE unknown_programs.last_signature
		    END,
		    guessed_venue = CASE
		        WHEN unknown_programs.guessed_venue = '' THEN EXCLUDED.guessed_venue
		        ELSE unknown_programs.guessed_venue
		    END,
		    updated_at = NOW()
	`, p.ProgramID, p.GuessedVenue, p.Slot, p.Signature)
	if err != nil {
		return fmt.Errorf("record unknown program: %w", err)
	}
	return nil
}

// List returns up to limit programs, most sighted first.
func (s *UnknownProgramStore) List(ctx context.Context, limit int) ([]*domain.UnknownProgramStat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT program_id, guessed_venue, sightings, first_slot, last_slot, last_signature
		FROM unknown_programs
		ORDER BY sightings DESC, program_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unknown programs: %w", err)
	}
	defer rows.Close()

	var result []*domain.UnknownProgramStat
	for rows.Next() {
		var st domain.UnknownProgramStat
		if err := rows.Scan(&st.ProgramID, &st.GuessedVenue, &st.Sightings, &st.FirstSlot, &st.LastSlot, &st.LastSignature); err != nil {
			return nil, fmt.Errorf("scan unknown program row: %w", err)
		}
		result = append(result, &st)
	}
	return result, rows.Err()
}
