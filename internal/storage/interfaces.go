package storage

import (
	"context"

	"solana-mev-lab/internal/domain"
)

// SwapRecordStore provides access to swap_records storage.
// Records are stored without their MEV annotation; see MEVFindingStore.GetBySignature.
type SwapRecordStore interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate signature.
	InsertBulk(ctx context.Context, records []*domain.SwapRecord) error

	// GetBySignature retrieves a record by transaction signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error)

	// GetBySlotRange retrieves records within [from, to] (inclusive), ordered by (slot, tx_index) ASC.
	GetBySlotRange(ctx context.Context, from, to int64) ([]*domain.SwapRecord, error)

	// GetByWallet retrieves up to limit records initiated by wallet, newest slot first.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.SwapRecord, error)
}

// ArbitrageStore provides access to arbitrage_opportunities storage.
type ArbitrageStore interface {
	// InsertBulk adds multiple opportunities atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, opps []*domain.ArbitrageOpportunity) error

	// GetByID retrieves an opportunity by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ArbitrageOpportunity, error)

	// GetBySlotRange retrieves opportunities within [from, to] (inclusive), ordered by slot ASC, score DESC.
	GetBySlotRange(ctx context.Context, from, to int64) ([]*domain.ArbitrageOpportunity, error)

	// GetBySender retrieves all opportunities of a wallet, ordered by slot ASC.
	GetBySender(ctx context.Context, sender string) ([]*domain.ArbitrageOpportunity, error)
}

// MEVFindingStore provides access to mev_findings storage.
type MEVFindingStore interface {
	// InsertBulk adds multiple findings atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, findings []*domain.MEVFinding) error

	// GetByID retrieves a finding by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.MEVFinding, error)

	// GetBySignature retrieves the finding of a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.MEVFinding, error)

	// GetBySlotRange retrieves findings within [from, to] (inclusive), ordered by (slot, tx_index) ASC.
	GetBySlotRange(ctx context.Context, from, to int64) ([]*domain.MEVFinding, error)

	// GetByType retrieves up to limit findings of a type, newest slot first.
	GetByType(ctx context.Context, t domain.MEVType, limit int) ([]*domain.MEVFinding, error)

	// GetByWallet retrieves all findings attributed to wallet, ordered by (slot, tx_index) ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.MEVFinding, error)
}

// UnknownProgramStore aggregates sightings of unregistered programs.
type UnknownProgramStore interface {
	// Record adds one sighting, creating the program entry on first sight.
	Record(ctx context.Context, p *domain.UnknownProgram) error

	// List returns up to limit programs, most sighted first.
	List(ctx context.Context, limit int) ([]*domain.UnknownProgramStat, error)
}

// AnalyticsStore keeps an append-only event copy of swaps and findings
// for aggregate queries over slot ranges.
type AnalyticsStore interface {
	// InsertSwaps appends swap events. Fails entire batch on any duplicate signature.
	// A record's MEV annotation is stored with its event.
	InsertSwaps(ctx context.Context, records []*domain.SwapRecord) error

	// InsertFindings appends finding events. Fails entire batch on any duplicate id.
	InsertFindings(ctx context.Context, findings []*domain.MEVFinding) error

	// VenueActivity counts swaps and distinct wallets per venue within [from, to],
	// busiest venue first.
	VenueActivity(ctx context.Context, from, to int64) ([]*domain.VenueStat, error)

	// FindingCounts counts findings per type within [from, to].
	FindingCounts(ctx context.Context, from, to int64) (map[domain.MEVType]int, error)
}
