package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// ArbitrageStore implements storage.ArbitrageStore using PostgreSQL.
type ArbitrageStore struct {
	pool *Pool
}

// NewArbitrageStore creates a new ArbitrageStore.
func NewArbitrageStore(pool *Pool) *ArbitrageStore {
	return &ArbitrageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArbitrageStore = (*ArbitrageStore)(nil)

const arbitrageColumns = `
	id, sender, slot, profile, transaction_count, platforms_used, used_multiple_dexes,
	round_trip_tokens, has_round_trip, all_criteria_met, confidence, score, signatures`

// InsertBulk adds multiple opportunities in one transaction. A duplicate
// id rejects the whole batch.
func (s *ArbitrageStore) InsertBulk(ctx context.Context, opps []*domain.ArbitrageOpportunity) (err error) {
	if len(opps) == 0 {
		return nil
	}
	defer s.pool.track("arbitrage.insert")(&err)

	query := `INSERT INTO arbitrage_opportunities (` + arbitrageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	batch := &pgx.Batch{}
	for _, o := range opps {
		if o == nil || o.ID == "" || o.Sender == "" {
			return storage.ErrInvalidInput
		}
		roundTrips, err := encodeRoundTrips(o.RoundTripTokens)
		if err != nil {
			return fmt.Errorf("encode round trips of %s: %w", o.ID, err)
		}
		batch.Queue(query,
			o.ID, o.Sender, o.Slot, o.Profile, o.TransactionCount,
			orEmpty(o.PlatformsUsed), o.UsedMultipleDexes, roundTrips, o.HasRoundTrip,
			o.AllCriteriaMet, string(o.Confidence), o.Score, orEmpty(o.Signatures))
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		return execBatch(ctx, tx, batch, "arbitrage opportunity")
	})
}

// GetByID retrieves an opportunity by its ID.
func (s *ArbitrageStore) GetByID(ctx context.Context, id string) (*domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + arbitrageColumns + ` FROM arbitrage_opportunities WHERE id = $1`

	o, err := scanOpportunity(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get arbitrage opportunity by id: %w", err)
	}
	return o, nil
}

// GetBySlotRange retrieves opportunities within [from, to] (inclusive).
func (s *ArbitrageStore) GetBySlotRange(ctx context.Context, from, to int64) ([]*domain.ArbitrageOpportunity, error) {
	query := `
		SELECT ` + arbitrageColumns + `
		FROM arbitrage_opportunities
		WHERE slot >= $1 AND slot <= $2
		ORDER BY slot ASC, score DESC, id ASC
	`
	return s.query(ctx, query, from, to)
}

// GetBySender retrieves all opportunities of a wallet.
func (s *ArbitrageStore) GetBySender(ctx context.Context, sender string) ([]*domain.ArbitrageOpportunity, error) {
	query := `
		SELECT ` + arbitrageColumns + `
		FROM arbitrage_opportunities
		WHERE sender = $1
		ORDER BY slot ASC, score DESC, id ASC
	`
	return s.query(ctx, query, sender)
}

func (s *ArbitrageStore) query(ctx context.Context, query string, args ...any) ([]*domain.ArbitrageOpportunity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query arbitrage opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*domain.ArbitrageOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan arbitrage row: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arbitrage rows: %w", err)
	}
	return opps, nil
}

func scanOpportunity(row pgx.Row) (*domain.ArbitrageOpportunity, error) {
	var (
		o          domain.ArbitrageOpportunity
		roundTrips []byte
		confidence string
	)
	err := row.Scan(
		&o.ID,
		&o.Sender,
		&o.Slot,
		&o.Profile,
		&o.TransactionCount,
		&o.PlatformsUsed,
		&o.UsedMultipleDexes,
		&roundTrips,
		&o.HasRoundTrip,
		&o.AllCriteriaMet,
		&confidence,
		&o.Score,
		&o.Signatures,
	)
	if err != nil {
		return nil, err
	}
	o.Confidence = domain.ArbitrageConfidence(confidence)
	if o.RoundTripTokens, err = decodeRoundTrips(roundTrips); err != nil {
		return nil, err
	}
	return &o, nil
}
