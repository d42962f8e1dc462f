package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// SwapRecordStore implements storage.SwapRecordStore using PostgreSQL.
type SwapRecordStore struct {
	pool *Pool
}

// NewSwapRecordStore creates a new SwapRecordStore.
func NewSwapRecordStore(pool *Pool) *SwapRecordStore {
	return &SwapRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

const swapRecordColumns = `
	signature, slot, tx_index, block_time, initiator_wallet, owner,
	tokens_in, tokens_out, platforms, trade_path, swap_detected, confidence,
	matched_program_ids, unknown_programs, has_relevant_token_op,
	gain_count, loss_count, unique_mints, success, fee, compute_units,
	outer_instructions, inner_instructions, complexity`

const insertSwapRecordSQL = `INSERT INTO swap_records (` + swapRecordColumns + `, stable_pnl)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25::text::numeric)`

// InsertBulk adds multiple records in one transaction. A duplicate
// signature rejects the whole batch.
func (s *SwapRecordStore) InsertBulk(ctx context.Context, records []*domain.SwapRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer s.pool.track("swap_records.insert")(&err)

	batch := &pgx.Batch{}
	for _, r := range records {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		args, err := swapRecordArgs(r)
		if err != nil {
			return err
		}
		batch.Queue(insertSwapRecordSQL, args...)
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		return execBatch(ctx, tx, batch, "swap record")
	})
}

// GetBySignature retrieves a record by transaction signature.
func (s *SwapRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.SwapRecord, error) {
	query := `SELECT ` + swapRecordColumns + `, stable_pnl::text FROM swap_records WHERE signature = $1`

	r, err := scanSwapRecord(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get swap record by signature: %w", err)
	}
	return r, nil
}

// GetBySlotRange retrieves records within [from, to] (inclusive).
func (s *SwapRecordStore) GetBySlotRange(ctx context.Context, from, to int64) (_ []*domain.SwapRecord, err error) {
	defer s.pool.track("swap_records.slot_range")(&err)

	query := `
		SELECT ` + swapRecordColumns + `, stable_pnl::text
		FROM swap_records
		WHERE slot >= $1 AND slot <= $2
		ORDER BY slot ASC, tx_index ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get swap records by slot range: %w", err)
	}
	defer rows.Close()

	return scanSwapRecords(rows)
}

// GetByWallet retrieves up to limit records initiated by wallet, newest first.
func (s *SwapRecordStore) GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.SwapRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + swapRecordColumns + `, stable_pnl::text
		FROM swap_records
		WHERE initiator_wallet = $1
		ORDER BY slot DESC, tx_index DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("get swap records by wallet: %w", err)
	}
	defer rows.Close()

	return scanSwapRecords(rows)
}

func swapRecordArgs(r *domain.SwapRecord) ([]any, error) {
	in, err := encodeMintAmounts(r.TokensIn)
	if err != nil {
		return nil, fmt.Errorf("encode tokens in: %w", err)
	}
	out, err := encodeMintAmounts(r.TokensOut)
	if err != nil {
		return nil, fmt.Errorf("encode tokens out: %w", err)
	}

	var cu *int64
	if r.ComputeUnits != nil {
		v := int64(*r.ComputeUnits)
		cu = &v
	}
	var pnl *string
	if r.StablePnL != nil {
		v := r.StablePnL.String()
		pnl = &v
	}
	complexity := r.Complexity
	if complexity == "" {
		complexity = domain.ComplexityLow
	}

	return []any{
		r.Signature, r.Slot, r.TxIndex, r.BlockTime, r.InitiatorWallet, r.Owner,
		in, out, orEmpty(r.Platforms), r.TradePath, r.SwapDetected, string(r.Confidence),
		orEmpty(r.MatchedProgramIDs), orEmpty(r.UnknownPrograms), r.HasRelevantTokenOp,
		r.GainCount, r.LossCount, r.UniqueMints, r.Success, int64(r.Fee), cu,
		r.OuterInstructions, r.InnerInstructions, string(complexity), pnl,
	}, nil
}

// scanSwapRecord scans a single row.
func scanSwapRecord(row pgx.Row) (*domain.SwapRecord, error) {
	var (
		r          domain.SwapRecord
		in, out    []byte
		confidence string
		complexity string
		fee        int64
		cu         *int64
		pnl        *string
	)

	err := row.Scan(
		&r.Signature, &r.Slot, &r.TxIndex, &r.BlockTime, &r.InitiatorWallet, &r.Owner,
		&in, &out, &r.Platforms, &r.TradePath, &r.SwapDetected, &confidence,
		&r.MatchedProgramIDs, &r.UnknownPrograms, &r.HasRelevantTokenOp,
		&r.GainCount, &r.LossCount, &r.UniqueMints, &r.Success, &fee, &cu,
		&r.OuterInstructions, &r.InnerInstructions, &complexity, &pnl,
	)
	if err != nil {
		return nil, err
	}

	if r.TokensIn, err = decodeMintAmounts(in); err != nil {
		return nil, err
	}
	if r.TokensOut, err = decodeMintAmounts(out); err != nil {
		return nil, err
	}
	r.Confidence = domain.SwapConfidence(confidence)
	r.Complexity = domain.Complexity(complexity)
	r.Fee = uint64(fee)
	if cu != nil {
		v := uint64(*cu)
		r.ComputeUnits = &v
	}
	if pnl != nil {
		d, err := decimal.NewFromString(*pnl)
		if err != nil {
			return nil, fmt.Errorf("parse stable pnl: %w", err)
		}
		r.StablePnL = &d
	}
	return &r, nil
}

// scanSwapRecords scans multiple rows into a slice of SwapRecord.
func scanSwapRecords(rows pgx.Rows) ([]*domain.SwapRecord, error) {
	var records []*domain.SwapRecord

	for rows.Next() {
		r, err := scanSwapRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap record rows: %w", err)
	}
	return records, nil
}
