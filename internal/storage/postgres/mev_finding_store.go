package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// MEVFindingStore implements storage.MEVFindingStore using PostgreSQL.
type MEVFindingStore struct {
	pool *Pool
}

// NewMEVFindingStore creates a new MEVFindingStore.
func NewMEVFindingStore(pool *Pool) *MEVFindingStore {
	return &MEVFindingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MEVFindingStore = (*MEVFindingStore)(nil)

const mevFindingColumns = `id, signature, slot, tx_index, mev_type, confidence, wallet, patterns, suspicious`

// InsertBulk adds multiple findings in one transaction. A duplicate id
// rejects the whole batch.
func (s *MEVFindingStore) InsertBulk(ctx context.Context, findings []*domain.MEVFinding) (err error) {
	if len(findings) == 0 {
		return nil
	}
	defer s.pool.track("mev_findings.insert")(&err)

	query := `INSERT INTO mev_findings (` + mevFindingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	batch := &pgx.Batch{}
	for _, f := range findings {
		if f == nil || f.ID == "" || !f.Type.IsValid() {
			return storage.ErrInvalidInput
		}
		patterns, err := encodePatterns(f.Details.Patterns)
		if err != nil {
			return fmt.Errorf("encode patterns of %s: %w", f.ID, err)
		}
		batch.Queue(query,
			f.ID, f.Signature, f.Slot, f.TxIndex, string(f.Type),
			f.Confidence, f.Wallet, patterns, orEmpty(f.Details.Suspicious))
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		return execBatch(ctx, tx, batch, "mev finding")
	})
}

// GetByID retrieves a finding by its ID.
func (s *MEVFindingStore) GetByID(ctx context.Context, id string) (*domain.MEVFinding, error) {
	query := `SELECT ` + mevFindingColumns + ` FROM mev_findings WHERE id = $1`

	f, err := scanMEVFinding(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mev finding by id: %w", err)
	}
	return f, nil
}

// GetBySignature retrieves the finding of a transaction.
func (s *MEVFindingStore) GetBySignature(ctx context.Context, signature string) (*domain.MEVFinding, error) {
	query := `SELECT ` + mevFindingColumns + ` FROM mev_findings WHERE signature = $1 ORDER BY confidence DESC LIMIT 1`

	f, err := scanMEVFinding(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mev finding by signature: %w", err)
	}
	return f, nil
}

// GetBySlotRange retrieves findings within [from, to] (inclusive).
func (s *MEVFindingStore) GetBySlotRange(ctx context.Context, from, to int64) (_ []*domain.MEVFinding, err error) {
	defer s.pool.track("mev_findings.slot_range")(&err)

	query := `
		SELECT ` + mevFindingColumns + `
		FROM mev_findings
		WHERE slot >= $1 AND slot <= $2
		ORDER BY slot ASC, tx_index ASC
	`
	return s.query(ctx, query, from, to)
}

// GetByType retrieves up to limit findings of a type, newest first.
func (s *MEVFindingStore) GetByType(ctx context.Context, t domain.MEVType, limit int) ([]*domain.MEVFinding, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + mevFindingColumns + `
		FROM mev_findings
		WHERE mev_type = $1
		ORDER BY slot DESC, tx_index DESC
		LIMIT $2
	`
	return s.query(ctx, query, string(t), limit)
}

// GetByWallet retrieves all findings attributed to wallet.
func (s *MEVFindingStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.MEVFinding, error) {
	query := `
		SELECT ` + mevFindingColumns + `
		FROM mev_findings
		WHERE wallet = $1
		ORDER BY slot ASC, tx_index ASC
	`
	return s.query(ctx, query, wallet)
}

func (s *MEVFindingStore) query(ctx context.Context, query string, args ...any) ([]*domain.MEVFinding, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mev findings: %w", err)
	}
	defer rows.Close()

	var findings []*domain.MEVFinding
	for rows.Next() {
		f, err := scanMEVFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mev finding row: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mev finding rows: %w", err)
	}
	return findings, nil
}

func scanMEVFinding(row pgx.Row) (*domain.MEVFinding, error) {
	var (
		f        domain.MEVFinding
		mevType  string
		patterns []byte
	)
	err := row.Scan(
		&f.ID,
		&f.Signature,
		&f.Slot,
		&f.TxIndex,
		&mevType,
		&f.Confidence,
		&f.Wallet,
		&patterns,
		&f.Details.Suspicious,
	)
	if err != nil {
		return nil, err
	}
	f.Type = domain.MEVType(mevType)
	if f.Details.Patterns, err = decodePatterns(patterns); err != nil {
		return nil, err
	}
	if len(f.Details.Suspicious) == 0 {
		f.Details.Suspicious = nil
	}
	return &f, nil
}
