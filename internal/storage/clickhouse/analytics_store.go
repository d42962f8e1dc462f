package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// AnalyticsStore implements storage.AnalyticsStore using ClickHouse.
type AnalyticsStore struct {
	conn *Conn
}

// NewAnalyticsStore creates a new AnalyticsStore.
func NewAnalyticsStore(conn *Conn) *AnalyticsStore {
	return &AnalyticsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalyticsStore = (*AnalyticsStore)(nil)

// InsertSwaps appends swap events. Fails entire batch on duplicate signature.
func (s *AnalyticsStore) InsertSwaps(ctx context.Context, records []*domain.SwapRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer s.conn.track("swap_events.insert")(&err)

	keys := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.Signature] = struct{}{}
		keys = append(keys, r.Signature)
	}

	exists, err := s.anyExists(ctx, "swap_events", "signature", keys)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_events (
			signature, slot, tx_index, block_time, wallet, platforms, mints_in, mints_out,
			confidence, trade_path, success, fee, compute_units, stable_pnl, mev_type
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		mevType := ""
		if r.MEV != nil {
			mevType = string(r.MEV.Type)
		}
		err = batch.Append(
			r.Signature, uint64(r.Slot), uint32(r.TxIndex), r.BlockTime, r.InitiatorWallet,
			orEmpty(r.Platforms), r.InMints(), r.OutMints(),
			string(r.Confidence), r.TradePath, r.Success, r.Fee, r.ComputeUnits, r.StablePnL, mevType,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// InsertFindings appends finding events. Fails entire batch on duplicate id.
func (s *AnalyticsStore) InsertFindings(ctx context.Context, findings []*domain.MEVFinding) (err error) {
	if len(findings) == 0 {
		return nil
	}
	defer s.conn.track("mev_events.insert")(&err)

	keys := make([]string, 0, len(findings))
	seen := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		if f == nil || f.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[f.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[f.ID] = struct{}{}
		keys = append(keys, f.ID)
	}

	exists, err := s.anyExists(ctx, "mev_events", "id", keys)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO mev_events (
			id, signature, slot, tx_index, mev_type, confidence, wallet, pattern_count, suspicious
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range findings {
		err = batch.Append(
			f.ID, f.Signature, uint64(f.Slot), uint32(f.TxIndex), string(f.Type),
			uint8(f.Confidence), f.Wallet, uint8(len(f.Details.Patterns)), orEmpty(f.Details.Suspicious),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// VenueActivity counts swaps and distinct wallets per venue within [from, to].
func (s *AnalyticsStore) VenueActivity(ctx context.Context, from, to int64) (_ []*domain.VenueStat, err error) {
	defer s.conn.track("swap_events.venue_activity")(&err)

	query := `
		SELECT platform, count() AS swaps, uniqExact(wallet) AS wallets
		FROM swap_events FINAL
		ARRAY JOIN platforms AS platform
		WHERE slot >= ? AND slot <= ?
		GROUP BY platform
		ORDER BY swaps DESC, platform ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(from), uint64(to))
	if err != nil {
		return nil, fmt.Errorf("query venue activity: %w", err)
	}
	defer rows.Close()

	return scanVenueStats(rows)
}

// FindingCounts counts findings per type within [from, to].
func (s *AnalyticsStore) FindingCounts(ctx context.Context, from, to int64) (map[domain.MEVType]int, error) {
	query := `
		SELECT mev_type, count()
		FROM mev_events FINAL
		WHERE slot >= ? AND slot <= ?
		GROUP BY mev_type
	`

	rows, err := s.conn.Query(ctx, query, uint64(from), uint64(to))
	if err != nil {
		return nil, fmt.Errorf("query finding counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.MEVType]int)
	for rows.Next() {
		var mevType string
		var n uint64
		if err := rows.Scan(&mevType, &n); err != nil {
			return nil, fmt.Errorf("scan finding count row: %w", err)
		}
		counts[domain.MEVType(mevType)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finding count rows: %w", err)
	}
	return counts, nil
}

// anyExists checks whether any of keys is already present in column of table.
func (s *AnalyticsStore) anyExists(ctx context.Context, table, column string, keys []string) (bool, error) {
	query := fmt.Sprintf(`SELECT count() FROM %s WHERE has(?, %s)`, table, column)

	var count uint64
	if err := s.conn.QueryRow(ctx, query, keys).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanVenueStats(rows driver.Rows) ([]*domain.VenueStat, error) {
	var stats []*domain.VenueStat

	for rows.Next() {
		var st domain.VenueStat
		var swaps, wallets uint64
		if err := rows.Scan(&st.Venue, &swaps, &wallets); err != nil {
			return nil, fmt.Errorf("scan venue stat row: %w", err)
		}
		st.Swaps = int(swaps)
		st.Wallets = int(wallets)
		stats = append(stats, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venue stat rows: %w", err)
	}
	return stats, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
