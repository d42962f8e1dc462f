// Package postgres implements the append-only stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/storage"
)

// Pool is a pgx pool plus the metrics every store records into.
type Pool struct {
	*pgxpool.Pool
	metrics *observability.Metrics
}

// Pool sizing used when the DSN does not set pool_max_conns and friends.
const (
	defaultMaxConns          = 16
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = 30 * time.Second
	applicationName          = "solana-mev-lab"
)

// NewPool connects to dsn and pings the server once.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyDefaults(cfg, dsn)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", cfg.ConnConfig.Host, err)
	}
	return &Pool{Pool: pool}, nil
}

// applyDefaults fills settings the DSN left at pgx defaults. A scan
// writes from several workers at once, so the pool is larger than pgx's
// CPU-based default.
func applyDefaults(cfg *pgxpool.Config, dsn string) {
	if !hasParam(dsn, "pool_max_conns") {
		cfg.MaxConns = defaultMaxConns
	}
	if !hasParam(dsn, "pool_max_conn_idle_time") {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if !hasParam(dsn, "pool_health_check_period") {
		cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}

// hasParam reports whether a URL or keyword/value DSN sets name.
func hasParam(dsn, name string) bool {
	return strings.Contains(dsn, name+"=")
}

// SetMetrics enables query metrics for every store built on the pool.
func (p *Pool) SetMetrics(m *observability.Metrics) {
	p.metrics = m
}

// track starts timing a store operation. Call the result with the
// operation's error when it returns: defer p.track("op")(&err).
func (p *Pool) track(operation string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		p.metrics.RecordDBQuery("postgres", operation, time.Since(start), *errp)
	}
}

// inTx runs fn in a transaction, committing only when fn succeeds.
// Errors from fn are returned as is so callers can match storage errors.
func (p *Pool) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// execBatch sends b on tx and stops at the first failing statement.
func execBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch, what string) error {
	br := tx.SendBatch(ctx, b)
	for i := range b.Len() {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert %s #%d: %w", what, i, err)
		}
	}
	return br.Close()
}

// SQLSTATE codes the stores map onto storage errors.
const (
	pgErrUniqueViolation = "23505"
	pgErrCheckViolation  = "23514"
)

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// isCheckViolation reports a rejected enum value, e.g. an unknown scan status.
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCheckViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// orEmpty keeps NOT NULL array columns from receiving NULL.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
