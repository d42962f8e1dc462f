// Package app turns configuration into the stores, registry and scanner
// shared by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/api"
	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/pipeline"
	"solana-mev-lab/internal/registry"
	"solana-mev-lab/internal/registry/redisstore"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/solana"
	"solana-mev-lab/internal/storage"
	chstore "solana-mev-lab/internal/storage/clickhouse"
	"solana-mev-lab/internal/storage/memory"
	pgstore "solana-mev-lab/internal/storage/postgres"
)

// Stores holds every store a command may use. Analytics is nil unless
// ClickHouse is configured.
type Stores struct {
	Swaps     storage.SwapRecordStore
	Findings  storage.MEVFindingStore
	Arbitrage storage.ArbitrageStore
	Progress  storage.ScanProgressStore
	Unknown   storage.UnknownProgramStore
	Analytics storage.AnalyticsStore
	// Persistent is false for the in-memory fallback.
	Persistent bool

	closers []func()
}

// OpenStores connects to PostgreSQL (and ClickHouse when configured),
// applying migrations first. Without a PostgreSQL DSN the stores are
// in-memory and live only as long as the process.
func OpenStores(ctx context.Context, db config.DatabaseConfig, metrics *observability.Metrics, log logrus.FieldLogger) (*Stores, error) {
	if db.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN not set, results are kept in memory only")
		s := &Stores{
			Swaps:     memory.NewSwapRecordStore(),
			Findings:  memory.NewMEVFindingStore(),
			Arbitrage: memory.NewArbitrageStore(),
			Progress:  memory.NewScanProgressStore(),
			Unknown:   memory.NewUnknownProgramStore(),
		}
		if db.ClickHouseDSN == "" {
			s.Analytics = memory.NewAnalyticsStore()
		} else if err := s.openClickHouse(ctx, db.ClickHouseDSN, metrics, log); err != nil {
			return nil, err
		}
		return s, nil
	}

	pool, err := pgstore.NewPool(ctx, db.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pool.SetMetrics(metrics)
	applied, err := pool.Migrate(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if applied > 0 {
		log.WithField("migrations", applied).Info("Applied PostgreSQL migrations")
	}

	s := &Stores{
		Swaps:      pgstore.NewSwapRecordStore(pool),
		Findings:   pgstore.NewMEVFindingStore(pool),
		Arbitrage:  pgstore.NewArbitrageStore(pool),
		Progress:   pgstore.NewScanProgressStore(pool),
		Unknown:    pgstore.NewUnknownProgramStore(pool),
		Persistent: true,
		closers:    []func(){pool.Close},
	}
	log.Info("Connected to PostgreSQL")

	if db.ClickHouseDSN != "" {
		if err := s.openClickHouse(ctx, db.ClickHouseDSN, metrics, log); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("Connected to ClickHouse")
	}
	return s, nil
}

func (s *Stores) openClickHouse(ctx context.Context, dsn string, metrics *observability.Metrics, log logrus.FieldLogger) error {
	conn, applied, err := chstore.Migrate(ctx, dsn)
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	if applied > 0 {
		log.WithField("migrations", applied).Info("Applied ClickHouse migrations")
	}
	conn.SetMetrics(metrics)
	s.Analytics = chstore.NewAnalyticsStore(conn)
	s.closers = append(s.closers, func() { _ = conn.Close() })
	return nil
}

// Close releases the database connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Pipeline returns the stores a StoreSink writes to.
func (s *Stores) Pipeline() pipeline.Stores {
	return pipeline.Stores{
		Swaps:     s.Swaps,
		Arbitrage: s.Arbitrage,
		Findings:  s.Findings,
		Progress:  s.Progress,
		Unknown:   s.Unknown,
		Analytics: s.Analytics,
	}
}

// API returns the stores the HTTP API reads.
func (s *Stores) API() api.Stores {
	return api.Stores{
		Swaps:     s.Swaps,
		Findings:  s.Findings,
		Arbitrage: s.Arbitrage,
		Progress:  s.Progress,
		Unknown:   s.Unknown,
		Analytics: s.Analytics,
	}
}

// Reporting returns the stores a report generator reads.
func (s *Stores) Reporting() reporting.Stores {
	return reporting.Stores{
		Swaps:     s.Swaps,
		Findings:  s.Findings,
		Arbitrage: s.Arbitrage,
		Progress:  s.Progress,
		Unknown:   s.Unknown,
		Analytics: s.Analytics,
	}
}

// Registry is the venue registry plus its optional Redis persistence.
type Registry struct {
	*registry.Registry
	// Store is nil when Redis is not configured.
	Store  *redisstore.Store
	client *redis.Client
}

// OpenRegistry builds the default registry and merges persisted entries
// from Redis when REDIS_ADDR is set.
func OpenRegistry(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*Registry, error) {
	r := &Registry{Registry: registry.New()}
	if cfg.Addr == "" {
		return r, nil
	}

	client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, err
	}
	r.client = client
	r.Store = redisstore.New(client, log)

	n, err := r.Store.LoadInto(ctx, r.Registry)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.WithField("entries", n).Info("Loaded persisted registry entries")
	return r, nil
}

// VenueSaver returns the Redis store as a pipeline.VenueSaver, or nil.
func (r *Registry) VenueSaver() pipeline.VenueSaver {
	if r.Store == nil {
		return nil
	}
	return r.Store
}

// Close closes the Redis client, if any.
func (r *Registry) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
}

// NewRPCClient builds the Solana HTTP client with metrics attached.
func NewRPCClient(cfg config.RPCConfig, metrics *observability.Metrics, log logrus.FieldLogger) *solana.HTTPClient {
	return solana.NewHTTPClient(cfg.URL,
		solana.WithTimeout(cfg.Timeout),
		solana.WithMaxRetries(cfg.MaxRetries),
		solana.WithEncoding(solana.Encoding(cfg.Encoding)),
		solana.WithCommitment(cfg.Commitment),
		solana.WithObserver(metrics.RecordRPC),
		solana.WithLogger(log),
	)
}

// NewAnalyzer builds the per-block analyzer from the detection settings.
// profile overrides ARBITRAGE_PROFILE when non-empty.
func NewAnalyzer(cfg config.DetectConfig, profile string, reg *registry.Registry, metrics *observability.Metrics, log logrus.FieldLogger) (*pipeline.Analyzer, error) {
	if profile == "" {
		profile = cfg.ArbitrageProfile
	}
	p, err := arbitrage.ProfileByName(profile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewAnalyzer(reg, pipeline.AnalyzerConfig{
		Profile: p,
		MEV: mev.Options{
			MaxIndexGap:        cfg.MaxIndexGap,
			RequireRepeatActor: cfg.RequireRepeatActor,
		},
		Workers: cfg.Workers,
	}, log, metrics), nil
}

// ScannerConfig maps the scan settings onto the scanner.
func ScannerConfig(cfg config.ScanConfig) pipeline.ScannerConfig {
	sc := pipeline.DefaultScannerConfig()
	sc.Concurrency = cfg.FetchConcurrency
	sc.RateLimit = cfg.RateLimit
	sc.Burst = cfg.Burst
	sc.PollInterval = cfg.PollInterval
	return sc
}

// ServeMetrics exposes /metrics on addr until ctx is cancelled.
// An empty addr disables it.
func ServeMetrics(ctx context.Context, addr string, log logrus.FieldLogger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
}
