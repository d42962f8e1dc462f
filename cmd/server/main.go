// Package main runs the HTTP API, optionally together with a chain
// follower that scans new slots and a scheduler that writes reports:
//   - API (continuous): swaps, findings, arbitrage, stats, reports
//   - Follower (continuous, -follow): slot subscription → detection → stores
//   - Reporting (scheduled, -report-interval): MEV_REPORT.md for the followed range
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mev-lab/internal/api"
	"solana-mev-lab/internal/app"
	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/logging"
	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/pipeline"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/solana"
)

// Server holds the components of the unified service.
type Server struct {
	cfg            *config.Config
	follow         bool
	from           int64
	outputDir      string
	reportInterval time.Duration

	stores  *app.Stores
	reg     *app.Registry
	metrics *observability.Metrics
	log     *logrus.Logger

	// Slot range covered by the follower since start.
	mu        sync.Mutex
	firstSlot int64
	lastSlot  int64
	batches   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config values as defaults)
	apiAddr := flag.String("api-addr", cfg.Server.APIAddr, "HTTP API address")
	metricsAddr := flag.String("metrics-addr", cfg.Server.MetricsAddr, "Prometheus metrics address (empty to serve only on the API)")
	follow := flag.Bool("follow", false, "Follow the chain tip and store results")
	from := flag.Int64("from", -1, "First slot to follow (-1 starts at the tip)")
	outputDir := flag.String("output-dir", "output", "Output directory for scheduled reports")
	reportInterval := flag.Duration("report-interval", time.Hour, "Report generation interval (0 disables, requires -follow)")
	flag.Parse()

	cfg.Server.APIAddr = *apiAddr
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("", nil)
	stores, err := app.OpenStores(ctx, cfg.Database, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open stores")
	}
	defer stores.Close()

	reg, err := app.OpenRegistry(ctx, cfg.Database.Redis, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open registry")
	}
	defer reg.Close()

	server := &Server{
		cfg:            cfg,
		follow:         *follow,
		from:           *from,
		outputDir:      *outputDir,
		reportInterval: *reportInterval,
		stores:         stores,
		reg:            reg,
		metrics:        metrics,
		log:            log,
		firstSlot:      -1,
		lastSlot:       -1,
	}

	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
		cancel()

		// A second signal forces immediate exit.
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("Forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	app.ServeMetrics(ctx, *metricsAddr, log)

	err = server.Run(ctx)
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Server error")
	}
	log.Info("Shutdown complete")
}

// Run starts every enabled component and waits for them to finish.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	apiCfg := api.DefaultConfig()
	apiCfg.Addr = s.cfg.Server.APIAddr
	srv := api.NewServer(apiCfg, s.stores.API(), s.log)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if s.follow {
		g.Go(func() error {
			if err := s.runFollower(gctx); err != nil {
				return fmt.Errorf("follower: %w", err)
			}
			return nil
		})
		if s.reportInterval > 0 {
			g.Go(func() error {
				s.runReportScheduler(gctx)
				return nil
			})
		}
	}

	return g.Wait()
}

// runFollower scans new slots until ctx is cancelled.
func (s *Server) runFollower(ctx context.Context) error {
	analyzer, err := app.NewAnalyzer(s.cfg.Detect, "", s.reg.Registry, s.metrics, s.log)
	if err != nil {
		return err
	}
	rpc := app.NewRPCClient(s.cfg.RPC, s.metrics, s.log)

	sinkStores := s.stores.Pipeline()
	sinkStores.Venues = s.reg.VenueSaver()
	scanner := pipeline.NewScanner(rpc, analyzer, pipeline.NewStoreSink(sinkStores, s.log),
		app.ScannerConfig(s.cfg.Scan), s.log, s.metrics)

	var sub solana.SlotSubscriber
	if s.cfg.RPC.WSURL != "" {
		ws, err := solana.NewWSClient(ctx, s.cfg.RPC.WSURL, nil, s.log)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()
		sub = ws
	} else {
		s.log.Info("SOLANA_WS_URL not set, polling getSlot")
	}

	return scanner.Follow(ctx, sub, s.from, s.observeBatch)
}

func (s *Server) observeBatch(r *pipeline.ScanReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstSlot < 0 || r.From < s.firstSlot {
		s.firstSlot = r.From
	}
	if r.To > s.lastSlot {
		s.lastSlot = r.To
	}
	s.batches++
}

// runReportScheduler writes a report every reportInterval and once more
// on shutdown.
func (s *Server) runReportScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.runReport(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	from, to, batches := s.firstSlot, s.lastSlot, s.batches
	s.mu.Unlock()
	if batches == 0 {
		return
	}

	log := s.log.WithFields(logrus.Fields{"from": from, "to": to})
	gen := reporting.NewGenerator(s.stores.Reporting())
	r, err := gen.Generate(ctx, from, to)
	if err != nil {
		log.WithError(err).Error("Report generation failed")
		return
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		log.WithError(err).Error("Create output directory")
		return
	}
	files := map[string]string{
		"MEV_REPORT.md": reporting.RenderMarkdown(r),
		"findings.csv":  reporting.RenderFindingsCSV(r.MEV.Findings),
		"arbitrage.csv": reporting.RenderOpportunitiesCSV(r.Arbitrage.Opportunities),
	}
	for name, content := range files {
		path := filepath.Join(s.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.WithError(err).WithField("path", path).Error("Write report file")
			return
		}
	}
	log.WithField("dir", s.outputDir).Info("Report written")
}
