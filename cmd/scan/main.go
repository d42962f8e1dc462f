// Command scan fetches Solana blocks, detects swaps and classifies MEV.
//
// Modes:
//
//	scan -from 250000000 -to 250000010   scan a slot range
//	scan -latest 5                       scan the most recent slots
//	scan -follow [-from N]               follow the chain tip until interrupted
//	scan -sig <signature>                analyze one transaction
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/app"
	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/logging"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/pipeline"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/solana"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config values as defaults)
	from := flag.Int64("from", -1, "First slot to scan (follow mode: -1 starts at the tip)")
	to := flag.Int64("to", -1, "Last slot to scan (inclusive)")
	latest := flag.Int("latest", 0, "Scan the N most recent slots")
	follow := flag.Bool("follow", false, "Follow new slots until interrupted")
	sig := flag.String("sig", "", "Analyze a single transaction signature")
	profile := flag.String("profile", cfg.Detect.ArbitrageProfile, "Arbitrage profile: permissive, strict, mev")
	rpcURL := flag.String("rpc-url", cfg.RPC.URL, "Solana RPC HTTP endpoint")
	wsURL := flag.String("ws-url", cfg.RPC.WSURL, "Solana WebSocket endpoint (follow mode; empty polls getSlot)")
	reportPath := flag.String("report", "", "Write a Markdown report of the run to this file")
	csvDir := flag.String("csv-dir", "", "Write findings.csv and arbitrage.csv of the run to this directory")
	metricsAddr := flag.String("metrics-addr", cfg.Server.MetricsAddr, "Prometheus metrics address (empty to disable)")
	flag.Parse()

	cfg.RPC.URL = *rpcURL
	cfg.RPC.WSURL = *wsURL

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{
		from:        *from,
		to:          *to,
		latest:      *latest,
		follow:      *follow,
		signature:   *sig,
		profile:     *profile,
		reportPath:  *reportPath,
		csvDir:      *csvDir,
		metricsAddr: *metricsAddr,
	}); err != nil {
		log.WithError(err).Error("Scan failed")
		os.Exit(1)
	}
}

type options struct {
	from, to    int64
	latest      int
	follow      bool
	signature   string
	profile     string
	reportPath  string
	csvDir      string
	metricsAddr string
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts options) error {
	metrics := observability.NewMetrics("", nil)
	app.ServeMetrics(ctx, opts.metricsAddr, log)

	reg, err := app.OpenRegistry(ctx, cfg.Database.Redis, log)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	analyzer, err := app.NewAnalyzer(cfg.Detect, opts.profile, reg.Registry, metrics, log)
	if err != nil {
		return err
	}
	rpc := app.NewRPCClient(cfg.RPC, metrics, log)

	if opts.signature != "" {
		return analyzeSignature(ctx, rpc, analyzer, opts.signature)
	}

	stores, err := app.OpenStores(ctx, cfg.Database, metrics, log)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	sinkStores := stores.Pipeline()
	sinkStores.Venues = reg.VenueSaver()
	sink := pipeline.NewStoreSink(sinkStores, log)
	scanner := pipeline.NewScanner(rpc, analyzer, sink, app.ScannerConfig(cfg.Scan), log, metrics)

	switch {
	case opts.follow:
		return followChain(ctx, cfg, scanner, opts.from, log)
	case opts.latest > 0:
		report, err := scanner.ScanLatest(ctx, opts.latest)
		return finish(ctx, stores, report, err, opts)
	case opts.from >= 0 && opts.to >= opts.from:
		report, err := scanner.ScanRange(ctx, opts.from, opts.to)
		return finish(ctx, stores, report, err, opts)
	default:
		return errors.New("one of -from/-to, -latest, -follow or -sig is required")
	}
}

func followChain(ctx context.Context, cfg *config.Config, scanner *pipeline.Scanner, from int64, log logrus.FieldLogger) error {
	var sub solana.SlotSubscriber
	if cfg.RPC.WSURL != "" {
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSURL, nil, log)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()
		sub = ws
	}

	return scanner.Follow(ctx, sub, from, func(r *pipeline.ScanReport) {
		printSummary(r)
	})
}

// finish prints the run and writes the requested report files. A
// cancelled scan still reports the scopes it completed.
func finish(ctx context.Context, stores *app.Stores, report *pipeline.ScanReport, scanErr error, opts options) error {
	if report == nil {
		return scanErr
	}
	printSummary(report)

	if opts.reportPath == "" && opts.csvDir == "" {
		return scanErr
	}
	// Reports are generated even when the scan was interrupted.
	gen := reporting.NewGenerator(stores.Reporting())
	r, err := gen.GenerateRun(context.WithoutCancel(ctx), report.RunID)
	if err != nil {
		return errors.Join(scanErr, fmt.Errorf("generate report: %w", err))
	}

	if opts.reportPath != "" {
		if err := os.WriteFile(opts.reportPath, []byte(reporting.RenderMarkdown(r)), 0o644); err != nil {
			return errors.Join(scanErr, fmt.Errorf("write report: %w", err))
		}
		fmt.Printf("Report written to %s\n", opts.reportPath)
	}
	if opts.csvDir != "" {
		if err := os.MkdirAll(opts.csvDir, 0o755); err != nil {
			return errors.Join(scanErr, err)
		}
		files := map[string]string{
			"findings.csv":  reporting.RenderFindingsCSV(r.MEV.Findings),
			"arbitrage.csv": reporting.RenderOpportunitiesCSV(r.Arbitrage.Opportunities),
		}
		for name, content := range files {
			path := filepath.Join(opts.csvDir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return errors.Join(scanErr, fmt.Errorf("write %s: %w", path, err))
			}
		}
		fmt.Printf("CSV files written to %s/\n", opts.csvDir)
	}
	return scanErr
}

func printSummary(r *pipeline.ScanReport) {
	records := r.Records()
	findings := r.Findings()
	opps := r.Opportunities()

	fmt.Printf("Run %s (%s) slots %d..%d: %d completed, %d skipped, %d failed\n",
		r.RunID, r.Mode, r.From, r.To, len(r.Blocks), len(r.Skipped), len(r.Failed))
	fmt.Printf("  swaps: %d  mev findings: %d  arbitrage: %d\n", len(records), len(findings), len(opps))
	for _, f := range findings {
		fmt.Printf("  [%s %d%%] slot %d #%d %s wallet %s\n", f.Type, f.Confidence, f.Slot, f.TxIndex, f.Signature, f.Wallet)
	}
	for _, o := range opps {
		fmt.Printf("  [arbitrage %s %d] slot %d %s via %v\n", o.Confidence, o.Score, o.Slot, o.Sender, o.PlatformsUsed)
	}
	for _, e := range r.Failed {
		fmt.Printf("  failed: %v\n", e)
	}
}

// analyzeSignature runs detection on one transaction. Without a block
// position MEV classification is skipped.
func analyzeSignature(ctx context.Context, rpc solana.RPCClient, analyzer *pipeline.Analyzer, signature string) error {
	tx, err := rpc.GetTransaction(ctx, signature)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	res, err := analyzer.Analyze(ctx, []domain.Transaction{*tx})
	if err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		f := res.Failures[0]
		return fmt.Errorf("analyze %s: %w", f.Signature, f.Err)
	}
	if len(res.Records) == 0 {
		fmt.Printf("%s: no swap detected\n", signature)
		return nil
	}

	rec := res.Records[0]
	fmt.Printf("%s (slot %d)\n", rec.Signature, rec.Slot)
	fmt.Printf("  confidence: %s  wallet: %s  complexity: %s\n", rec.Confidence, rec.InitiatorWallet, rec.Complexity)
	fmt.Printf("  venues: %v\n", rec.Platforms)
	if rec.TradePath != "" {
		fmt.Printf("  path: %s\n", rec.TradePath)
	}
	if rec.StablePnL != nil {
		fmt.Printf("  stable pnl: %s\n", rec.StablePnL.StringFixed(6))
	}
	if len(rec.UnknownPrograms) > 0 {
		fmt.Printf("  unknown programs: %v\n", rec.UnknownPrograms)
	}
	if errors.Is(res.OrderingErr, mev.ErrInvalidOrdering) {
		fmt.Println("  mev: not classified (no block position for a single transaction)")
	}
	for _, o := range res.Opportunities {
		fmt.Printf("  arbitrage: %s (%d)\n", o.Confidence, o.Score)
	}
	return nil
}
