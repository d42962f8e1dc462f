// Command replay re-runs arbitrage grouping and MEV classification over
// stored swap records, optionally verifying the stored results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"solana-mev-lab/internal/app"
	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/logging"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/replay"
	"solana-mev-lab/internal/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	from := flag.Int64("from", -1, "First slot to replay")
	to := flag.Int64("to", -1, "Last slot to replay (inclusive)")
	profile := flag.String("profile", cfg.Detect.ArbitrageProfile, "Arbitrage profile: permissive, strict, mev")
	verify := flag.Bool("verify", false, "Compare the replay with stored findings and opportunities")
	flag.Parse()

	if *from < 0 || *to < *from {
		fmt.Fprintln(os.Stderr, "Error: a valid -from/-to range is required")
		os.Exit(1)
	}
	if cfg.Database.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: POSTGRES_DSN is required")
		os.Exit(1)
	}
	p, err := arbitrage.ProfileByName(*profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Database, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	reg, err := app.OpenRegistry(ctx, cfg.Database.Redis, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening registry: %v\n", err)
		os.Exit(1)
	}
	defer reg.Close()

	runner := replay.NewRunner(stores.Swaps, reg.Registry, p, mev.Options{
		MaxIndexGap:        cfg.Detect.MaxIndexGap,
		RequireRepeatActor: cfg.Detect.RequireRepeatActor,
	})

	if *verify {
		report, err := verification.NewReplayVerifier(runner, stores.Findings, stores.Arbitrage).VerifyRange(ctx, *from, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error verifying: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Verified slots %d..%d (%d with swaps): %d findings, %d opportunities, %d matched, %d divergent\n",
			report.From, report.To, report.Slots, report.Findings, report.Opportunities, report.Matched, report.Divergent)
		for _, r := range report.Results {
			fmt.Printf("  %s %s (slot %d)\n", r.Kind, r.Key, r.Slot)
			for _, d := range r.Divergences {
				fmt.Printf("    %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
			}
		}
		if !report.OK() {
			os.Exit(2)
		}
		return
	}

	var c replay.Collector
	if err := runner.Run(ctx, *from, *to, &c); err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying: %v\n", err)
		os.Exit(1)
	}
	opps := c.Opportunities()
	summary := arbitrage.Summary(opps)
	fmt.Printf("Replayed %d slots with profile %s\n", len(c.Results), p.Name)
	fmt.Printf("  findings: %d  opportunities: %d  perfect: %d  high: %d\n",
		len(c.Findings()), summary.TotalOpportunities, summary.PerfectArbitrageCount, summary.HighConfidenceCount)
	for _, f := range c.Findings() {
		fmt.Printf("  [%s %d%%] slot %d #%d %s\n", f.Type, f.Confidence, f.Slot, f.TxIndex, f.Signature)
	}
	for _, o := range opps {
		fmt.Printf("  [arbitrage %s %d] slot %d %s\n", o.Confidence, o.Score, o.Slot, o.Sender)
	}
}
