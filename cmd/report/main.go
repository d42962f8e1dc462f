package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"solana-mev-lab/internal/app"
	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/logging"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	from := flag.Int64("from", -1, "First slot of the report range")
	to := flag.Int64("to", -1, "Last slot of the report range (inclusive)")
	runID := flag.String("run", "", "Report a single scan run instead of a slot range")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outputDir := flag.String("output-dir", "", "Output directory (empty writes markdown to stdout)")
	flag.Parse()

	if *runID == "" && (*from < 0 || *to < *from) {
		fmt.Fprintln(os.Stderr, "Error: -run or a valid -from/-to range is required")
		os.Exit(1)
	}
	if *format != "markdown" && *format != "csv" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(1)
	}
	if *format == "csv" && *outputDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -output-dir is required for csv output")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	// Reports read persisted results only.
	if cfg.Database.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: POSTGRES_DSN is required")
		os.Exit(1)
	}
	stores, err := app.OpenStores(ctx, cfg.Database, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	gen := reporting.NewGenerator(stores.Reporting())
	var r *reporting.Report
	if *runID != "" {
		r, err = gen.GenerateRun(ctx, *runID)
	} else {
		r, err = gen.Generate(ctx, *from, *to)
	}
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error: run %q not found\n", *runID)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(r))
		return
	}

	files := map[string]string{}
	switch *format {
	case "markdown":
		files["MEV_REPORT.md"] = reporting.RenderMarkdown(r)
	case "csv":
		files["findings.csv"] = reporting.RenderFindingsCSV(r.MEV.Findings)
		files["arbitrage.csv"] = reporting.RenderOpportunitiesCSV(r.Arbitrage.Opportunities)
	}
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Report generated successfully:")
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  - %s\n", path)
	}
}
