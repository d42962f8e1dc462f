// Package pipeline fetches scopes (blocks) and runs detection, grouping
// and classification over them.
package pipeline

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mev-lab/internal/arbitrage"
	"solana-mev-lab/internal/detect"
	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/mev"
	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/registry"
)

// TxFailure is a transaction that could not be analyzed.
type TxFailure struct {
	Signature string
	TxIndex   int
	Err       error
}

// BlockResult is the analysis of one scope.
type BlockResult struct {
	Slot          int64
	BlockTime     *int64
	Transactions  int
	Records       []domain.SwapRecord // ordered by TxIndex, MEV findings attached
	Opportunities []domain.ArbitrageOpportunity
	Summary       domain.ArbitrageSummary
	Unknown       []domain.UnknownProgram
	Failures      []TxFailure
	// OrderingErr is set when classification was skipped because the
	// records had no usable block positions.
	OrderingErr error
}

// Findings returns the MEV findings attached to the records.
func (r *BlockResult) Findings() []domain.MEVFinding {
	var out []domain.MEVFinding
	for _, rec := range r.Records {
		if rec.MEV != nil {
			out = append(out, *rec.MEV)
		}
	}
	return out
}

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	Profile arbitrage.Profile
	MEV     mev.Options
	// Workers bounds per-transaction detection. Zero means NumCPU.
	Workers int
}

// Analyzer runs the per-block analysis. Detection fans out across
// transactions; grouping and classification run once every detection
// in the block has finished.
type Analyzer struct {
	reg        *registry.Registry
	detector   *detect.Detector
	classifier *mev.Classifier
	profile    arbitrage.Profile
	workers    int
	log        logrus.FieldLogger
	metrics    *observability.Metrics
}

// NewAnalyzer creates an analyzer. metrics may be nil.
func NewAnalyzer(reg *registry.Registry, cfg AnalyzerConfig, log logrus.FieldLogger, metrics *observability.Metrics) *Analyzer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	profile := cfg.Profile
	if profile.Name == "" {
		profile = arbitrage.Permissive
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{
		reg:        reg,
		detector:   detect.NewDetector(reg),
		classifier: mev.NewClassifier(reg, cfg.MEV),
		profile:    profile,
		workers:    workers,
		log:        log,
		metrics:    metrics,
	}
}

// AnalyzeBlock analyzes every transaction in block. A cancelled context
// aborts the block and no partial result is returned.
func (a *Analyzer) AnalyzeBlock(ctx context.Context, block *domain.Block) (*BlockResult, error) {
	res, err := a.Analyze(ctx, block.Transactions)
	if err != nil {
		return nil, err
	}
	res.Slot = block.Slot
	res.BlockTime = block.BlockTime
	return res, nil
}

// Analyze runs detection over txs, then grouping and classification over
// the detected swaps. Transactions are expected to share one scope.
func (a *Analyzer) Analyze(ctx context.Context, txs []domain.Transaction) (*BlockResult, error) {
	start := time.Now()

	records := make([]*domain.SwapRecord, len(txs))
	failures := make([]error, len(txs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := a.detector.Detect(&txs[i])
			if err != nil {
				failures[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BlockResult{Transactions: len(txs)}
	if len(txs) > 0 {
		res.Slot = txs[0].Slot
		res.BlockTime = txs[0].BlockTime
	}

	detected := make([]domain.SwapRecord, 0, len(txs))
	for i := range txs {
		if err := failures[i]; err != nil {
			a.recordFailure(res, &txs[i], err)
			continue
		}
		rec := records[i]
		if rec == nil || !rec.SwapDetected {
			continue
		}
		detected = append(detected, *rec)
		a.metrics.RecordSwap(rec.Confidence.String())
		res.Unknown = append(res.Unknown, a.discover(rec)...)
	}

	res.Opportunities = arbitrage.Group(detected, a.profile)
	res.Summary = arbitrage.Summary(res.Opportunities)
	for _, o := range res.Opportunities {
		a.metrics.RecordArbitrage(o.Confidence.String())
	}

	classified, err := a.classifier.Classify(detected)
	if err != nil {
		res.OrderingErr = err
		a.log.WithError(err).WithField("slot", res.Slot).Warn("MEV classification skipped")
	}
	res.Records = classified
	for _, rec := range classified {
		if rec.MEV != nil {
			a.metrics.RecordFinding(rec.MEV.Type.String())
		}
	}

	a.metrics.RecordAnalysis(len(txs), time.Since(start))
	return res, nil
}

func (a *Analyzer) recordFailure(res *BlockResult, tx *domain.Transaction, err error) {
	res.Failures = append(res.Failures, TxFailure{Signature: tx.Signature, TxIndex: tx.TxIndex, Err: err})

	reason := "error"
	switch {
	case errors.Is(err, detect.ErrMissingData):
		reason = "missing_data"
	case errors.Is(err, detect.ErrMalformedInstruction):
		reason = "malformed_instruction"
	}
	a.metrics.RecordTransactionError(reason)
	a.log.WithFields(logrus.Fields{
		"signature": tx.Signature,
		"slot":      tx.Slot,
		"tx_index":  tx.TxIndex,
	}).WithError(err).Warn("Transaction not analyzed")
}

// discover reports the unregistered programs behind a probable swap.
func (a *Analyzer) discover(rec *domain.SwapRecord) []domain.UnknownProgram {
	if rec.Confidence != domain.SwapProbable {
		return nil
	}
	var out []domain.UnknownProgram
	for _, pid := range rec.UnknownPrograms {
		if a.reg.IsVenue(pid) || a.reg.IsInfrastructure(pid) {
			continue
		}
		guess, _ := a.reg.Discover(pid)
		out = append(out, domain.UnknownProgram{
			ProgramID:    pid,
			GuessedVenue: guess,
			Slot:         rec.Slot,
			Signature:    rec.Signature,
		})
		a.metrics.RecordUnknownProgram()
	}
	return out
}
