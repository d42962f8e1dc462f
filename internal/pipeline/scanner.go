package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/observability"
	"solana-mev-lab/internal/solana"
)

// Scan modes.
const (
	ModeRange  = "range"
	ModeLatest = "latest"
	ModeFollow = "follow"
)

// ErrInvalidRange is returned for an empty or negative slot range.
var ErrInvalidRange = errors.New("invalid slot range")

// ScopeError reports a scope that could not be completed.
type ScopeError struct {
	Slot int64
	Op   string // fetch, store
	Err  error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("slot %d: %s: %v", e.Slot, e.Op, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// Sink receives completed scopes and per-slot progress.
type Sink interface {
	SaveBlock(ctx context.Context, runID string, res *BlockResult) error
	SaveProgress(ctx context.Context, p domain.ScanProgress) error
}

// ScannerConfig bounds fetching.
type ScannerConfig struct {
	Concurrency  int     // blocks fetched and analyzed at once
	RateLimit    float64 // RPC requests per second
	Burst        int
	PollInterval time.Duration // follow mode without a slot subscription
	// MaxFollowBatch caps how many slots follow mode catches up at once.
	MaxFollowBatch int
}

// DefaultScannerConfig returns conservative public-RPC settings.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Concurrency:    4,
		RateLimit:      5,
		Burst:          5,
		PollInterval:   2 * time.Second,
		MaxFollowBatch: 32,
	}
}

// ScanReport is the outcome of one scan call.
type ScanReport struct {
	RunID      string
	Mode       string
	From       int64
	To         int64
	Blocks     []*BlockResult // completed scopes, by slot
	Skipped    []int64
	Failed     []*ScopeError
	StartedAt  time.Time
	FinishedAt time.Time
}

// Records returns every swap record of the completed scopes.
func (r *ScanReport) Records() []domain.SwapRecord {
	var out []domain.SwapRecord
	for _, b := range r.Blocks {
		out = append(out, b.Records...)
	}
	return out
}

// Opportunities returns every arbitrage opportunity of the completed scopes.
func (r *ScanReport) Opportunities() []domain.ArbitrageOpportunity {
	var out []domain.ArbitrageOpportunity
	for _, b := range r.Blocks {
		out = append(out, b.Opportunities...)
	}
	return out
}

// Findings returns every MEV finding of the completed scopes.
func (r *ScanReport) Findings() []domain.MEVFinding {
	var out []domain.MEVFinding
	for _, b := range r.Blocks {
		out = append(out, b.Findings()...)
	}
	return out
}

// Scanner fetches blocks through a rate limiter and analyzes them.
type Scanner struct {
	rpc      solana.RPCClient
	analyzer *Analyzer
	sink     Sink
	cfg      ScannerConfig
	limiter  *rate.Limiter
	log      logrus.FieldLogger
	metrics  *observability.Metrics
	clock    func() time.Time
}

// NewScanner creates a scanner. sink and metrics may be nil.
func NewScanner(rpc solana.RPCClient, analyzer *Analyzer, sink Sink, cfg ScannerConfig, log logrus.FieldLogger, metrics *observability.Metrics) *Scanner {
	def := DefaultScannerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxFollowBatch <= 0 {
		cfg.MaxFollowBatch = def.MaxFollowBatch
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		rpc:      rpc,
		analyzer: analyzer,
		sink:     sink,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		log:      log,
		metrics:  metrics,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (s *Scanner) WithClock(clock func() time.Time) *Scanner {
	s.clock = clock
	return s
}

// ScanRange scans slots from..to inclusive. Failed scopes are reported in
// the result and do not stop the others. On cancellation the completed
// scopes are returned together with the context error.
func (s *Scanner) ScanRange(ctx context.Context, from, to int64) (*ScanReport, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, from, to)
	}
	s.metrics.RecordScanRun(ModeRange)
	return s.scan(ctx, uuid.NewString(), ModeRange, from, to)
}

// ScanLatest scans the n most recent slots.
func (s *Scanner) ScanLatest(ctx context.Context, n int) (*ScanReport, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: latest %d", ErrInvalidRange, n)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tip, err := s.rpc.GetSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest slot: %w", err)
	}
	from := tip - int64(n) + 1
	if from < 0 {
		from = 0
	}
	s.metrics.RecordScanRun(ModeLatest)
	return s.scan(ctx, uuid.NewString(), ModeLatest, from, tip)
}

// Follow scans new slots as they appear, starting at from (or at the
// current tip when from is negative). With a nil subscriber the tip is
// polled. onBatch, if set, receives every catch-up report. Follow returns
// nil when ctx is cancelled.
func (s *Scanner) Follow(ctx context.Context, sub solana.SlotSubscriber, from int64, onBatch func(*ScanReport)) error {
	runID := uuid.NewString()
	s.metrics.RecordScanRun(ModeFollow)
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "mode": ModeFollow})

	next := from
	if next < 0 {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("get latest slot: %w", err)
		}
		tip, err := s.rpc.GetSlot(ctx)
		if err != nil {
			return fmt.Errorf("get latest slot: %w", err)
		}
		next = tip
	}

	tips, stop, err := s.tipSource(ctx, sub)
	if err != nil {
		return err
	}
	defer stop()

	log.WithField("slot", next).Info("Following new slots")
	for {
		var tip int64
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-tips:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("slot source closed")
			}
			tip = t
		}

		for next <= tip {
			end := tip
			if end-next+1 > int64(s.cfg.MaxFollowBatch) {
				end = next + int64(s.cfg.MaxFollowBatch) - 1
			}
			report, err := s.scan(ctx, runID, ModeFollow, next, end)
			if report != nil && onBatch != nil {
				onBatch(report)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			next = end + 1
		}
	}
}

// tipSource yields chain tips from the subscriber or by polling getSlot.
func (s *Scanner) tipSource(ctx context.Context, sub solana.SlotSubscriber) (<-chan int64, func(), error) {
	out := make(chan int64, 1)
	ctx, cancel := context.WithCancel(ctx)

	if sub != nil {
		slots, err := sub.SubscribeSlots(ctx)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("subscribe slots: %w", err)
		}
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case n, ok := <-slots:
					if !ok {
						return
					}
					offerTip(out, n.Slot)
				}
			}
		}()
		return out, cancel, nil
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			tip, err := s.rpc.GetSlot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.WithError(err).Warn("Polling slot failed")
			} else {
				offerTip(out, tip)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, cancel, nil
}

// offerTip keeps only the newest pending tip.
func offerTip(ch chan int64, tip int64) {
	for {
		select {
		case ch <- tip:
			return
		default:
		}
		select {
		case old := <-ch:
			if old > tip {
				tip = old
			}
		default:
		}
	}
}

func (s *Scanner) scan(ctx context.Context, runID, mode string, from, to int64) (*ScanReport, error) {
	report := &ScanReport{
		RunID:     runID,
		Mode:      mode,
		From:      from,
		To:        to,
		StartedAt: s.clock(),
	}
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "mode": mode})

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for slot := from; slot <= to; slot++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, skipped, scopeErr := s.scanSlot(ctx, runID, slot)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case scopeErr != nil:
				report.Failed = append(report.Failed, scopeErr)
			case skipped:
				report.Skipped = append(report.Skipped, slot)
			case res != nil:
				report.Blocks = append(report.Blocks, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Blocks, func(i, j int) bool { return report.Blocks[i].Slot < report.Blocks[j].Slot })
	sort.Slice(report.Skipped, func(i, j int) bool { return report.Skipped[i] < report.Skipped[j] })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Slot < report.Failed[j].Slot })
	report.FinishedAt = s.clock()

	log.WithFields(logrus.Fields{
		"from":      from,
		"to":        to,
		"completed": len(report.Blocks),
		"skipped":   len(report.Skipped),
		"failed":    len(report.Failed),
	}).Info("Scan finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// scanSlot processes one scope. A nil result with no error and skipped
// false means the scope was aborted by cancellation and is discarded.
func (s *Scanner) scanSlot(ctx context.Context, runID string, slot int64) (*BlockResult, bool, *ScopeError) {
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "slot": slot})

	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, false, nil
		}
		// The next token falls after the context deadline.
		return nil, false, s.fail(ctx, log, runID, slot, "rate limit", err)
	}

	block, err := s.rpc.GetBlock(ctx, slot)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, nil
		}
		if errors.Is(err, solana.ErrSlotSkipped) {
			s.metrics.RecordBlock(string(domain.ScanSkipped), slot)
			s.saveProgress(ctx, log, domain.ScanProgress{RunID: runID, Slot: slot, Status: domain.ScanSkipped})
			return nil, true, nil
		}
		return nil, false, s.fail(ctx, log, runID, slot, "fetch", err)
	}

	res, err := s.analyzer.AnalyzeBlock(ctx, block)
	if err != nil {
		log.WithError(err).Debug("Scope aborted")
		return nil, false, nil
	}

	if s.sink != nil {
		if err := s.sink.SaveBlock(ctx, runID, res); err != nil {
			if ctx.Err() != nil {
				return nil, false, nil
			}
			return nil, false, s.fail(ctx, log, runID, slot, "store", err)
		}
	}

	s.metrics.RecordBlock(string(domain.ScanCompleted), slot)
	s.saveProgress(ctx, log, domain.ScanProgress{
		RunID:        runID,
		Slot:         slot,
		Status:       domain.ScanCompleted,
		Transactions: res.Transactions,
		Swaps:        len(res.Records),
		Findings:     len(res.Findings()),
	})
	log.WithFields(logrus.Fields{
		"transactions":  res.Transactions,
		"swaps":         len(res.Records),
		"opportunities": len(res.Opportunities),
		"failures":      len(res.Failures),
	}).Debug("Scope analyzed")
	return res, false, nil
}

func (s *Scanner) fail(ctx context.Context, log logrus.FieldLogger, runID string, slot int64, op string, err error) *ScopeError {
	scopeErr := &ScopeError{Slot: slot, Op: op, Err: err}
	log.WithError(err).WithField("op", op).Warn("Scope failed")
	s.metrics.RecordBlock(string(domain.ScanFailed), slot)
	s.saveProgress(ctx, log, domain.ScanProgress{RunID: runID, Slot: slot, Status: domain.ScanFailed, Error: err.Error()})
	return scopeErr
}

func (s *Scanner) saveProgress(ctx context.Context, log logrus.FieldLogger, p domain.ScanProgress) {
	if s.sink == nil {
		return
	}
	p.ScannedAt = s.clock()
	if err := s.sink.SaveProgress(ctx, p); err != nil {
		log.WithError(err).Warn("Saving scan progress failed")
	}
}
