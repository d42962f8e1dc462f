package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// Stores is the set of stores a StoreSink writes to. Nil stores are skipped.
type Stores struct {
	Swaps     storage.SwapRecordStore
	Arbitrage storage.ArbitrageStore
	Findings  storage.MEVFindingStore
	Progress  storage.ScanProgressStore
	Unknown   storage.UnknownProgramStore
	Analytics storage.AnalyticsStore
	Venues    VenueSaver
}

// VenueSaver persists venues guessed by prefix discovery so that later
// runs can register them. The running registry is not changed.
type VenueSaver interface {
	SaveVenue(ctx context.Context, programID, name string) (bool, error)
}

// StoreSink persists block results. Rescanning a stored slot is not an
// error: batches that are already present are skipped.
type StoreSink struct {
	stores Stores
	log    logrus.FieldLogger
}

// NewStoreSink creates a sink over stores.
func NewStoreSink(stores Stores, log logrus.FieldLogger) *StoreSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoreSink{stores: stores, log: log}
}

var _ Sink = (*StoreSink)(nil)

// SaveBlock writes the records, findings, opportunities and unknown
// program sightings of one scope.
func (s *StoreSink) SaveBlock(ctx context.Context, runID string, res *BlockResult) error {
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "slot": res.Slot})

	records := make([]*domain.SwapRecord, len(res.Records))
	for i := range res.Records {
		records[i] = &res.Records[i]
	}
	var findings []*domain.MEVFinding
	for i := range res.Records {
		if f := res.Records[i].MEV; f != nil {
			findings = append(findings, f)
		}
	}
	opps := make([]*domain.ArbitrageOpportunity, len(res.Opportunities))
	for i := range res.Opportunities {
		opps[i] = &res.Opportunities[i]
	}

	if s.stores.Swaps != nil {
		if err := s.insert(log, "swap records", s.stores.Swaps.InsertBulk(ctx, records)); err != nil {
			return err
		}
	}
	if s.stores.Findings != nil {
		if err := s.insert(log, "mev findings", s.stores.Findings.InsertBulk(ctx, findings)); err != nil {
			return err
		}
	}
	if s.stores.Arbitrage != nil {
		if err := s.insert(log, "arbitrage opportunities", s.stores.Arbitrage.InsertBulk(ctx, opps)); err != nil {
			return err
		}
	}
	if s.stores.Analytics != nil {
		if err := s.insert(log, "swap events", s.stores.Analytics.InsertSwaps(ctx, records)); err != nil {
			return err
		}
		if err := s.insert(log, "finding events", s.stores.Analytics.InsertFindings(ctx, findings)); err != nil {
			return err
		}
	}
	if s.stores.Unknown != nil {
		for i := range res.Unknown {
			if err := s.stores.Unknown.Record(ctx, &res.Unknown[i]); err != nil {
				return fmt.Errorf("record unknown program %s: %w", res.Unknown[i].ProgramID, err)
			}
		}
	}
	s.saveGuessedVenues(ctx, log, res.Unknown)
	return nil
}

// saveGuessedVenues is best effort: a registry cache outage must not fail the scope.
func (s *StoreSink) saveGuessedVenues(ctx context.Context, log logrus.FieldLogger, unknown []domain.UnknownProgram) {
	if s.stores.Venues == nil {
		return
	}
	for _, u := range unknown {
		if u.GuessedVenue == "" {
			continue
		}
		added, err := s.stores.Venues.SaveVenue(ctx, u.ProgramID, u.GuessedVenue)
		if err != nil {
			log.WithError(err).WithField("program_id", u.ProgramID).Warn("Saving discovered venue failed")
			continue
		}
		if added {
			log.WithFields(logrus.Fields{"program_id": u.ProgramID, "venue": u.GuessedVenue}).Info("Discovered venue")
		}
	}
}

// SaveProgress records the outcome of one slot.
func (s *StoreSink) SaveProgress(ctx context.Context, p domain.ScanProgress) error {
	if s.stores.Progress == nil {
		return nil
	}
	return s.stores.Progress.Save(ctx, &p)
}

func (s *StoreSink) insert(log logrus.FieldLogger, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrDuplicateKey) {
		log.WithField("batch", what).Debug("Batch already stored")
		return nil
	}
	return fmt.Errorf("store %s: %w", what, err)
}
