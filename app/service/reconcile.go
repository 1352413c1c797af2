package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-orders/app/entity"
	"github.com/vibast-solutions/ms-go-orders/app/factory"
	"github.com/vibast-solutions/ms-go-orders/app/ledger"
)

const defaultReconcileBatchSize = int64(100)

type transactionScanner interface {
	CountActive(ctx context.Context) (int64, error)
	ListByGroup(ctx context.Context, limit, offset int64) ([]*entity.Transaction, error)
	UpdateFees(ctx context.Context, t *entity.Transaction) error
	AcquireRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

type ReconcileService struct {
	txRepo transactionScanner
	logger logrus.FieldLogger
}

func NewReconcileService(txRepo transactionScanner) *ReconcileService {
	return &ReconcileService{
		txRepo: txRepo,
		logger: factory.NewModuleLogger("reconcile-service"),
	}
}

type RunOptions struct {
	DryRun    bool
	Verbose   bool
	Limit     int64
	BatchSize int64
}

// InconsistencyFinding is one row whose stored net amount still disagrees
// with the value recomputed from its components. Findings are reported for
// manual follow-up, never corrected beyond the fee-sign normalization.
type InconsistencyFinding struct {
	TransactionID    uint64
	TransactionGroup string
	ExpectedNet      float64
	StoredNet        int64
}

type RunReport struct {
	Scanned   int64
	Pairs     int64
	Corrected int64
	Skipped   int64
	Findings  []InconsistencyFinding
}

// Run scans all non-deleted transactions ordered by group, pairs adjacent
// rows, and normalizes fee signs on order-linked pairs. Structural problems
// (a broken pair) abort the run; data-quality findings accumulate in the
// report. In dry-run mode corrections are computed and reported but nothing
// is written.
//
// A MySQL lease guards against two concurrent runs racing the same offset
// window; rewriting an already-negative fee is a no-op, so a single run
// restarted from offset zero is safe.
func (s *ReconcileService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	acquired, err := s.txRepo.AcquireRunLock(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrReconcileRunning
	}
	defer func() {
		_ = s.txRepo.ReleaseRunLock(ctx)
	}()

	total := opts.Limit
	if total <= 0 {
		total, err = s.txRepo.CountActive(ctx)
		if err != nil {
			return nil, err
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}
	// A window must hold at least one full pair or the scan cannot advance.
	if batchSize < 2 {
		batchSize = 2
	}

	report := &RunReport{}
	offset := int64(0)

	for offset < total {
		limit := batchSize
		if remaining := total - offset; remaining < limit {
			limit = remaining
		}

		batch, err := s.txRepo.ListByGroup(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		pairs := len(batch) / 2
		for i := 0; i < pairs*2; i += 2 {
			first, second := batch[i], batch[i+1]
			if first.TransactionGroup != second.TransactionGroup {
				return nil, &PairingError{
					Offset:      offset + int64(i),
					FirstGroup:  first.TransactionGroup,
					SecondGroup: second.TransactionGroup,
				}
			}
			if err := s.migrate(ctx, first, second, opts, report); err != nil {
				return nil, err
			}
			report.Pairs++
			report.Scanned += 2
		}

		if len(batch)%2 == 1 {
			// Odd trailing row: re-fetch it as the head of the next batch so
			// its partner lands in the same window. A single-row window can
			// never gain a partner by re-fetching, so it is an orphan even
			// when the declared total claims more rows exist.
			if len(batch) == 1 || offset+int64(len(batch)) >= total {
				orphan := batch[len(batch)-1]
				return nil, &PairingError{
					Offset:      offset + int64(len(batch)-1),
					FirstGroup:  orphan.TransactionGroup,
					SecondGroup: "",
				}
			}
			offset += int64(len(batch) - 1)
			continue
		}

		offset += int64(len(batch))
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":   report.Scanned,
		"pairs":     report.Pairs,
		"corrected": report.Corrected,
		"skipped":   report.Skipped,
		"findings":  len(report.Findings),
		"dry_run":   opts.DryRun,
	}).Info("reconcile_run_completed")

	return report, nil
}

// migrate applies the per-pair policy. Expense-linked pairs are out of scope
// for fee rewriting and are only verified. Order-linked pairs get the
// non-positive fee sign convention. Anything else is an unexpected shape:
// verified and reported without touching it.
func (s *ReconcileService) migrate(ctx context.Context, first, second *entity.Transaction, opts RunOptions, report *RunReport) error {
	switch {
	case sameRef(first.ExpenseID, second.ExpenseID):
		s.verify(first, opts, report)
		s.verify(second, opts, report)

	case sameRef(first.OrderID, second.OrderID):
		ledger.EnsureFxRate(first)
		ledger.EnsureFxRate(second)

		if !ledger.HasNonZeroFees(first) && !ledger.HasNonZeroFees(second) {
			report.Skipped++
			return nil
		}

		now := time.Now().UTC()
		for _, t := range []*entity.Transaction{first, second} {
			ledger.ForceFeeSignsNonPositive(t)
			if !opts.DryRun {
				t.UpdatedAt = now
				if err := s.txRepo.UpdateFees(ctx, t); err != nil {
					return err
				}
			}
			s.verify(t, opts, report)
		}
		report.Corrected++

	default:
		s.verify(first, opts, report)
		s.verify(second, opts, report)
	}

	return nil
}

func (s *ReconcileService) verify(t *entity.Transaction, opts RunOptions, report *RunReport) {
	if ledger.IsConsistent(t) {
		if opts.Verbose {
			s.logger.WithFields(logrus.Fields{
				"transaction_id":    t.ID,
				"transaction_group": t.TransactionGroup,
			}).Debug("transaction_consistent")
		}
		return
	}

	finding := InconsistencyFinding{
		TransactionID:    t.ID,
		TransactionGroup: t.TransactionGroup,
		ExpectedNet:      ledger.NetValue(t),
		StoredNet:        t.NetAmountInCollectiveCurrency,
	}
	report.Findings = append(report.Findings, finding)

	s.logger.WithFields(logrus.Fields{
		"transaction_id":    t.ID,
		"transaction_group": t.TransactionGroup,
		"expected_net":      finding.ExpectedNet,
		"stored_net":        finding.StoredNet,
	}).Warn("transaction_inconsistent")
}

func sameRef(a, b *uint64) bool {
	return a != nil && b != nil && *a == *b
}
