package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

type listCall struct {
	Limit  int64
	Offset int64
}

type scannerFake struct {
	rows      []*entity.Transaction
	updated   []uint64
	listCalls []listCall
	lockBusy  bool
	released  bool
}

func (s *scannerFake) CountActive(ctx context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *scannerFake) ListByGroup(ctx context.Context, limit, offset int64) ([]*entity.Transaction, error) {
	s.listCalls = append(s.listCalls, listCall{Limit: limit, Offset: offset})
	if offset >= int64(len(s.rows)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(s.rows)) {
		end = int64(len(s.rows))
	}
	out := make([]*entity.Transaction, 0, end-offset)
	for _, row := range s.rows[offset:end] {
		copied := *row
		out = append(out, &copied)
	}
	return out, nil
}

func (s *scannerFake) UpdateFees(ctx context.Context, t *entity.Transaction) error {
	for _, row := range s.rows {
		if row.ID == t.ID {
			row.HostFeeInHostCurrency = t.HostFeeInHostCurrency
			row.PlatformFeeInHostCurrency = t.PlatformFeeInHostCurrency
			row.PaymentProcessorFeeInHostCurrency = t.PaymentProcessorFeeInHostCurrency
			row.HostCurrencyFxRate = t.HostCurrencyFxRate
			s.updated = append(s.updated, t.ID)
			return nil
		}
	}
	return errors.New("transaction not found")
}

func (s *scannerFake) AcquireRunLock(ctx context.Context) (bool, error) {
	return !s.lockBusy, nil
}

func (s *scannerFake) ReleaseRunLock(ctx context.Context) error {
	s.released = true
	return nil
}

func ratePtr(v float64) *float64 {
	return &v
}

func refPtr(v uint64) *uint64 {
	return &v
}

// workedOrderPair is a credit row that is already consistent next to a debit
// row stored with positive fee signs. Normalizing the signs moves the debit's
// recomputed net from -900 to -1100, which still disagrees with the stored
// -1000, so the debit must surface as a finding.
func workedOrderPair(creditID, debitID, orderID uint64, group string) (*entity.Transaction, *entity.Transaction) {
	credit := &entity.Transaction{
		ID:                            creditID,
		Type:                          entity.TransactionTypeCredit,
		TransactionGroup:              group,
		OrderID:                       refPtr(orderID),
		Amount:                        1000,
		AmountInHostCurrency:          1000,
		HostCurrencyFxRate:            ratePtr(1),
		NetAmountInCollectiveCurrency: 1000,
	}
	debit := &entity.Transaction{
		ID:                                debitID,
		Type:                              entity.TransactionTypeDebit,
		TransactionGroup:                  group,
		OrderID:                           refPtr(orderID),
		Amount:                            -1000,
		AmountInHostCurrency:              -1000,
		HostFeeInHostCurrency:             50,
		PlatformFeeInHostCurrency:         30,
		PaymentProcessorFeeInHostCurrency: 20,
		HostCurrencyFxRate:                ratePtr(1),
		NetAmountInCollectiveCurrency:     -1000,
	}
	return credit, debit
}

// consistentExpensePair is an expense-linked pair whose rows already satisfy
// the net-amount equation.
func consistentExpensePair(creditID, debitID, expenseID uint64, group string) (*entity.Transaction, *entity.Transaction) {
	credit := &entity.Transaction{
		ID:                            creditID,
		Type:                          entity.TransactionTypeCredit,
		TransactionGroup:              group,
		ExpenseID:                     refPtr(expenseID),
		Amount:                        500,
		AmountInHostCurrency:          500,
		HostCurrencyFxRate:            ratePtr(1),
		NetAmountInCollectiveCurrency: 500,
	}
	debit := &entity.Transaction{
		ID:                            debitID,
		Type:                          entity.TransactionTypeDebit,
		TransactionGroup:              group,
		ExpenseID:                     refPtr(expenseID),
		Amount:                        -500,
		AmountInHostCurrency:          -500,
		HostCurrencyFxRate:            ratePtr(1),
		NetAmountInCollectiveCurrency: -500,
	}
	return credit, debit
}

func TestReconcileCorrectsOrderLinkedPair(t *testing.T) {
	credit, debit := workedOrderPair(1, 2, 10, "group-a")
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Scanned != 2 || report.Pairs != 1 || report.Corrected != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(repo.updated) != 2 {
		t.Fatalf("expected both rows rewritten, got %v", repo.updated)
	}
	if debit.HostFeeInHostCurrency != -50 || debit.PlatformFeeInHostCurrency != -30 || debit.PaymentProcessorFeeInHostCurrency != -20 {
		t.Fatalf("expected non-positive fee signs persisted, got %+v", debit)
	}

	if len(report.Findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(report.Findings))
	}
	finding := report.Findings[0]
	if finding.TransactionID != 2 || finding.ExpectedNet != -1100 || finding.StoredNet != -1000 {
		t.Fatalf("unexpected finding: %+v", finding)
	}

	if !repo.released {
		t.Fatal("expected run lock released")
	}
}

func TestReconcileDryRunWritesNothing(t *testing.T) {
	credit, debit := workedOrderPair(1, 2, 10, "group-a")
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(repo.updated) != 0 {
		t.Fatalf("dry run must not write, got updates %v", repo.updated)
	}
	if debit.HostFeeInHostCurrency != 50 {
		t.Fatalf("stored row must stay untouched, got host fee %d", debit.HostFeeInHostCurrency)
	}

	// The correction is still computed so the report previews the real run.
	if report.Corrected != 1 {
		t.Fatalf("expected corrected count 1, got %d", report.Corrected)
	}
	if len(report.Findings) != 1 || report.Findings[0].TransactionID != 2 {
		t.Fatalf("expected the residual debit finding, got %+v", report.Findings)
	}
}

func TestReconcileSkipsFeelessOrderPair(t *testing.T) {
	credit, debit := workedOrderPair(1, 2, 10, "group-a")
	debit.HostFeeInHostCurrency = 0
	debit.PlatformFeeInHostCurrency = 0
	debit.PaymentProcessorFeeInHostCurrency = 0
	debit.NetAmountInCollectiveCurrency = -1000
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Skipped != 1 || report.Corrected != 0 {
		t.Fatalf("expected pair skipped, got %+v", report)
	}
	if len(repo.updated) != 0 {
		t.Fatalf("feeless pair must not be rewritten, got %v", repo.updated)
	}
}

func TestReconcileExpenseLinkedVerifyOnly(t *testing.T) {
	credit, debit := consistentExpensePair(1, 2, 77, "group-a")
	debit.NetAmountInCollectiveCurrency = -400
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(repo.updated) != 0 {
		t.Fatalf("expense-linked rows must never be rewritten, got %v", repo.updated)
	}
	if report.Corrected != 0 {
		t.Fatalf("expected no corrections, got %d", report.Corrected)
	}
	if len(report.Findings) != 1 || report.Findings[0].TransactionID != 2 {
		t.Fatalf("expected the drifted debit reported, got %+v", report.Findings)
	}
	if report.Findings[0].ExpectedNet != -500 || report.Findings[0].StoredNet != -400 {
		t.Fatalf("unexpected finding amounts: %+v", report.Findings[0])
	}
}

func TestReconcileBrokenPairAbortsRun(t *testing.T) {
	first, _ := consistentExpensePair(1, 2, 77, "group-a")
	second, _ := consistentExpensePair(3, 4, 78, "group-b")
	repo := &scannerFake{rows: []*entity.Transaction{first, second}}
	svc := NewReconcileService(repo)

	_, err := svc.Run(context.Background(), RunOptions{})

	var pairErr *PairingError
	if !errors.As(err, &pairErr) {
		t.Fatalf("expected pairing error, got %v", err)
	}
	if pairErr.Offset != 0 || pairErr.FirstGroup != "group-a" || pairErr.SecondGroup != "group-b" {
		t.Fatalf("unexpected pairing error: %+v", pairErr)
	}
	if !repo.released {
		t.Fatal("expected run lock released after abort")
	}
}

func TestReconcileOrphanAtScanEnd(t *testing.T) {
	credit, debit := consistentExpensePair(1, 2, 77, "group-a")
	orphan, _ := consistentExpensePair(3, 4, 78, "group-b")
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit, orphan}}
	svc := NewReconcileService(repo)

	_, err := svc.Run(context.Background(), RunOptions{})

	var pairErr *PairingError
	if !errors.As(err, &pairErr) {
		t.Fatalf("expected pairing error, got %v", err)
	}
	if pairErr.Offset != 2 || pairErr.FirstGroup != "group-b" || pairErr.SecondGroup != "" {
		t.Fatalf("unexpected pairing error: %+v", pairErr)
	}
}

func TestReconcileBatchBoundaryKeepsPairsTogether(t *testing.T) {
	c1, d1 := consistentExpensePair(1, 2, 77, "group-a")
	c2, d2 := consistentExpensePair(3, 4, 78, "group-b")
	repo := &scannerFake{rows: []*entity.Transaction{c1, d1, c2, d2}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{BatchSize: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Pairs != 2 || report.Scanned != 4 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", report.Findings)
	}

	// The odd trailing row of the first window is re-fetched as the head of
	// the second one.
	want := []listCall{{Limit: 3, Offset: 0}, {Limit: 2, Offset: 2}}
	if len(repo.listCalls) != len(want) {
		t.Fatalf("unexpected list calls: %+v", repo.listCalls)
	}
	for i, call := range want {
		if repo.listCalls[i] != call {
			t.Fatalf("list call %d: got %+v, want %+v", i, repo.listCalls[i], call)
		}
	}
}

func TestReconcileBatchSizeOneWidensToPairWindow(t *testing.T) {
	credit, debit := consistentExpensePair(1, 2, 77, "group-a")
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{BatchSize: 1})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Pairs != 1 || report.Scanned != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	// a one-row window can never complete a pair, so the scan must widen it
	if len(repo.listCalls) != 1 || repo.listCalls[0].Limit != 2 {
		t.Fatalf("unexpected list calls: %+v", repo.listCalls)
	}
}

func TestReconcileLimitBeyondRowCountReportsOrphan(t *testing.T) {
	credit, debit := consistentExpensePair(1, 2, 77, "group-a")
	orphan, _ := consistentExpensePair(3, 4, 78, "group-b")
	repo := &scannerFake{rows: []*entity.Transaction{credit, debit, orphan}}
	svc := NewReconcileService(repo)

	_, err := svc.Run(context.Background(), RunOptions{Limit: 5})

	var pairErr *PairingError
	if !errors.As(err, &pairErr) {
		t.Fatalf("expected pairing error, got %v", err)
	}
	if pairErr.Offset != 2 || pairErr.FirstGroup != "group-b" || pairErr.SecondGroup != "" {
		t.Fatalf("unexpected pairing error: %+v", pairErr)
	}
	if !repo.released {
		t.Fatal("expected run lock released after abort")
	}
}

func TestReconcileHonorsLimit(t *testing.T) {
	c1, d1 := consistentExpensePair(1, 2, 77, "group-a")
	c2, d2 := consistentExpensePair(3, 4, 78, "group-b")
	repo := &scannerFake{rows: []*entity.Transaction{c1, d1, c2, d2}}
	svc := NewReconcileService(repo)

	report, err := svc.Run(context.Background(), RunOptions{Limit: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Scanned != 2 || report.Pairs != 1 {
		t.Fatalf("expected scan capped at the limit, got %+v", report)
	}
}

func TestReconcileLockBusy(t *testing.T) {
	repo := &scannerFake{lockBusy: true}
	svc := NewReconcileService(repo)

	_, err := svc.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrReconcileRunning) {
		t.Fatalf("expected ErrReconcileRunning, got %v", err)
	}
	if len(repo.listCalls) != 0 {
		t.Fatal("a busy lock must stop the run before any scan")
	}
	if repo.released {
		t.Fatal("a lock that was never acquired must not be released")
	}
}
