package ledger

import (
	"testing"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

func fxPtr(v float64) *float64 {
	return &v
}

func TestNetValueRoundsBeforeFxMultiply(t *testing.T) {
	tr := &entity.Transaction{
		Amount:                            1000,
		HostFeeInHostCurrency:             -50,
		PlatformFeeInHostCurrency:         -30,
		PaymentProcessorFeeInHostCurrency: -20,
		HostCurrencyFxRate:                fxPtr(1.1),
	}

	if got := NetValue(tr); got != 990 {
		t.Fatalf("expected net value 990, got %v", got)
	}
}

func TestNetValueNilRateDefaultsToOne(t *testing.T) {
	tr := &entity.Transaction{Amount: 500}
	if got := NetValue(tr); got != 500 {
		t.Fatalf("expected net value 500, got %v", got)
	}
}

func TestIsConsistent(t *testing.T) {
	tr := &entity.Transaction{
		Amount:                            -1000,
		HostFeeInHostCurrency:             -50,
		PlatformFeeInHostCurrency:         -30,
		PaymentProcessorFeeInHostCurrency: -20,
		HostCurrencyFxRate:                fxPtr(1),
		NetAmountInCollectiveCurrency:     -1100,
	}
	if !IsConsistent(tr) {
		t.Fatal("expected consistent transaction")
	}

	tr.NetAmountInCollectiveCurrency = -1000
	if IsConsistent(tr) {
		t.Fatal("expected inconsistent transaction")
	}
}

func TestHasNonZeroFees(t *testing.T) {
	tr := &entity.Transaction{}
	if HasNonZeroFees(tr) {
		t.Fatal("expected no fees")
	}

	tr.PaymentProcessorFeeInHostCurrency = -20
	if !HasNonZeroFees(tr) {
		t.Fatal("expected fees present")
	}
}

func TestNegateIsIdempotent(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{50, -50},
		{0, 0},
		{-30, -30},
	}
	for _, tc := range cases {
		if got := Negate(tc.in); got != tc.want {
			t.Fatalf("Negate(%d) = %d, want %d", tc.in, got, tc.want)
		}
		if got := Negate(Negate(tc.in)); got != tc.want {
			t.Fatalf("Negate(Negate(%d)) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEnsureFxRate(t *testing.T) {
	tr := &entity.Transaction{Amount: 1000, AmountInHostCurrency: 1000}
	EnsureFxRate(tr)
	if tr.HostCurrencyFxRate == nil || *tr.HostCurrencyFxRate != 1 {
		t.Fatalf("expected fx rate 1, got %v", tr.HostCurrencyFxRate)
	}

	existing := &entity.Transaction{Amount: 1000, AmountInHostCurrency: 1000, HostCurrencyFxRate: fxPtr(1.25)}
	EnsureFxRate(existing)
	if *existing.HostCurrencyFxRate != 1.25 {
		t.Fatalf("expected existing rate untouched, got %v", *existing.HostCurrencyFxRate)
	}

	crossCurrency := &entity.Transaction{Amount: 1000, AmountInHostCurrency: 900}
	EnsureFxRate(crossCurrency)
	if crossCurrency.HostCurrencyFxRate != nil {
		t.Fatal("expected no rate set for cross-currency row")
	}
}

// Worked double-entry example: the debit row starts out inconsistent because
// its fees were stored with positive sign. Forcing the sign convention makes
// the recomputed net -1100, which still disagrees with the stored -1000, so
// the row must be reported rather than assumed fixed.
func TestSignCorrectionOnWorkedPair(t *testing.T) {
	credit := &entity.Transaction{
		Type:                          entity.TransactionTypeCredit,
		Amount:                        1000,
		HostCurrencyFxRate:            fxPtr(1),
		NetAmountInCollectiveCurrency: 1000,
	}
	debit := &entity.Transaction{
		Type:                              entity.TransactionTypeDebit,
		Amount:                            -1000,
		HostFeeInHostCurrency:             50,
		PlatformFeeInHostCurrency:         30,
		PaymentProcessorFeeInHostCurrency: 20,
		HostCurrencyFxRate:                fxPtr(1),
		NetAmountInCollectiveCurrency:     -1000,
	}

	if !IsConsistent(credit) {
		t.Fatal("expected credit row consistent before correction")
	}
	if IsConsistent(debit) {
		t.Fatal("expected debit row inconsistent before correction")
	}
	if got := NetValue(debit); got != -900 {
		t.Fatalf("expected pre-correction net -900, got %v", got)
	}

	ForceFeeSignsNonPositive(credit)
	ForceFeeSignsNonPositive(debit)

	if !IsConsistent(credit) {
		t.Fatal("expected credit row still consistent after correction")
	}
	if got := NetValue(debit); got != -1100 {
		t.Fatalf("expected post-correction net -1100, got %v", got)
	}
	if IsConsistent(debit) {
		t.Fatal("expected debit row reported as inconsistent after correction")
	}
}
