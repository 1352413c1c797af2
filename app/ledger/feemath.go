package ledger

import (
	"math"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

// NetValue computes the fee-adjusted, currency-converted value of one
// transaction row: round(amount + hostFee + platformFee + processorFee)
// multiplied by the host-currency fx rate. Rounding happens before the fx
// multiplication; the consistency check depends on that ordering.
func NetValue(t *entity.Transaction) float64 {
	sum := float64(t.Amount +
		t.HostFeeInHostCurrency +
		t.PlatformFeeInHostCurrency +
		t.PaymentProcessorFeeInHostCurrency)
	return math.Round(sum) * fxRate(t)
}

// IsConsistent reports whether the stored net amount matches the value
// recomputed from the row's components.
func IsConsistent(t *entity.Transaction) bool {
	return NetValue(t) == float64(t.NetAmountInCollectiveCurrency)
}

// HasNonZeroFees reports whether any of the three fee columns carries a value.
func HasNonZeroFees(t *entity.Transaction) bool {
	return t.HostFeeInHostCurrency != 0 ||
		t.PlatformFeeInHostCurrency != 0 ||
		t.PaymentProcessorFeeInHostCurrency != 0
}

// Negate flips a positive value negative and passes zero and negative
// values through unchanged, so applying it twice is the same as once.
func Negate(v int64) int64 {
	if v > 0 {
		return -v
	}
	return v
}

// ForceFeeSignsNonPositive applies the fee sign convention for order-linked
// pairs: fees reduce net value, so all three fee columns must be <= 0.
// This encodes a domain policy, not something derivable from the row itself;
// callers decide which rows it applies to.
func ForceFeeSignsNonPositive(t *entity.Transaction) {
	t.HostFeeInHostCurrency = Negate(t.HostFeeInHostCurrency)
	t.PlatformFeeInHostCurrency = Negate(t.PlatformFeeInHostCurrency)
	t.PaymentProcessorFeeInHostCurrency = Negate(t.PaymentProcessorFeeInHostCurrency)
}

// EnsureFxRate fills in the implicit rate of 1 for same-currency rows whose
// fx rate was never recorded. An existing rate is left untouched.
func EnsureFxRate(t *entity.Transaction) {
	if t.HostCurrencyFxRate == nil && t.Amount == t.AmountInHostCurrency {
		rate := 1.0
		t.HostCurrencyFxRate = &rate
	}
}

func fxRate(t *entity.Transaction) float64 {
	if t.HostCurrencyFxRate == nil {
		return 1
	}
	return *t.HostCurrencyFxRate
}
