package domain

import "github.com/shopspring/decimal"

// FeeRate is a fee parameter carried alongside a backtest result. Combining
// results produced under different rates yields an explicitly tagged mixed
// value instead of a floating-point sentinel that would silently propagate.
type FeeRate struct {
	rate  decimal.Decimal
	mixed bool
}

// NewFeeRate wraps a known fee rate.
func NewFeeRate(rate decimal.Decimal) FeeRate {
	return FeeRate{rate: rate}
}

// MixedFeeRate returns the tagged unknown value.
func MixedFeeRate() FeeRate {
	return FeeRate{mixed: true}
}

// IsMixed reports whether the rate is unknown after a merge.
func (f FeeRate) IsMixed() bool {
	return f.mixed
}

// Rate returns the numeric rate; ok is false for mixed values.
func (f FeeRate) Rate() (rate decimal.Decimal, ok bool) {
	if f.mixed {
		return decimal.Decimal{}, false
	}
	return f.rate, true
}

// Combine merges two fee rates, degrading to mixed when they differ.
func (f FeeRate) Combine(other FeeRate) FeeRate {
	if f.mixed || other.mixed || !f.rate.Equal(other.rate) {
		return MixedFeeRate()
	}
	return f
}

// String returns the string representation.
func (f FeeRate) String() string {
	if f.mixed {
		return "mixed"
	}
	return f.rate.String()
}
