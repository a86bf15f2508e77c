package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderState is the terminal outcome of a resolved order. Every order is
// terminal after exactly one resolution attempt; there is no multi-bar
// queuing.
type OrderState int

const (
	// FilledTaker executed immediately against the reference price.
	FilledTaker OrderState = iota
	// FilledMaker executed by resting at its limit price.
	FilledMaker
	// CancelledNotFilled never crossed the bar's range.
	CancelledNotFilled
	// CancelledPostOnly would have filled as taker but was post-only.
	CancelledPostOnly
)

// String returns the string representation.
func (s OrderState) String() string {
	switch s {
	case FilledTaker:
		return "filled_taker"
	case FilledMaker:
		return "filled_maker"
	case CancelledNotFilled:
		return "cancelled_not_filled"
	case CancelledPostOnly:
		return "cancelled_post_only"
	default:
		return fmt.Sprintf("OrderState(%d)", int(s))
	}
}

// FinishedOrder records the outcome of one order resolution attempt.
type FinishedOrder struct {
	// Time is the bar key at which the order was resolved.
	Time time.Time
	// Order is the request that produced this outcome.
	Order OrderRequest
	// BalanceDecrement is subtracted from the quote balance regardless of
	// side; a sell yields a negative decrement, i.e. the balance grows.
	BalanceDecrement decimal.Decimal
	// ExecutedPrice is meaningful only when Filled reports true.
	ExecutedPrice decimal.Decimal
	// QuoteSize is the signed executed amount in quote currency.
	QuoteSize decimal.Decimal
	// Fee keeps the sign that falls out of size*price*rate, so sell fees
	// are numerically negative.
	Fee decimal.Decimal
	// State is the terminal outcome.
	State OrderState
}

// Filled reports whether the order executed.
func (f FinishedOrder) Filled() bool {
	return f.State == FilledTaker || f.State == FilledMaker
}

// Scale returns a copy with size, balance decrement, quote size and fee
// multiplied by factor. Negative factors are rejected.
func (f FinishedOrder) Scale(factor decimal.Decimal) (FinishedOrder, error) {
	if factor.IsNegative() {
		return FinishedOrder{}, errors.Errorf("cannot scale finished order by negative factor %s", factor)
	}
	order, err := f.Order.Scale(factor)
	if err != nil {
		return FinishedOrder{}, err
	}
	f.Order = order
	f.BalanceDecrement = f.BalanceDecrement.Mul(factor)
	f.QuoteSize = f.QuoteSize.Mul(factor)
	f.Fee = f.Fee.Mul(factor)
	return f, nil
}
