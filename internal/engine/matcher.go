// Package engine implements the candle-replay simulation: order matching,
// the bar-by-bar run loop, and the parallel partition/merge machinery.
package engine

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
)

// ErrZeroSizeOrder reports a zero-size order reaching the matcher.
// Callers are expected to filter those out before resolving.
var ErrZeroSizeOrder = errors.New("order size must be non-zero")

var two = decimal.NewFromInt(2)

// ProcessOrder resolves one pending order against the current bar and
// returns its terminal outcome. lastClose is the previous bar's close and
// acts as the reference price; high and low bound the current bar. The
// outcome is terminal either way: filled (maker or taker) or cancelled,
// never carried to the next bar.
func ProcessOrder(order domain.OrderRequest, lastClose, high, low, makerFee, takerFee decimal.Decimal, ts time.Time) (domain.FinishedOrder, error) {
	if order.Size.IsZero() {
		return domain.FinishedOrder{}, errors.Wrapf(ErrZeroSizeOrder, "order %s at %s", order, ts)
	}
	limit := toLimitOrder(order, lastClose)
	if order.Size.IsPositive() {
		return processBuy(order, limit, lastClose, low, makerFee, takerFee, ts)
	}
	return processSell(order, limit, lastClose, high, makerFee, takerFee, ts)
}

// toLimitOrder converts a market order into a synthetic limit order whose
// price is guaranteed to cross the spread against the reference price
// (double for buys, half for sells), with post-only forced off.
func toLimitOrder(order domain.OrderRequest, lastClose decimal.Decimal) domain.OrderRequest {
	if order.Kind == domain.OrderKindLimit {
		return order
	}
	price := lastClose
	switch {
	case order.Size.IsPositive():
		price = lastClose.Mul(two)
	case order.Size.IsNegative():
		price = lastClose.Div(two)
	}
	return domain.NewLimitOrder(order.Size, price, false)
}

func processBuy(order, limit domain.OrderRequest, lastClose, low, makerFee, takerFee decimal.Decimal, ts time.Time) (domain.FinishedOrder, error) {
	if !order.Size.IsPositive() {
		return domain.FinishedOrder{}, errors.Errorf("buy handler received non-positive size %s", order.Size)
	}
	switch {
	case limit.Price.GreaterThanOrEqual(lastClose):
		if limit.PostOnly {
			return cancelled(order, ts, domain.CancelledPostOnly), nil
		}
		return filled(order, ts, lastClose, takerFee, domain.FilledTaker), nil
	case limit.Price.GreaterThanOrEqual(low):
		return filled(order, ts, limit.Price, makerFee, domain.FilledMaker), nil
	default:
		return cancelled(order, ts, domain.CancelledNotFilled), nil
	}
}

func processSell(order, limit domain.OrderRequest, lastClose, high, makerFee, takerFee decimal.Decimal, ts time.Time) (domain.FinishedOrder, error) {
	if !order.Size.IsNegative() {
		return domain.FinishedOrder{}, errors.Errorf("sell handler received non-negative size %s", order.Size)
	}
	switch {
	case limit.Price.LessThanOrEqual(lastClose):
		if limit.PostOnly {
			return cancelled(order, ts, domain.CancelledPostOnly), nil
		}
		return filled(order, ts, lastClose, takerFee, domain.FilledTaker), nil
	case limit.Price.LessThanOrEqual(high):
		return filled(order, ts, limit.Price, makerFee, domain.FilledMaker), nil
	default:
		return cancelled(order, ts, domain.CancelledNotFilled), nil
	}
}

// filled builds a fill outcome at the given execution price. The balance
// decrement is quote*(1+fee) for buys and quote*(1-fee) for sells, which
// keeps a single signed subtraction on the caller's side.
func filled(order domain.OrderRequest, ts time.Time, price, feeRate decimal.Decimal, state domain.OrderState) domain.FinishedOrder {
	quote := order.Size.Mul(price)
	fee := quote.Mul(feeRate)
	decrement := quote.Add(fee)
	if order.Size.IsNegative() {
		decrement = quote.Sub(fee)
	}
	return domain.FinishedOrder{
		Time:             ts,
		Order:            order,
		BalanceDecrement: decrement,
		ExecutedPrice:    price,
		QuoteSize:        quote,
		Fee:              fee,
		State:            state,
	}
}

func cancelled(order domain.OrderRequest, ts time.Time, state domain.OrderState) domain.FinishedOrder {
	return domain.FinishedOrder{
		Time:             ts,
		Order:            order,
		BalanceDecrement: decimal.Zero,
		ExecutedPrice:    decimal.Zero,
		QuoteSize:        decimal.Zero,
		Fee:              decimal.Zero,
		State:            state,
	}
}
