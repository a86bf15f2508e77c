package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/internal/engine"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bar(i int, close string) domain.Candle {
	c := d(close)
	return domain.Candle{
		Time:   start.Add(time.Duration(i) * time.Hour),
		Open:   c,
		High:   c.Add(d("1")),
		Low:    c.Sub(d("1")),
		Close:  c,
		Volume: d("1"),
	}
}

func snapFor(c domain.Candle, position, balance decimal.Decimal) domain.CloseSnapshot {
	posQuote := position.Mul(c.Open)
	return domain.CloseSnapshot{
		Time:          c.Time,
		Open:          c.Open,
		High:          c.High,
		Low:           c.Low,
		Close:         c.Close,
		Position:      position,
		PositionQuote: posQuote,
		BalanceQuote:  balance,
		EquityQuote:   balance.Add(posQuote),
	}
}

func TestHoldBuysOnceAndHolds(t *testing.T) {
	factory, err := NewHold(d("0.5"))
	require.NoError(t, err)

	runner := engine.NewRunner(engine.Config{
		MakerFee:    d("0.001"),
		TakerFee:    d("0.002"),
		BalanceInit: d("1000"),
		Splits:      1,
	}, nil)

	bars := make([]domain.Candle, 5)
	for i := range bars {
		bars[i] = bar(i, "100")
	}

	res, err := runner.Run(context.Background(), bars, factory)
	require.NoError(t, err)

	// one taker fill at bar 1: 5 units at 100, fee 1
	require.Len(t, res.AllFinishedOrders(), 1)
	require.Equal(t, domain.FilledTaker, res.AllFinishedOrders()[0].State)
	require.True(t, res.Position[1].Equal(d("5")))
	require.True(t, res.BalanceQuote[1].Equal(d("499")))
	require.True(t, res.Position[4].Equal(d("5")), "the position is carried to the end")
}

func TestHoldRejectsBadFraction(t *testing.T) {
	_, err := NewHold(decimal.Zero)
	require.Error(t, err)
	_, err = NewHold(d("1.5"))
	require.Error(t, err)
	_, err = NewHold(d("-0.2"))
	require.Error(t, err)
}

func newCross(t *testing.T) engine.Strategy {
	t.Helper()
	factory, err := NewSMACross(SMACrossConfig{
		FastPeriod: 2,
		SlowPeriod: 3,
		ATRPeriod:  2,
		Fraction:   d("1"),
	})
	require.NoError(t, err)
	strat := factory()
	require.NoError(t, strat.Initialize())
	return strat
}

func TestSMACrossEntersOnGoldenCross(t *testing.T) {
	strat := newCross(t)
	balance := d("1000")

	closes := []string{"100", "100", "100", "110"}
	var orders []domain.OrderRequest
	for i, close := range closes {
		c := bar(i, close)
		orders = strat.OnClose(snapFor(c, decimal.Zero, balance), c)
	}

	require.Len(t, orders, 1)
	o := orders[0]
	require.True(t, o.Buy())
	require.True(t, o.PostOnly, "entries rest in the book")
	require.True(t, o.Price.LessThan(d("110")), "entry is offset below the close, got %s", o.Price)
	require.True(t, o.Price.IsPositive())
	require.True(t, o.Size.IsPositive())
}

func TestSMACrossFlattensOnCrossDown(t *testing.T) {
	strat := newCross(t)
	balance := d("1000")
	position := decimal.Zero

	// run up to the golden cross, then simulate the filled entry and
	// feed a falling close
	closes := []string{"100", "100", "100", "110"}
	for i, close := range closes {
		c := bar(i, close)
		strat.OnClose(snapFor(c, position, balance), c)
	}
	position = d("1")

	c := bar(4, "90")
	orders := strat.OnClose(snapFor(c, position, balance), c)

	require.Len(t, orders, 1)
	o := orders[0]
	require.False(t, o.Buy())
	require.True(t, o.Size.Equal(d("-1")), "the exit flattens the whole position")
	require.True(t, o.PostOnly)
	require.True(t, o.Price.GreaterThan(d("90")), "exit is offset above the close, got %s", o.Price)
}

func TestSMACrossSilentDuringWarmup(t *testing.T) {
	strat := newCross(t)

	for i, close := range []string{"100", "200"} {
		c := bar(i, close)
		require.Empty(t, strat.OnClose(snapFor(c, decimal.Zero, d("1000")), c))
	}
}

func TestSMACrossNoReentryWhileLong(t *testing.T) {
	strat := newCross(t)

	// identical tape to the golden-cross case, but the book already
	// carries a long position: the signal must be ignored
	closes := []string{"100", "100", "100", "110"}
	var orders []domain.OrderRequest
	for i, close := range closes {
		c := bar(i, close)
		orders = strat.OnClose(snapFor(c, d("2"), d("1000")), c)
	}
	require.Empty(t, orders)
}

func TestSMACrossConfigValidation(t *testing.T) {
	base := SMACrossConfig{FastPeriod: 2, SlowPeriod: 3, ATRPeriod: 2, Fraction: d("1")}

	bad := base
	bad.FastPeriod = 3
	_, err := NewSMACross(bad)
	require.Error(t, err)

	bad = base
	bad.ATRPeriod = 0
	_, err = NewSMACross(bad)
	require.Error(t, err)

	bad = base
	bad.Fraction = d("2")
	_, err = NewSMACross(bad)
	require.Error(t, err)
}

func TestLastSMA(t *testing.T) {
	require.InDelta(t, 20.0, lastSMA([]float64{10, 20, 10, 20, 30}, 3), 1e-9)
}
