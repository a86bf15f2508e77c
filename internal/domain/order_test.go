package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrderRequestScale(t *testing.T) {
	order := NewLimitOrder(decimal.NewFromInt(2), decimal.NewFromInt(100), true)

	scaled, err := order.Scale(decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	require.True(t, scaled.Size.Equal(decimal.NewFromInt(1)), "size should scale")
	require.True(t, scaled.Price.Equal(order.Price), "price must not scale")
	require.True(t, scaled.PostOnly)

	// the original stays untouched
	require.True(t, order.Size.Equal(decimal.NewFromInt(2)))
}

func TestOrderRequestScaleNegativeFactor(t *testing.T) {
	order := NewMarketOrder(decimal.NewFromInt(1))

	_, err := order.Scale(decimal.NewFromInt(-1))
	require.Error(t, err)
}

func TestOrderRequestBuy(t *testing.T) {
	require.True(t, NewMarketOrder(decimal.NewFromInt(1)).Buy())
	require.False(t, NewMarketOrder(decimal.NewFromInt(-1)).Buy())
	require.False(t, NewMarketOrder(decimal.Zero).Buy())
}

func TestFinishedOrderFilled(t *testing.T) {
	for state, want := range map[OrderState]bool{
		FilledTaker:        true,
		FilledMaker:        true,
		CancelledNotFilled: false,
		CancelledPostOnly:  false,
	} {
		fo := FinishedOrder{State: state}
		require.Equal(t, want, fo.Filled(), "state %s", state)
	}
}

func TestFinishedOrderScale(t *testing.T) {
	fo := FinishedOrder{
		Time:             time.Unix(0, 0),
		Order:            NewLimitOrder(decimal.NewFromInt(-2), decimal.NewFromInt(100), false),
		BalanceDecrement: decimal.NewFromInt(-200),
		ExecutedPrice:    decimal.NewFromInt(100),
		QuoteSize:        decimal.NewFromInt(-200),
		Fee:              decimal.RequireFromString("-0.2"),
		State:            FilledMaker,
	}

	scaled, err := fo.Scale(decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	require.True(t, scaled.Order.Size.Equal(decimal.NewFromInt(-1)))
	require.True(t, scaled.BalanceDecrement.Equal(decimal.NewFromInt(-100)))
	require.True(t, scaled.QuoteSize.Equal(decimal.NewFromInt(-100)))
	require.True(t, scaled.Fee.Equal(decimal.RequireFromString("-0.1")))
	require.True(t, scaled.ExecutedPrice.Equal(fo.ExecutedPrice), "executed price must not scale")

	_, err = fo.Scale(decimal.NewFromInt(-3))
	require.Error(t, err)
}

func TestFeeRateCombine(t *testing.T) {
	a := NewFeeRate(decimal.RequireFromString("0.001"))
	b := NewFeeRate(decimal.RequireFromString("0.001"))
	c := NewFeeRate(decimal.RequireFromString("0.002"))

	combined := a.Combine(b)
	require.False(t, combined.IsMixed())
	rate, ok := combined.Rate()
	require.True(t, ok)
	require.True(t, rate.Equal(decimal.RequireFromString("0.001")))

	mixed := a.Combine(c)
	require.True(t, mixed.IsMixed())
	_, ok = mixed.Rate()
	require.False(t, ok)
	require.Equal(t, "mixed", mixed.String())

	// mixed is sticky
	require.True(t, mixed.Combine(a).IsMixed())
	require.True(t, a.Combine(mixed).IsMixed())
}
