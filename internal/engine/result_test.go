package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtest/internal/domain"
)

func mkTimes(idx ...int) []time.Time {
	out := make([]time.Time, len(idx))
	for i, n := range idx {
		out[i] = barsStart.Add(time.Duration(n) * time.Hour)
	}
	return out
}

func seriesD(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = d(v)
	}
	return out
}

func requireSeries(t *testing.T, got []decimal.Decimal, want ...string) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		require.True(t, got[i].Equal(d(w)), "index %d: got %s, want %s", i, got[i], w)
	}
}

// mkLedger builds a synthetic ledger over the given hour offsets with flat
// closes and no orders; callers overwrite the series they care about.
func mkLedger(name string, logarithmic bool, idx ...int) *Result {
	n := len(idx)
	r := &Result{
		Name:           name,
		Times:          mkTimes(idx...),
		Close:          make([]decimal.Decimal, n),
		Position:       make([]decimal.Decimal, n),
		PositionQuote:  make([]decimal.Decimal, n),
		BalanceQuote:   make([]decimal.Decimal, n),
		EquityQuote:    make([]decimal.Decimal, n),
		FinishedOrders: make([][]domain.FinishedOrder, n),
		MakerFeeRate:   domain.NewFeeRate(d("0.001")),
		TakerFeeRate:   domain.NewFeeRate(d("0.002")),
		Logarithmic:    logarithmic,
		BalanceInit:    d("1000"),
	}
	for i := range r.Close {
		r.Close[i] = d("100")
		r.Position[i] = decimal.Zero
		r.PositionQuote[i] = decimal.Zero
		r.BalanceQuote[i] = d("1000")
		r.EquityQuote[i] = d("1000")
	}
	return r
}

func TestMergeDisjointLinear(t *testing.T) {
	a := mkLedger("A", false, 0, 1, 2)
	a.BalanceQuote = seriesD("1000", "900", "900")
	a.EquityQuote = seriesD("1000", "950", "940")
	a.Position = seriesD("0", "1", "0")

	b := mkLedger("B", false, 3, 4, 5)
	b.BalanceQuote = seriesD("1000", "990", "1000")
	b.EquityQuote = seriesD("1000", "995", "1005")
	b.Position = seriesD("0", "2", "0")

	m, err := a.Merge(b)
	require.NoError(t, err)
	require.Equal(t, "A + B", m.Name)
	require.Equal(t, 6, m.Len())
	require.Equal(t, mkTimes(0, 1, 2, 3, 4, 5), m.Times)

	// each operand's balance is pinned to its equity at its own seam, then
	// the right side is backfilled over the left range and vice versa
	requireSeries(t, m.BalanceQuote, "2000", "1900", "1940", "1940", "1930", "1945")
	requireSeries(t, m.EquityQuote, "2000", "1950", "1940", "1940", "1935", "1945")

	// positions are strictly shard-local, missing keys count as zero
	requireSeries(t, m.Position, "0", "1", "0", "0", "2", "0")

	require.False(t, m.MakerFeeRate.IsMixed())
	require.False(t, m.TakerFeeRate.IsMixed())
}

func TestMergeEquityContinuousAtSeam(t *testing.T) {
	a := mkLedger("A", false, 0, 1)
	a.BalanceQuote = seriesD("1000", "700")
	a.EquityQuote = seriesD("1000", "960")

	b := mkLedger("B", false, 2, 3)
	b.BalanceQuote = seriesD("1000", "1000")
	b.EquityQuote = seriesD("1000", "1020")

	m, err := a.Merge(b)
	require.NoError(t, err)

	// no dip at the boundary: both curves carry the same value on the last
	// left key and the first right key
	require.True(t, m.EquityQuote[1].Equal(m.EquityQuote[2]))
	require.True(t, m.BalanceQuote[1].Equal(m.BalanceQuote[2]))
	require.True(t, m.BalanceQuote[1].Equal(m.EquityQuote[1]),
		"balance is pinned to equity at the seam, got %s vs %s", m.BalanceQuote[1], m.EquityQuote[1])
}

func TestMergeLogarithmicChainsReturns(t *testing.T) {
	a := mkLedger("A", true, 0, 1)
	a.BalanceQuote = seriesD("1000", "2000")
	a.EquityQuote = seriesD("1000", "2000")

	b := mkLedger("B", true, 2, 3)
	b.BalanceQuote = seriesD("1000", "1100")
	b.EquityQuote = seriesD("1000", "1100")

	m, err := a.Merge(b)
	require.NoError(t, err)

	// the right operand is rescaled by 2000/1000 before adding
	requireSeries(t, m.EquityQuote, "3000", "4000", "4000", "4200")
	requireSeries(t, m.BalanceQuote, "3000", "4000", "4000", "4200")
}

func TestMergeLogarithmicZeroEquityRejected(t *testing.T) {
	a := mkLedger("A", true, 0, 1)
	b := mkLedger("B", true, 2, 3)
	b.EquityQuote[0] = decimal.Zero

	_, err := a.Merge(b)
	require.Error(t, err)
	require.Contains(t, err.Error(), "equity starts at zero")
}

func TestMergeMixedModeRejected(t *testing.T) {
	a := mkLedger("A", true, 0, 1)
	b := mkLedger("B", false, 2, 3)

	_, err := a.Merge(b)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMixedMode)
}

func TestMergeDifferentFeeRatesDegradeToMixed(t *testing.T) {
	a := mkLedger("A", false, 0, 1)
	b := mkLedger("B", false, 2, 3)
	b.TakerFeeRate = domain.NewFeeRate(d("0.005"))

	m, err := a.Merge(b)
	require.NoError(t, err)
	require.True(t, m.TakerFeeRate.IsMixed())
	require.Equal(t, "mixed", m.TakerFeeRate.String())

	rate, ok := m.MakerFeeRate.Rate()
	require.True(t, ok)
	require.True(t, rate.Equal(d("0.001")))
}

func TestMergeEmptyOperand(t *testing.T) {
	a := mkLedger("A", false, 0, 1)
	a.Position = seriesD("0", "3")
	empty := &Result{Logarithmic: false}

	m, err := a.Merge(empty)
	require.NoError(t, err)
	require.Equal(t, a.Times, m.Times)
	requireSeries(t, m.Position, "0", "3")

	m, err = empty.Merge(a)
	require.NoError(t, err)
	require.Equal(t, a.Times, m.Times)
}

func TestMergeConcatenatesOrdersUnscaled(t *testing.T) {
	fill := domain.FinishedOrder{
		Time:             barsStart.Add(3 * time.Hour),
		Order:            domain.NewLimitOrder(d("1"), d("95"), false),
		BalanceDecrement: d("95.095"),
		ExecutedPrice:    d("95"),
		QuoteSize:        d("95"),
		Fee:              d("0.095"),
		State:            domain.FilledMaker,
	}

	a := mkLedger("A", true, 0, 1)
	a.EquityQuote = seriesD("1000", "2000") // forces a 2x rescale of B's curves

	b := mkLedger("B", true, 2, 3)
	b.FinishedOrders[1] = []domain.FinishedOrder{fill}

	m, err := a.Merge(b)
	require.NoError(t, err)

	got := m.AllFinishedOrders()
	require.Len(t, got, 1)
	require.True(t, got[0].BalanceDecrement.Equal(d("95.095")), "orders keep shard-local amounts, got %s", got[0].BalanceDecrement)
	require.True(t, got[0].Order.Size.Equal(d("1")))
}

func TestScaleResult(t *testing.T) {
	r := mkLedger("A", false, 0, 1)
	r.Position = seriesD("1", "2")
	r.BalanceQuote = seriesD("1000", "800")
	r.FinishedOrders[1] = []domain.FinishedOrder{{
		Time:             barsStart.Add(time.Hour),
		Order:            domain.NewLimitOrder(d("2"), d("100"), false),
		BalanceDecrement: d("200.2"),
		ExecutedPrice:    d("100"),
		QuoteSize:        d("200"),
		Fee:              d("0.2"),
		State:            domain.FilledTaker,
	}}

	scaled, err := r.Scale(d("0.5"))
	require.NoError(t, err)
	requireSeries(t, scaled.Position, "0.5", "1")
	requireSeries(t, scaled.BalanceQuote, "500", "400")

	fo := scaled.FinishedOrders[1][0]
	require.True(t, fo.Order.Size.Equal(d("1")))
	require.True(t, fo.BalanceDecrement.Equal(d("100.1")))
	require.True(t, fo.QuoteSize.Equal(d("100")))
	require.True(t, fo.ExecutedPrice.Equal(d("100")), "prices are levels, not amounts")

	// the original is untouched
	requireSeries(t, r.Position, "1", "2")

	_, err = r.Scale(d("-1"))
	require.Error(t, err)
}

func TestUnionTimes(t *testing.T) {
	got := unionTimes(mkTimes(0, 2, 4), mkTimes(1, 2, 5))
	require.Equal(t, mkTimes(0, 1, 2, 4, 5), got)
}

func TestReindexFill(t *testing.T) {
	union := mkTimes(0, 1, 2, 3, 4)
	got := reindexFill(union, mkTimes(1, 3), seriesD("10", "20"))
	requireSeries(t, got, "10", "10", "10", "20", "20")
}

func TestReindexZero(t *testing.T) {
	union := mkTimes(0, 1, 2, 3)
	got := reindexZero(union, mkTimes(1, 3), seriesD("10", "20"))
	requireSeries(t, got, "0", "10", "0", "20")
}
