package engine

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
)

// ErrMixedMode reports a merge of results built under different compounding
// modes (logarithmic vs linear). Such a merge is rejected before any
// numeric work.
var ErrMixedMode = errors.New("cannot merge results with different compounding modes")

// Result is the time-aligned ledger produced by a run: one row per bar,
// exposed as parallel series sharing the Times key set. Reporting
// collaborators consume it without touching the engine again.
type Result struct {
	Name  string
	Times []time.Time

	Close          []decimal.Decimal
	Position       []decimal.Decimal
	PositionQuote  []decimal.Decimal
	BalanceQuote   []decimal.Decimal
	EquityQuote    []decimal.Decimal
	FinishedOrders [][]domain.FinishedOrder

	MakerFeeRate domain.FeeRate
	TakerFeeRate domain.FeeRate
	// Logarithmic selects the compounding mode the curves were built (and
	// must be merged) under.
	Logarithmic bool
	BalanceInit decimal.Decimal
}

func newResult(name string, capacity int, makerFee, takerFee, balanceInit decimal.Decimal, logarithmic bool) *Result {
	return &Result{
		Name:           name,
		Times:          make([]time.Time, 0, capacity),
		Close:          make([]decimal.Decimal, 0, capacity),
		Position:       make([]decimal.Decimal, 0, capacity),
		PositionQuote:  make([]decimal.Decimal, 0, capacity),
		BalanceQuote:   make([]decimal.Decimal, 0, capacity),
		EquityQuote:    make([]decimal.Decimal, 0, capacity),
		FinishedOrders: make([][]domain.FinishedOrder, 0, capacity),
		MakerFeeRate:   domain.NewFeeRate(makerFee),
		TakerFeeRate:   domain.NewFeeRate(takerFee),
		Logarithmic:    logarithmic,
		BalanceInit:    balanceInit,
	}
}

func (r *Result) append(bar domain.Candle, position, positionQuote, balance, equity decimal.Decimal, finished []domain.FinishedOrder) {
	r.Times = append(r.Times, bar.Time)
	r.Close = append(r.Close, bar.Close)
	r.Position = append(r.Position, position)
	r.PositionQuote = append(r.PositionQuote, positionQuote)
	r.BalanceQuote = append(r.BalanceQuote, balance)
	r.EquityQuote = append(r.EquityQuote, equity)
	r.FinishedOrders = append(r.FinishedOrders, finished)
}

// Len returns the number of ledger rows.
func (r *Result) Len() int {
	return len(r.Times)
}

// AllFinishedOrders returns every order outcome across all rows.
func (r *Result) AllFinishedOrders() []domain.FinishedOrder {
	var out []domain.FinishedOrder
	for _, row := range r.FinishedOrders {
		out = append(out, row...)
	}
	return out
}

// Scale returns a scalar-scaled copy: position, position quote, balance,
// equity and finished orders are multiplied by factor. Negative factors are
// rejected.
func (r *Result) Scale(factor decimal.Decimal) (*Result, error) {
	if factor.IsNegative() {
		return nil, errors.Errorf("cannot scale result by negative factor %s", factor)
	}
	out := r.clone()
	out.Position = scaleSeries(out.Position, factor)
	out.PositionQuote = scaleSeries(out.PositionQuote, factor)
	out.BalanceQuote = scaleSeries(out.BalanceQuote, factor)
	out.EquityQuote = scaleSeries(out.EquityQuote, factor)
	for i, row := range out.FinishedOrders {
		scaled := make([]domain.FinishedOrder, len(row))
		for j, fo := range row {
			sfo, err := fo.Scale(factor)
			if err != nil {
				return nil, err
			}
			scaled[j] = sfo
		}
		out.FinishedOrders[i] = scaled
	}
	return out, nil
}

// Merge combines this ledger with a later (or earlier) one into a single
// continuous ledger over the union of both key sets:
//
//   - balance and equity curves are reindexed with forward fill then
//     backward fill, so boundary gaps never introduce holes;
//   - before summing, each operand's balance is forced to equal its equity
//     at its first and last key, which removes the artificial seam dip
//     caused by the fills;
//   - in logarithmic mode the right operand's balance/equity curves are
//     rescaled by left.equity[last]/right.equity[first] before adding, so
//     returns rather than absolute levels chain across the seam;
//   - position series are summed with missing keys treated as zero;
//   - finished orders are concatenated unscaled (their fields are
//     shard-local transaction amounts, not curve levels);
//   - fee rates degrade to the tagged mixed value when the operands differ.
func (r *Result) Merge(other *Result) (*Result, error) {
	if r.Logarithmic != other.Logarithmic {
		return nil, ErrMixedMode
	}
	if r.Len() == 0 {
		return other.clone(), nil
	}
	if other.Len() == 0 {
		return r.clone(), nil
	}

	union := unionTimes(r.Times, other.Times)

	aBal := seamFixedBalance(r)
	bBal := seamFixedBalance(other)
	aEq := cloneSeries(r.EquityQuote)
	bEq := cloneSeries(other.EquityQuote)

	if r.Logarithmic {
		first := other.EquityQuote[0]
		if first.IsZero() {
			return nil, errors.Errorf("cannot rescale %q: equity starts at zero", other.Name)
		}
		ratio := r.EquityQuote[r.Len()-1].Div(first)
		bBal = scaleSeries(bBal, ratio)
		bEq = scaleSeries(bEq, ratio)
	}

	return &Result{
		Name:           fmt.Sprintf("%s + %s", r.Name, other.Name),
		Times:          union,
		Close:          coalesceSeries(union, r.Times, r.Close, other.Times, other.Close),
		Position:       addZeroFilled(union, r.Times, r.Position, other.Times, other.Position),
		PositionQuote:  addZeroFilled(union, r.Times, r.PositionQuote, other.Times, other.PositionQuote),
		BalanceQuote:   addFilled(union, r.Times, aBal, other.Times, bBal),
		EquityQuote:    addFilled(union, r.Times, aEq, other.Times, bEq),
		FinishedOrders: concatOrders(union, r.Times, r.FinishedOrders, other.Times, other.FinishedOrders),
		MakerFeeRate:   r.MakerFeeRate.Combine(other.MakerFeeRate),
		TakerFeeRate:   r.TakerFeeRate.Combine(other.TakerFeeRate),
		Logarithmic:    r.Logarithmic,
		BalanceInit:    r.BalanceInit,
	}, nil
}

// seamFixedBalance copies the balance curve with its first and last values
// pinned to the equity curve.
func seamFixedBalance(r *Result) []decimal.Decimal {
	bal := cloneSeries(r.BalanceQuote)
	bal[0] = r.EquityQuote[0]
	bal[len(bal)-1] = r.EquityQuote[r.Len()-1]
	return bal
}

func (r *Result) clone() *Result {
	orders := make([][]domain.FinishedOrder, len(r.FinishedOrders))
	for i, row := range r.FinishedOrders {
		orders[i] = append([]domain.FinishedOrder(nil), row...)
	}
	return &Result{
		Name:           r.Name,
		Times:          append([]time.Time(nil), r.Times...),
		Close:          cloneSeries(r.Close),
		Position:       cloneSeries(r.Position),
		PositionQuote:  cloneSeries(r.PositionQuote),
		BalanceQuote:   cloneSeries(r.BalanceQuote),
		EquityQuote:    cloneSeries(r.EquityQuote),
		FinishedOrders: orders,
		MakerFeeRate:   r.MakerFeeRate,
		TakerFeeRate:   r.TakerFeeRate,
		Logarithmic:    r.Logarithmic,
		BalanceInit:    r.BalanceInit,
	}
}

func cloneSeries(s []decimal.Decimal) []decimal.Decimal {
	return append([]decimal.Decimal(nil), s...)
}

func scaleSeries(s []decimal.Decimal, factor decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, v := range s {
		out[i] = v.Mul(factor)
	}
	return out
}

func subSeries(s []decimal.Decimal, value decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, v := range s {
		out[i] = v.Sub(value)
	}
	return out
}

// unionTimes merges two sorted unique key slices into one.
func unionTimes(a, b []time.Time) []time.Time {
	out := make([]time.Time, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Before(b[j]):
			out = append(out, a[i])
			i++
		case b[j].Before(a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// reindexFill projects vals (keyed by times) onto the union key set using
// forward fill, falling back to backward fill before the first key.
func reindexFill(union, times []time.Time, vals []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(union))
	j := 0
	for i, t := range union {
		for j+1 < len(times) && !times[j+1].After(t) {
			j++
		}
		if times[j].After(t) {
			out[i] = vals[0]
			continue
		}
		out[i] = vals[j]
	}
	return out
}

func addFilled(union, aTimes []time.Time, aVals []decimal.Decimal, bTimes []time.Time, bVals []decimal.Decimal) []decimal.Decimal {
	a := reindexFill(union, aTimes, aVals)
	b := reindexFill(union, bTimes, bVals)
	out := make([]decimal.Decimal, len(union))
	for i := range union {
		out[i] = a[i].Add(b[i])
	}
	return out
}

// reindexZero projects vals onto the union key set, zero everywhere the
// source has no exact key.
func reindexZero(union, times []time.Time, vals []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(union))
	j := 0
	for i, t := range union {
		if j < len(times) && times[j].Equal(t) {
			out[i] = vals[j]
			j++
			continue
		}
		out[i] = decimal.Zero
	}
	return out
}

func addZeroFilled(union, aTimes []time.Time, aVals []decimal.Decimal, bTimes []time.Time, bVals []decimal.Decimal) []decimal.Decimal {
	a := reindexZero(union, aTimes, aVals)
	b := reindexZero(union, bTimes, bVals)
	out := make([]decimal.Decimal, len(union))
	for i := range union {
		out[i] = a[i].Add(b[i])
	}
	return out
}

// coalesceSeries keeps the left operand's value where both ledgers carry
// the same key; shard key sets never overlap, so in practice exactly one
// side contributes each point.
func coalesceSeries(union, aTimes []time.Time, aVals []decimal.Decimal, bTimes []time.Time, bVals []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(union))
	i, j := 0, 0
	for k, t := range union {
		switch {
		case i < len(aTimes) && aTimes[i].Equal(t):
			out[k] = aVals[i]
			i++
			if j < len(bTimes) && bTimes[j].Equal(t) {
				j++
			}
		case j < len(bTimes) && bTimes[j].Equal(t):
			out[k] = bVals[j]
			j++
		}
	}
	return out
}

func concatOrders(union, aTimes []time.Time, aOrders [][]domain.FinishedOrder, bTimes []time.Time, bOrders [][]domain.FinishedOrder) [][]domain.FinishedOrder {
	out := make([][]domain.FinishedOrder, len(union))
	i, j := 0, 0
	for k, t := range union {
		var row []domain.FinishedOrder
		if i < len(aTimes) && aTimes[i].Equal(t) {
			row = append(row, aOrders[i]...)
			i++
		}
		if j < len(bTimes) && bTimes[j].Equal(t) {
			row = append(row, bOrders[j]...)
			j++
		}
		out[k] = row
	}
	return out
}
