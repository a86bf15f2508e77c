// Package report derives performance metrics from a finished run ledger and
// renders them for the terminal. Metrics are computed in float64: they are
// descriptive statistics, not accounting values.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/internal/engine"
)

const year = 365 * 24 * time.Hour

// Metrics is the summary of a run.
type Metrics struct {
	Name        string
	Logarithmic bool
	Freq        time.Duration
	Period      time.Duration

	WinRatio     float64
	ProfitMean   float64
	ProfitMedian float64
	ProfitStd    float64

	AnnualVolatility float64
	AnnualSharpe     float64
	AnnualSortino    float64
	MaxDrawdown      float64

	MakerFeeRate domain.FeeRate
	TakerFeeRate domain.FeeRate

	TotalFee      float64
	TotalMakerFee float64
	TotalTakerFee float64
	// FeeRatio is the total fee over the gross profit (profit before fees).
	FeeRatio float64

	TotalOrderAmount float64
	TotalOrdersCount int

	MakerRatio              float64
	TakerRatio              float64
	CancelledNotFilledRatio float64
	CancelledPostOnlyRatio  float64
}

// Compute derives metrics from the ledger, resampling the equity curve at
// freq for the profit statistics.
func Compute(res *engine.Result, freq time.Duration) (*Metrics, error) {
	if res.Len() < 2 {
		return nil, errors.Errorf("need at least 2 ledger rows, got %d", res.Len())
	}
	if freq <= 0 {
		return nil, errors.Errorf("freq must be positive, got %s", freq)
	}

	m := &Metrics{
		Name:         res.Name,
		Logarithmic:  res.Logarithmic,
		Freq:         freq,
		Period:       res.Times[res.Len()-1].Sub(res.Times[0]),
		MakerFeeRate: res.MakerFeeRate,
		TakerFeeRate: res.TakerFeeRate,
	}

	equity := make([]float64, res.Len())
	for i, v := range res.EquityQuote {
		equity[i], _ = v.Float64()
	}

	profit := profitSeries(res.Times, equity, freq, res.Logarithmic)
	if len(profit) == 0 {
		return nil, errors.Errorf("period %s shorter than resampling freq %s", m.Period, freq)
	}

	m.ProfitMean = mean(profit)
	m.ProfitMedian = median(profit)
	m.ProfitStd = std(profit)
	m.WinRatio = shareOf(profit, func(p float64) bool { return p > 0 })

	annualFactor := math.Sqrt(float64(year) / float64(m.Period))
	m.AnnualVolatility = m.ProfitStd * annualFactor
	if m.AnnualVolatility != 0 {
		m.AnnualSharpe = m.ProfitMean / m.AnnualVolatility
	}
	if downside := std(filter(profit, func(p float64) bool { return p < 0 })); downside != 0 {
		m.AnnualSortino = m.ProfitMean / downside * annualFactor
	}

	m.MaxDrawdown = maxDrawdown(equity)
	if !res.Logarithmic {
		m.MaxDrawdown *= equity[0]
	}

	fillOrderMetrics(m, res.AllFinishedOrders())

	grossProfit := equity[len(equity)-1] - equity[0] + m.TotalFee
	if grossProfit != 0 {
		m.FeeRatio = m.TotalFee / grossProfit
	}
	return m, nil
}

// profitSeries resamples equity into freq buckets (first value per bucket,
// gaps carried forward) and returns per-bucket returns in logarithmic mode
// or per-bucket differences otherwise.
func profitSeries(times []time.Time, equity []float64, freq time.Duration, logarithmic bool) []float64 {
	first := times[0]
	lastBucket := int(times[len(times)-1].Sub(first) / freq)

	sampled := make([]float64, lastBucket+1)
	seen := make([]bool, lastBucket+1)
	for i, t := range times {
		b := int(t.Sub(first) / freq)
		if !seen[b] {
			sampled[b] = equity[i]
			seen[b] = true
		}
	}
	for b := 1; b <= lastBucket; b++ {
		if !seen[b] {
			sampled[b] = sampled[b-1]
		}
	}

	profit := make([]float64, 0, lastBucket)
	for b := 1; b <= lastBucket; b++ {
		if logarithmic {
			if sampled[b-1] == 0 {
				profit = append(profit, 0)
				continue
			}
			profit = append(profit, sampled[b]/sampled[b-1]-1)
		} else {
			profit = append(profit, sampled[b]-sampled[b-1])
		}
	}
	return profit
}

// maxDrawdown returns the largest relative fall from a running peak, as a
// non-positive fraction of the peak.
func maxDrawdown(equity []float64) float64 {
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (v - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func fillOrderMetrics(m *Metrics, orders []domain.FinishedOrder) {
	m.TotalOrdersCount = len(orders)
	if len(orders) == 0 {
		return
	}

	var makerCount, takerCount, notFilledCount, postOnlyCount int
	for _, fo := range orders {
		fee, _ := fo.Fee.Float64()
		amount, _ := fo.QuoteSize.Abs().Float64()
		m.TotalFee += fee
		m.TotalOrderAmount += amount
		switch fo.State {
		case domain.FilledMaker:
			m.TotalMakerFee += fee
			makerCount++
		case domain.FilledTaker:
			m.TotalTakerFee += fee
			takerCount++
		case domain.CancelledNotFilled:
			notFilledCount++
		case domain.CancelledPostOnly:
			postOnlyCount++
		}
	}

	n := float64(len(orders))
	m.MakerRatio = float64(makerCount) / n
	m.TakerRatio = float64(takerCount) / n
	m.CancelledNotFilledRatio = float64(notFilledCount) / n
	m.CancelledPostOnlyRatio = float64(postOnlyCount) / n
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// std is the sample standard deviation.
func std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - mu) * (x - mu)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func shareOf(xs []float64, pred func(float64) bool) float64 {
	if len(xs) == 0 {
		return 0
	}
	count := 0
	for _, x := range xs {
		if pred(x) {
			count++
		}
	}
	return float64(count) / float64(len(xs))
}

func filter(xs []float64, pred func(float64) bool) []float64 {
	var out []float64
	for _, x := range xs {
		if pred(x) {
			out = append(out, x)
		}
	}
	return out
}
