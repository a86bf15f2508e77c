package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"go.uber.org/zap"
)

// resolveSplits turns the configured shard count into an effective one.
// Negative values are relative to the available parallelism the same way
// negative worker counts usually are: -1 means all CPUs, -2 all but one,
// and so on. Zero and anything below -NumCPU are invalid. The result is
// capped by the bar count so no shard ends up empty.
func resolveSplits(splits, barCount int) (int, error) {
	cpus := runtime.NumCPU()
	if splits == 0 {
		return 0, errors.New("splits must not be 0")
	}
	if splits < -cpus {
		return 0, errors.Errorf("splits must be greater than -cpu_count=%d, got %d", -cpus, splits)
	}
	if splits < 0 {
		splits = cpus + splits + 1
	}
	if barCount > 0 && splits > barCount {
		splits = barCount
	}
	return splits, nil
}

// splitBars cuts the sequence into k contiguous, non-overlapping chunks of
// near-equal length; the first len%k chunks carry one extra bar.
func splitBars(bars []domain.Candle, k int) [][]domain.Candle {
	chunks := make([][]domain.Candle, 0, k)
	base := len(bars) / k
	extra := len(bars) % k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, bars[start:start+size])
		start += size
	}
	return chunks
}

// runParallel simulates k shards concurrently, each starting fresh with the
// full initial balance, then reduces the partial ledgers strictly
// left-to-right on the calling goroutine. A failure in any shard aborts the
// whole run with no partial result; shard computation is deterministic, so
// there is no retry.
func (r *Runner) runParallel(ctx context.Context, bars []domain.Candle, factory Factory, k int) (*Result, error) {
	chunks := splitBars(bars, k)
	results := make([]*Result, len(chunks))
	shardErrs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []domain.Candle) {
			defer wg.Done()
			results[i], shardErrs[i] = r.runShard(ctx, chunk, factory(), fmt.Sprintf("%s[%d]", r.cfg.Name, i))
		}(i, chunk)
	}
	wg.Wait()

	for i, err := range shardErrs {
		if err != nil {
			return nil, errors.Wrapf(err, "shard %d", i)
		}
	}

	merged := results[0]
	var err error
	for _, next := range results[1:] {
		merged, err = merged.Merge(next)
		if err != nil {
			return nil, err
		}
	}

	if !r.cfg.Logarithmic {
		// Every shard started with the full initial balance; naive
		// summation double-counts that capital k-1 times.
		overcount := r.cfg.BalanceInit.Mul(decimal.NewFromInt(int64(k - 1)))
		merged.BalanceQuote = subSeries(merged.BalanceQuote, overcount)
		merged.EquityQuote = subSeries(merged.EquityQuote, overcount)
	}
	merged.Name = r.cfg.Name

	r.logger.Info("parallel run complete",
		zap.Int("shards", k),
		zap.Int("bars", len(bars)),
		zap.Bool("logarithmic", r.cfg.Logarithmic))
	return merged, nil
}
