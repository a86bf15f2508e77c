package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"go.uber.org/zap"
)

// Strategy consumes a per-bar close snapshot and produces the entire pending
// order set for the next bar. Whatever it returns replaces the carried set
// wholesale, so unfilled orders are cancelled by construction; a strategy
// that wants an order kept alive must re-issue it every bar.
type Strategy interface {
	// Initialize is called once per shard before the first bar.
	Initialize() error
	// OnClose is called exactly once per bar, synchronously, after the
	// bar's carried orders have been resolved.
	OnClose(snap domain.CloseSnapshot, candle domain.Candle) []domain.OrderRequest
}

// Factory builds a fresh strategy instance. Shards run concurrently and each
// gets its own instance, so stateful strategies never share a window or a
// position book across shards.
type Factory func() Strategy

// Config holds the run parameters shared by every shard.
type Config struct {
	// Name labels the resulting ledger.
	Name string
	// MakerFee and TakerFee are the fee rates applied to fills. Negative
	// rates model rebates.
	MakerFee decimal.Decimal
	TakerFee decimal.Decimal
	// BalanceInit is the starting quote balance; every shard starts with
	// the full amount, which the merge corrects afterwards.
	BalanceInit decimal.Decimal
	// Splits is the shard count: 1 runs a single shard inline, values
	// above 1 partition the bar sequence, negatives are resolved relative
	// to the available parallelism, zero is invalid.
	Splits int
	// Logarithmic selects multiplicative (compounded returns) curve
	// chaining across shard seams instead of additive correction.
	Logarithmic bool
}

// Runner drives a strategy across a candle sequence and records the ledger.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner creates a runner. A nil logger is replaced with a no-op one.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "backtest"
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run validates the input, then replays the strategy over the bars. With
// Splits resolved to 1 the whole sequence runs inline; otherwise it is
// partitioned into contiguous shards simulated concurrently and merged back
// into one continuous ledger. Any shard failure aborts the run with no
// partial result.
func (r *Runner) Run(ctx context.Context, bars []domain.Candle, factory Factory) (*Result, error) {
	if err := r.validate(bars); err != nil {
		return nil, err
	}
	if !r.cfg.TakerFee.IsPositive() {
		r.logger.Warn("taker fee is not positive, fills are rebated",
			zap.String("taker_fee", r.cfg.TakerFee.String()))
	}

	splits, err := resolveSplits(r.cfg.Splits, len(bars))
	if err != nil {
		return nil, err
	}
	if splits == 1 {
		return r.runShard(ctx, bars, factory(), r.cfg.Name)
	}
	return r.runParallel(ctx, bars, factory, splits)
}

// runShard executes the strictly sequential bar-by-bar loop: bar i+1's
// resolution depends on bar i's close and on the order set the strategy
// returned at bar i.
func (r *Runner) runShard(ctx context.Context, bars []domain.Candle, strat Strategy, name string) (*Result, error) {
	if err := strat.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initialize strategy")
	}

	res := newResult(name, len(bars), r.cfg.MakerFee, r.cfg.TakerFee, r.cfg.BalanceInit, r.cfg.Logarithmic)

	var (
		carried   []domain.OrderRequest
		lastClose decimal.Decimal
		haveClose bool
	)
	position := decimal.Zero
	balance := r.cfg.BalanceInit

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run aborted")
		}

		// The first bar has no reference close, so it never resolves;
		// there are no carried orders yet anyway.
		var finished []domain.FinishedOrder
		if haveClose {
			for _, order := range carried {
				if order.Size.IsZero() {
					continue
				}
				fo, err := ProcessOrder(order, lastClose, bar.High, bar.Low, r.cfg.MakerFee, r.cfg.TakerFee, bar.Time)
				if err != nil {
					return nil, errors.Wrapf(err, "resolve order at bar %s", bar.Time)
				}
				balance = balance.Sub(fo.BalanceDecrement)
				if fo.Filled() {
					position = position.Add(order.Size)
				}
				finished = append(finished, fo)
			}
		}

		positionQuote := position.Mul(bar.Open)
		equity := balance.Add(positionQuote)

		carried = strat.OnClose(domain.CloseSnapshot{
			Time:          bar.Time,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Position:      position,
			PositionQuote: positionQuote,
			BalanceQuote:  balance,
			EquityQuote:   equity,
		}, bar)

		lastClose = bar.Close
		haveClose = true
		res.append(bar, position, positionQuote, balance, equity, finished)
	}

	r.logger.Debug("shard complete",
		zap.String("name", name),
		zap.Int("bars", len(bars)),
		zap.String("final_equity", equityTail(res)))
	return res, nil
}

func equityTail(res *Result) string {
	if res.Len() == 0 {
		return "n/a"
	}
	return res.EquityQuote[res.Len()-1].String()
}
