// Package collector fetches historical candlestick data from exchanges (or
// local files) and normalizes it into the candle sequence the engine
// replays.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/pkg/retrier"
	"go.uber.org/zap"
)

const fetchTimeout = 30 * time.Second

// KlineProvider fetches historical kline (candlestick) data for a trading
// pair. Interval uses the usual exchange notation: "1m", "5m", "1h", "4h",
// "1d". Limit caps the number of candles, newest last.
type KlineProvider interface {
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}

// CandleCollector wraps a provider with timeout, ordering and sanity checks
// so the engine always receives an ascending, deduplicated sequence.
type CandleCollector struct {
	provider KlineProvider
	pair     domain.Pair
	retry    *retrier.Retrier
	logger   *zap.Logger
}

// NewCandleCollector creates a collector for the given pair. A nil logger is
// replaced with a no-op one.
func NewCandleCollector(provider KlineProvider, pair domain.Pair, logger *zap.Logger) *CandleCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandleCollector{
		provider: provider,
		pair:     pair,
		retry:    retrier.New(retrier.WithMaxRetries(3)),
		logger:   logger,
	}
}

// Collect fetches up to limit candles for the interval and returns them in
// strictly ascending time order.
func (c *CandleCollector) Collect(ctx context.Context, interval string, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.Errorf("limit must be positive, got %d", limit)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	candles, err := retrier.DoWithData(c.retry, ctx, func(ctx context.Context) ([]domain.Candle, error) {
		return c.provider.GetKlines(ctx, c.pair, interval, limit)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch klines for %s %s", c.pair.String(), interval)
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("no kline data returned for %s %s", c.pair.String(), interval)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})
	candles = dedupeByTime(candles)

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	c.logger.Info("candles collected",
		zap.String("pair", c.pair.String()),
		zap.String("interval", interval),
		zap.Int("count", len(candles)),
		zap.Time("first", candles[0].Time),
		zap.Time("last", candles[len(candles)-1].Time))
	return candles, nil
}

// dedupeByTime drops repeated time keys, keeping the first occurrence; the
// input must already be sorted.
func dedupeByTime(candles []domain.Candle) []domain.Candle {
	out := candles[:0]
	for i, c := range candles {
		if i > 0 && !c.Time.After(candles[i-1].Time) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// parseCandle builds a candle from the string price fields every exchange
// API hands back.
func parseCandle(ts time.Time, open, high, low, close, volume string) (domain.Candle, error) {
	var (
		c   domain.Candle
		err error
	)
	c.Time = ts
	if c.Open, err = decimal.NewFromString(open); err != nil {
		return c, errors.Wrapf(err, "parse open price %q", open)
	}
	if c.High, err = decimal.NewFromString(high); err != nil {
		return c, errors.Wrapf(err, "parse high price %q", high)
	}
	if c.Low, err = decimal.NewFromString(low); err != nil {
		return c, errors.Wrapf(err, "parse low price %q", low)
	}
	if c.Close, err = decimal.NewFromString(close); err != nil {
		return c, errors.Wrapf(err, "parse close price %q", close)
	}
	if c.Volume, err = decimal.NewFromString(volume); err != nil {
		return c, errors.Wrapf(err, "parse volume %q", volume)
	}
	return c, nil
}
