package collector

import (
	"context"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtest/internal/domain"
)

// bybitIntervals maps the common interval notation onto Bybit's V5 codes.
var bybitIntervals = map[string]bybit.Interval{
	"1m":  bybit.Interval1,
	"3m":  bybit.Interval3,
	"5m":  bybit.Interval5,
	"15m": bybit.Interval15,
	"30m": bybit.Interval30,
	"1h":  bybit.Interval60,
	"2h":  bybit.Interval120,
	"4h":  bybit.Interval240,
	"6h":  bybit.Interval360,
	"12h": bybit.Interval720,
	"1d":  bybit.IntervalD,
}

// BybitKlineProvider implements KlineProvider for the Bybit exchange.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// GetKlines fetches spot kline data from Bybit. The V5 API returns candles
// newest first; they are reversed here so callers get them oldest first.
func (p *BybitKlineProvider) GetKlines(_ context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	bybitInterval, ok := bybitIntervals[interval]
	if !ok {
		return nil, errors.Errorf("unsupported bybit interval %q", interval)
	}

	klines, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybitInterval,
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get klines from Bybit for %s", pair.String())
	}
	if len(klines.Result.List) == 0 {
		return nil, errors.Errorf("no klines data received from Bybit for %s", pair.String())
	}

	result := make([]domain.Candle, 0, len(klines.Result.List))
	for i := len(klines.Result.List) - 1; i >= 0; i-- {
		k := klines.Result.List[i]
		startMs, err := strconv.ParseInt(k.StartTime, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse bybit kline start time %q", k.StartTime)
		}
		c, err := parseCandle(time.UnixMilli(startMs), k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "bybit kline at index %d", i)
		}
		result = append(result, c)
	}
	return result, nil
}
