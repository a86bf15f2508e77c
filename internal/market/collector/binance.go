package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtest/internal/domain"
)

// BinanceKlineProvider implements KlineProvider for the Binance exchange.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// GetKlines fetches kline data from Binance, oldest first.
func (p *BinanceKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		c, err := parseCandle(time.UnixMilli(k.OpenTime), k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "binance kline at index %d", i)
		}
		result[i] = c
	}
	return result, nil
}
