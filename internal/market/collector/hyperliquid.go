package collector

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/backtest/internal/domain"
)

// HyperliquidKlineProvider implements KlineProvider for Hyperliquid.
type HyperliquidKlineProvider struct {
	info *hyperliquid.Info
}

// NewHyperliquidKlineProvider creates a new Hyperliquid kline provider.
func NewHyperliquidKlineProvider(info *hyperliquid.Info) *HyperliquidKlineProvider {
	return &HyperliquidKlineProvider{info: info}
}

// GetKlines fetches a candle snapshot from Hyperliquid. The API takes a time
// window rather than a count, so the window is sized from the interval with
// a little slack and trimmed to the limit afterwards.
func (p *HyperliquidKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info client is nil")
	}
	dur, err := parseInterval(interval)
	if err != nil {
		return nil, err
	}

	endMs := time.Now().UnixMilli()
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()

	// Hyperliquid keys markets by the base coin name, e.g. "BTC".
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch candle snapshot for %s %s", coin, interval)
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("no candles from hyperliquid for %s %s", coin, interval)
	}

	out := make([]domain.Candle, 0, len(candles))
	for i, k := range candles {
		c, err := parseCandle(time.UnixMilli(k.TimeOpen), k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "hyperliquid candle at index %d", i)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseInterval converts exchange interval notation ("1m", "4h", "1d") into
// a duration.
func parseInterval(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Errorf("invalid interval %q", interval)
	}
	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || value <= 0 {
		return 0, errors.Errorf("invalid interval %q", interval)
	}
	switch interval[len(interval)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("unsupported interval unit in %q", interval)
	}
}
