package strategy

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/internal/engine"
)

// SMACrossConfig parameterizes the moving-average crossover strategy.
type SMACrossConfig struct {
	// FastPeriod and SlowPeriod are the SMA window lengths; fast must be
	// strictly shorter than slow.
	FastPeriod int
	SlowPeriod int
	// ATRPeriod is the window used to offset entry and exit limit prices
	// from the close.
	ATRPeriod int
	// Fraction of the current equity committed on entry, 0 < f <= 1.
	Fraction decimal.Decimal
}

// SMACross goes long when the fast SMA crosses above the slow one and
// flattens on the cross back down. Entries and exits are post-only limits
// offset one ATR from the close, so the strategy pays maker fees or misses
// the trade.
type SMACross struct {
	cfg SMACrossConfig

	closes []float64
	highs  []float64
	lows   []float64

	prevAbove bool
	prevReady bool
}

// NewSMACross validates the config and returns a shard factory.
func NewSMACross(cfg SMACrossConfig) (engine.Factory, error) {
	if cfg.FastPeriod < 1 || cfg.SlowPeriod < 2 || cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, errors.Errorf("sma periods must satisfy 1 <= fast < slow, got fast=%d slow=%d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.ATRPeriod < 1 {
		return nil, errors.Errorf("atr period must be positive, got %d", cfg.ATRPeriod)
	}
	if !cfg.Fraction.IsPositive() || cfg.Fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("fraction must be in (0, 1], got %s", cfg.Fraction)
	}
	return func() engine.Strategy {
		return &SMACross{cfg: cfg}
	}, nil
}

func (s *SMACross) Initialize() error {
	s.closes = s.closes[:0]
	s.highs = s.highs[:0]
	s.lows = s.lows[:0]
	s.prevAbove = false
	s.prevReady = false
	return nil
}

func (s *SMACross) OnClose(snap domain.CloseSnapshot, candle domain.Candle) []domain.OrderRequest {
	closeF, _ := candle.Close.Float64()
	highF, _ := candle.High.Float64()
	lowF, _ := candle.Low.Float64()
	s.closes = append(s.closes, closeF)
	s.highs = append(s.highs, highF)
	s.lows = append(s.lows, lowF)

	if len(s.closes) < s.cfg.SlowPeriod {
		return nil
	}

	above := lastSMA(s.closes, s.cfg.FastPeriod) > lastSMA(s.closes, s.cfg.SlowPeriod)
	crossedUp := s.prevReady && above && !s.prevAbove
	crossedDown := s.prevReady && !above && s.prevAbove
	s.prevAbove = above
	s.prevReady = true

	atr := s.lastATR()

	switch {
	case crossedUp && snap.Position.IsZero():
		price := snap.Close.Sub(atr)
		if !price.IsPositive() {
			return nil
		}
		size := sizeForQuote(snap.EquityQuote.Mul(s.cfg.Fraction), price)
		return []domain.OrderRequest{domain.NewLimitOrder(size, price, true)}
	case crossedDown && snap.Position.IsPositive():
		price := snap.Close.Add(atr)
		return []domain.OrderRequest{domain.NewLimitOrder(snap.Position.Neg(), price, true)}
	}
	return nil
}

// lastSMA returns the most recent simple moving average of the series.
func lastSMA(series []float64, period int) float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(series)))
	return out[len(out)-1]
}

// lastATR returns the most recent average true range, or zero during the
// warmup window.
func (s *SMACross) lastATR() decimal.Decimal {
	if len(s.closes) <= s.cfg.ATRPeriod {
		return decimal.Zero
	}
	atr := volatility.NewAtrWithPeriod[float64](s.cfg.ATRPeriod)
	out := helper.ChanToSlice(atr.Compute(
		helper.SliceToChan(s.highs),
		helper.SliceToChan(s.lows),
		helper.SliceToChan(s.closes),
	))
	if len(out) == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(out[len(out)-1])
}
