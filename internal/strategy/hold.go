package strategy

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/internal/engine"
)

// Hold buys once with a fixed fraction of the starting balance and keeps the
// position to the end of the data. It is the benchmark the other strategies
// are judged against.
type Hold struct {
	fraction decimal.Decimal
	bought   bool
}

// NewHold creates a buy-and-hold strategy investing the given fraction of
// the balance, 0 < fraction <= 1.
func NewHold(fraction decimal.Decimal) (engine.Factory, error) {
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("hold fraction must be in (0, 1], got %s", fraction)
	}
	return func() engine.Strategy {
		return &Hold{fraction: fraction}
	}, nil
}

func (h *Hold) Initialize() error {
	h.bought = false
	return nil
}

func (h *Hold) OnClose(snap domain.CloseSnapshot, _ domain.Candle) []domain.OrderRequest {
	if h.bought {
		return nil
	}
	h.bought = true
	size := sizeForQuote(snap.BalanceQuote.Mul(h.fraction), snap.Close)
	return []domain.OrderRequest{domain.NewMarketOrder(size)}
}
