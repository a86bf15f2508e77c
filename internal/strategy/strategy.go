// Package strategy ships the built-in trading strategies run by the engine.
// Each strategy is constructed per shard through an engine.Factory, so
// implementations are free to keep rolling windows and position flags
// without synchronization.
package strategy

import (
	"github.com/shopspring/decimal"
)

// sizeForQuote converts a quote-denominated budget into a base order size at
// the given price. A zero price yields a zero size, which the engine skips.
func sizeForQuote(quote, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return quote.Div(price)
}
