package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar keyed by its open time. The key is unique and
// strictly increasing across a bar sequence; the engine checks this once at
// the input boundary, not per bar.
type Candle struct {
	// Time is the bar's open time and the ledger key.
	Time time.Time
	// Open is the opening price.
	Open decimal.Decimal
	// High is the highest traded price of the bar.
	High decimal.Decimal
	// Low is the lowest traded price of the bar.
	Low decimal.Decimal
	// Close is the closing price.
	Close decimal.Decimal
	// Volume is the traded base volume.
	Volume decimal.Decimal
}
