package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseSnapshot is the per-bar state handed to a strategy after the bar's
// carried orders have been resolved.
type CloseSnapshot struct {
	// Time is the bar key.
	Time time.Time
	// Open, High, Low, Close mirror the bar prices.
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
	// Position is the signed holding in base units.
	Position decimal.Decimal
	// PositionQuote is the position valued at the bar's open.
	PositionQuote decimal.Decimal
	// BalanceQuote is the free quote balance.
	BalanceQuote decimal.Decimal
	// EquityQuote is BalanceQuote plus PositionQuote.
	EquityQuote decimal.Decimal
}
