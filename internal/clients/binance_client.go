// Package clients builds the exchange API clients used by the market data
// collectors. Historical klines are public endpoints, so empty credentials
// are fine for backtesting.
package clients

import (
	"github.com/adshao/go-binance/v2"
)

func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
