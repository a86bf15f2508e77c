package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromYAML(t *testing.T) {
	path := writeYAML(t, `
platform: bybit
pair: ETH_USDT
interval: 4h
limit: 500
maker_fee: "0.0005"
taker_fee: "0.00075"
balance_init: "25000"
splits: 4
logarithmic: true
strategy: hold
fraction: "1"
report_freq: 1h
web_addr: ":8080"
wal_dir: "./wal/test"
`)

	cfg, err := FromYAML(path)
	require.NoError(t, err)
	require.Equal(t, PlatformBybit, cfg.Platform)
	require.Equal(t, "ETH", cfg.Pair.From)
	require.Equal(t, "USDT", cfg.Pair.To)
	require.Equal(t, "4h", cfg.Interval)
	require.Equal(t, 500, cfg.Limit)
	require.True(t, cfg.MakerFee.Equal(decimal.RequireFromString("0.0005")))
	require.True(t, cfg.BalanceInit.Equal(decimal.RequireFromString("25000")))
	require.Equal(t, 4, cfg.Splits)
	require.True(t, cfg.Logarithmic)
	require.Equal(t, StrategyHold, cfg.Strategy)
	require.True(t, cfg.Fraction.Equal(decimal.NewFromInt(1)))
	require.Equal(t, time.Hour, cfg.ReportFreq)
	require.Equal(t, ":8080", cfg.WebAddr)
	require.Equal(t, "./wal/test", cfg.WALDir)
}

func TestFromYAMLDefaults(t *testing.T) {
	path := writeYAML(t, `
platform: binance
pair: BTC_USDT
`)

	cfg, err := FromYAML(path)
	require.NoError(t, err)
	require.Equal(t, "1h", cfg.Interval)
	require.Equal(t, 1000, cfg.Limit)
	require.Equal(t, 1, cfg.Splits)
	require.Equal(t, StrategySMACross, cfg.Strategy)
	require.Equal(t, 20, cfg.FastPeriod)
	require.Equal(t, 50, cfg.SlowPeriod)
	require.Equal(t, 14, cfg.ATRPeriod)
	require.Equal(t, 24*time.Hour, cfg.ReportFreq)
	require.True(t, cfg.MakerFee.Equal(decimal.RequireFromString("0.001")))
	require.True(t, cfg.TakerFee.Equal(decimal.RequireFromString("0.002")))
	require.True(t, cfg.BalanceInit.Equal(decimal.RequireFromString("10000")))
	require.False(t, cfg.Logarithmic)
}

func TestFromYAMLValidation(t *testing.T) {
	_, err := FromYAML(writeYAML(t, "platform: binance\npair: BTCUSDT\n"))
	require.Error(t, err, "pair without underscore")

	_, err = FromYAML(writeYAML(t, "platform: kraken\npair: BTC_USDT\n"))
	require.Error(t, err, "unknown platform")

	_, err = FromYAML(writeYAML(t, "platform: csv\npair: BTC_USDT\n"))
	require.Error(t, err, "csv platform without path")

	_, err = FromYAML(writeYAML(t, "platform: binance\npair: BTC_USDT\nstrategy: martingale\n"))
	require.Error(t, err, "unknown strategy")

	_, err = FromYAML(writeYAML(t, "platform: binance\npair: BTC_USDT\nmaker_fee: abc\n"))
	require.Error(t, err, "bad decimal")

	_, err = FromYAML(writeYAML(t, "platform: binance\npair: BTC_USDT\nreport_freq: often\n"))
	require.Error(t, err, "bad duration")

	_, err = FromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCSVPlatform(t *testing.T) {
	cfg, err := FromYAML(writeYAML(t, "platform: csv\npair: BTC_USDT\ncsv_path: ./candles.csv\n"))
	require.NoError(t, err)
	require.Equal(t, PlatformCSV, cfg.Platform)
	require.Equal(t, "./candles.csv", cfg.CSVPath)
}
