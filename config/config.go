// Package config loads run parameters from a yaml file or command-line
// flags. The yaml form is what the setup wizard generates.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"
	PlatformCSV         = "csv"

	StrategyHold     = "hold"
	StrategySMACross = "smacross"
)

// Config holds everything one backtest run needs.
type Config struct {
	Platform string
	Pair     domain.Pair
	Interval string
	Limit    int
	CSVPath  string

	MakerFee    decimal.Decimal
	TakerFee    decimal.Decimal
	BalanceInit decimal.Decimal
	Splits      int
	Logarithmic bool

	Strategy   string
	Fraction   decimal.Decimal
	FastPeriod int
	SlowPeriod int
	ATRPeriod  int

	ReportFreq time.Duration
	WebAddr    string
	WALDir     string
}

// ConfigTmp mirrors the yaml layout with string fields, parsed into Config.
type ConfigTmp struct {
	Platform string `yaml:"platform"`
	Pair     string `yaml:"pair"`
	Interval string `yaml:"interval,omitempty"`
	Limit    int    `yaml:"limit,omitempty"`
	CSVPath  string `yaml:"csv_path,omitempty"`

	MakerFeeStr    string `yaml:"maker_fee,omitempty"`
	TakerFeeStr    string `yaml:"taker_fee,omitempty"`
	BalanceInitStr string `yaml:"balance_init,omitempty"`
	Splits         int    `yaml:"splits,omitempty"`
	Logarithmic    bool   `yaml:"logarithmic,omitempty"`

	Strategy    string `yaml:"strategy,omitempty"`
	FractionStr string `yaml:"fraction,omitempty"`
	FastPeriod  int    `yaml:"fast_period,omitempty"`
	SlowPeriod  int    `yaml:"slow_period,omitempty"`
	ATRPeriod   int    `yaml:"atr_period,omitempty"`

	ReportFreqStr string `yaml:"report_freq,omitempty"`
	WebAddr       string `yaml:"web_addr,omitempty"`
	WALDir        string `yaml:"wal_dir,omitempty"`
}

// Get loads the config from the --config yaml file when given, otherwise
// from the remaining flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", PlatformBinance, "data source: binance, bybit, hyperliquid or csv")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	interval := flag.String("interval", "1h", "kline interval, example: 1h")
	limit := flag.Int("limit", 1000, "number of candles to fetch")
	csvPath := flag.String("csvpath", "", "path to a candle csv file (platform=csv)")
	makerFee := flag.String("makerfee", "0.001", "maker fee rate")
	takerFee := flag.String("takerfee", "0.002", "taker fee rate")
	balanceInit := flag.String("balance", "10000", "initial quote balance")
	splits := flag.Int("splits", 1, "parallel shards; negatives are relative to cpu count")
	logarithmic := flag.Bool("log", false, "chain shard returns multiplicatively")
	strategy := flag.String("strategy", StrategySMACross, "strategy: smacross or hold")
	fraction := flag.String("fraction", "0.5", "fraction of equity per entry")
	fast := flag.Int("fast", 20, "fast sma period")
	slow := flag.Int("slow", 50, "slow sma period")
	atr := flag.Int("atr", 14, "atr period for limit offsets")
	reportFreq := flag.String("reportfreq", "24h", "profit resampling frequency")
	webAddr := flag.String("webaddr", "", "serve the run viewer on this address, example :8080")
	walDir := flag.String("waldir", "", "run journal directory")
	flag.Parse()

	if *configPath != "" {
		return FromYAML(*configPath)
	}

	tmp := ConfigTmp{
		Platform:       *platform,
		Pair:           *pairFlag,
		Interval:       *interval,
		Limit:          *limit,
		CSVPath:        *csvPath,
		MakerFeeStr:    *makerFee,
		TakerFeeStr:    *takerFee,
		BalanceInitStr: *balanceInit,
		Splits:         *splits,
		Logarithmic:    *logarithmic,
		Strategy:       *strategy,
		FractionStr:    *fraction,
		FastPeriod:     *fast,
		SlowPeriod:     *slow,
		ATRPeriod:      *atr,
		ReportFreqStr:  *reportFreq,
		WebAddr:        *webAddr,
		WALDir:         *walDir,
	}
	return tmp.parse()
}

// FromYAML loads the config from a yaml file.
func FromYAML(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}
	return tmp.parse()
}

func (c ConfigTmp) parse() (Config, error) {
	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param: %s, error: %w", c.Pair, err)
	}

	cfg := Config{
		Platform:    strings.ToLower(c.Platform),
		Pair:        pair,
		Interval:    c.Interval,
		Limit:       c.Limit,
		CSVPath:     c.CSVPath,
		Splits:      c.Splits,
		Logarithmic: c.Logarithmic,
		Strategy:    strings.ToLower(c.Strategy),
		FastPeriod:  c.FastPeriod,
		SlowPeriod:  c.SlowPeriod,
		ATRPeriod:   c.ATRPeriod,
		WebAddr:     c.WebAddr,
		WALDir:      c.WALDir,
	}

	// defaults
	if cfg.Platform == "" {
		cfg.Platform = PlatformBinance
	}
	if cfg.Interval == "" {
		cfg.Interval = "1h"
	}
	if cfg.Limit == 0 {
		cfg.Limit = 1000
	}
	if cfg.Splits == 0 {
		cfg.Splits = 1
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySMACross
	}
	if cfg.FastPeriod == 0 {
		cfg.FastPeriod = 20
	}
	if cfg.SlowPeriod == 0 {
		cfg.SlowPeriod = 50
	}
	if cfg.ATRPeriod == 0 {
		cfg.ATRPeriod = 14
	}

	reportFreq := c.ReportFreqStr
	if reportFreq == "" {
		reportFreq = "24h"
	}
	if cfg.ReportFreq, err = time.ParseDuration(reportFreq); err != nil {
		return Config{}, fmt.Errorf("incorrect 'report_freq' param, error: %w", err)
	}

	if cfg.MakerFee, err = parseDecimal(c.MakerFeeStr, "0.001"); err != nil {
		return Config{}, fmt.Errorf("incorrect 'maker_fee' param, error: %w", err)
	}
	if cfg.TakerFee, err = parseDecimal(c.TakerFeeStr, "0.002"); err != nil {
		return Config{}, fmt.Errorf("incorrect 'taker_fee' param, error: %w", err)
	}
	if cfg.BalanceInit, err = parseDecimal(c.BalanceInitStr, "10000"); err != nil {
		return Config{}, fmt.Errorf("incorrect 'balance_init' param, error: %w", err)
	}
	if cfg.Fraction, err = parseDecimal(c.FractionStr, "0.5"); err != nil {
		return Config{}, fmt.Errorf("incorrect 'fraction' param, error: %w", err)
	}

	switch cfg.Platform {
	case PlatformBinance, PlatformBybit, PlatformHyperliquid:
	case PlatformCSV:
		if cfg.CSVPath == "" {
			return Config{}, fmt.Errorf("'csv_path' is required when platform is csv")
		}
	default:
		return Config{}, fmt.Errorf("unknown platform %q", cfg.Platform)
	}

	switch cfg.Strategy {
	case StrategyHold, StrategySMACross:
	default:
		return Config{}, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}

	return cfg, nil
}

func parseDecimal(s, def string) (decimal.Decimal, error) {
	if s == "" {
		s = def
	}
	return decimal.NewFromString(s)
}
