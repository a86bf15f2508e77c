// Command backtest replays a trading strategy over historical candles and
// prints a performance report. Candles come from Binance, Bybit, Hyperliquid
// or a local csv file; the run can be partitioned into parallel shards that
// are merged back into one continuous ledger.
//
// Usage:
//
//	backtest setup                  (interactive wizard, writes config.gen.yaml)
//	backtest --config config.yaml
//	backtest (uses CLI arguments)
//
// Required environment variables:
//
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY (optional HYPERLIQUID_API_URL)
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vadiminshakov/backtest/config"
	"github.com/vadiminshakov/backtest/internal/clients"
	"github.com/vadiminshakov/backtest/internal/engine"
	"github.com/vadiminshakov/backtest/internal/market/collector"
	"github.com/vadiminshakov/backtest/internal/report"
	"github.com/vadiminshakov/backtest/internal/setup"
	"github.com/vadiminshakov/backtest/internal/storage/runs"
	"github.com/vadiminshakov/backtest/internal/strategy"
	"github.com/vadiminshakov/backtest/internal/web"
	"go.uber.org/zap"
)

const defaultHyperliquidAPIURL = "https://api.hyperliquid.xyz"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}
}

// loadConfig reads the config from flags or yaml; the "setup" subcommand
// launches the wizard first and then loads what it wrote.
func loadConfig() (config.Config, error) {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			return config.Config{}, err
		}
		return config.FromYAML("config.gen.yaml")
	}
	return config.Get()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	provider, err := klineProvider(cfg)
	if err != nil {
		return err
	}

	bars, err := collector.NewCandleCollector(provider, cfg.Pair, logger).
		Collect(ctx, cfg.Interval, cfg.Limit)
	if err != nil {
		return err
	}

	factory, err := strategyFactory(cfg)
	if err != nil {
		return err
	}

	runner := engine.NewRunner(engine.Config{
		Name:        fmt.Sprintf("%s %s %s", cfg.Strategy, cfg.Pair.String(), cfg.Interval),
		MakerFee:    cfg.MakerFee,
		TakerFee:    cfg.TakerFee,
		BalanceInit: cfg.BalanceInit,
		Splits:      cfg.Splits,
		Logarithmic: cfg.Logarithmic,
	}, logger)

	res, err := runner.Run(ctx, bars, factory)
	if err != nil {
		return err
	}

	metrics, err := report.Compute(res, cfg.ReportFreq)
	if err != nil {
		return err
	}
	fmt.Println(metrics.Render())

	walDir := cfg.WALDir
	if walDir == "" {
		walDir = runs.DefaultDir
	}
	store, err := runs.NewWALStore(walDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(runs.NewRunRecord(res, cfg.Pair.String(), cfg.Interval, cfg.Splits)); err != nil {
		return err
	}
	logger.Info("run persisted", zap.String("dir", walDir))

	if cfg.WebAddr != "" {
		return web.NewServer(cfg.WebAddr, store, logger).Start(ctx)
	}
	return nil
}

// klineProvider picks the candle source for the configured platform.
// Historical klines on Binance and Bybit are public endpoints, so those
// clients run without credentials.
func klineProvider(cfg config.Config) (collector.KlineProvider, error) {
	switch cfg.Platform {
	case config.PlatformBinance:
		client := clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		return collector.NewBinanceKlineProvider(client), nil
	case config.PlatformBybit:
		client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		return collector.NewBybitKlineProvider(client), nil
	case config.PlatformHyperliquid:
		privateKey := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
		if privateKey == "" {
			return nil, fmt.Errorf("HYPERLIQUID_PRIVATE_KEY environment variable must be set")
		}
		apiURL := os.Getenv("HYPERLIQUID_API_URL")
		if apiURL == "" {
			apiURL = defaultHyperliquidAPIURL
		}
		client, err := clients.NewHyperliquidClient(privateKey, apiURL)
		if err != nil {
			return nil, err
		}
		return collector.NewHyperliquidKlineProvider(client.Info()), nil
	case config.PlatformCSV:
		return collector.NewCSVKlineProvider(cfg.CSVPath), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

func strategyFactory(cfg config.Config) (engine.Factory, error) {
	switch cfg.Strategy {
	case config.StrategyHold:
		return strategy.NewHold(cfg.Fraction)
	case config.StrategySMACross:
		return strategy.NewSMACross(strategy.SMACrossConfig{
			FastPeriod: cfg.FastPeriod,
			SlowPeriod: cfg.SlowPeriod,
			ATRPeriod:  cfg.ATRPeriod,
			Fraction:   cfg.Fraction,
		})
	default:
		return nil, fmt.Errorf("unsupported strategy %q", cfg.Strategy)
	}
}
