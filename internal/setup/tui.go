package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result
// to config.gen.yaml.
func RunTUI() error {
	var (
		platform       string
		pair           string
		interval       string
		limitStr       string
		csvPath        string
		makerFeeStr    string
		takerFeeStr    string
		balanceInitStr string
		splitsStr      string
		logarithmic    bool
		strategy       string
		fractionStr    string
		fastStr        string
		slowStr        string
		atrStr         string
		reportFreqStr  string
		webAddr        string
		confirm        bool
	)

	// defaults
	pair = "BTC_USDT"
	interval = "1h"
	limitStr = "1000"
	makerFeeStr = "0.001"
	takerFeeStr = "0.002"
	balanceInitStr = "10000"
	splitsStr = "1"
	fractionStr = "0.5"
	fastStr = "20"
	slowStr = "50"
	atrStr = "14"
	reportFreqStr = "24h"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Configure a run in a few steps.\n"))

	// data source
	fmt.Println(stepStyle.Render("STEP 1: DATA SOURCE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do the candles come from?").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid", config.PlatformHyperliquid),
					huh.NewOption("CSV file", config.PlatformCSV),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	if platform == config.PlatformCSV {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 1b: CSV FILE"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Path to candle csv").
					Description("time,open,high,low,close,volume rows").
					Value(&csvPath).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("path cannot be empty")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// asset and window
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ASSET AND WINDOW"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("pair cannot be empty")
					}
					if !containsUnderscore(s) {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
			huh.NewInput().
				Title("Kline Interval").
				Description("e.g. 1m, 1h, 4h, 1d").
				Value(&interval),
			huh.NewInput().
				Title("Candles to fetch").
				Value(&limitStr).
				Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return err
	}

	// fees and balance
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: FEES AND BALANCE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Maker Fee Rate").
				Description("e.g. 0.001 for 0.1%").
				Value(&makerFeeStr).
				Validate(validateDecimal),
			huh.NewInput().
				Title("Taker Fee Rate").
				Value(&takerFeeStr).
				Validate(validateDecimal),
			huh.NewInput().
				Title("Initial Quote Balance").
				Value(&balanceInitStr).
				Validate(validateDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	// execution
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: EXECUTION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Parallel Shards").
				Description("1 runs sequentially, -1 uses all cpus").
				Value(&splitsStr).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)
					return err
				}),
			huh.NewConfirm().
				Title("Chain shard returns multiplicatively?").
				Affirmative("Yes (log mode)").
				Negative("No (linear)").
				Value(&logarithmic),
		),
	).Run()
	if err != nil {
		return err
	}

	// strategy
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: STRATEGY"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose your strategy").
				Options(
					huh.NewOption("SMA Cross (trend following)", config.StrategySMACross),
					huh.NewOption("Hold (buy once and hold)", config.StrategyHold),
				).
				Value(&strategy),
			huh.NewInput().
				Title("Fraction of equity per entry").
				Description("Between 0 and 1 (e.g. 0.5)").
				Value(&fractionStr).
				Validate(validateFraction),
		),
	).Run()
	if err != nil {
		return err
	}

	if strategy == config.StrategySMACross {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 5b: SMA CROSS SETTINGS"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Fast SMA Period").
					Value(&fastStr).
					Validate(validatePositiveInt),
				huh.NewInput().
					Title("Slow SMA Period").
					Value(&slowStr).
					Validate(validatePositiveInt),
				huh.NewInput().
					Title("ATR Period").
					Description("Offsets limit prices from close").
					Value(&atrStr).
					Validate(validatePositiveInt),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// reporting
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 6: REPORTING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Profit Resampling Frequency").
				Description("Duration string (e.g. 1h, 24h)").
				Value(&reportFreqStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Web Viewer Address").
				Description("Leave empty to skip (e.g. :8080)").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTEST CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nInterval: %s x %s\nStrategy: %s\nFees: %s / %s\nBalance: %s\nShards: %s\n",
		platform, pair, interval, limitStr, strategy, makerFeeStr, takerFeeStr, balanceInitStr, splitsStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and run").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	limit, _ := strconv.Atoi(limitStr)
	splits, _ := strconv.Atoi(splitsStr)
	fast, _ := strconv.Atoi(fastStr)
	slow, _ := strconv.Atoi(slowStr)
	atr, _ := strconv.Atoi(atrStr)

	cfgTmp := config.ConfigTmp{
		Platform:       platform,
		Pair:           pair,
		Interval:       interval,
		Limit:          limit,
		CSVPath:        csvPath,
		MakerFeeStr:    makerFeeStr,
		TakerFeeStr:    takerFeeStr,
		BalanceInitStr: balanceInitStr,
		Splits:         splits,
		Logarithmic:    logarithmic,
		Strategy:       strategy,
		FractionStr:    fractionStr,
		ReportFreqStr:  reportFreqStr,
		WebAddr:        webAddr,
	}
	if strategy == config.StrategySMACross {
		cfgTmp.FastPeriod = fast
		cfgTmp.SlowPeriod = slow
		cfgTmp.ATRPeriod = atr
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	// write to config.gen.yaml
	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting run...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDecimal(s string) error {
	if _, err := decimal.NewFromString(s); err != nil {
		return fmt.Errorf("must be a valid number")
	}
	return nil
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func containsUnderscore(s string) bool {
	for _, r := range s {
		if r == '_' {
			return true
		}
	}
	return false
}
