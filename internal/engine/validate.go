package engine

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtest/internal/domain"
	"go.uber.org/multierr"
)

// validate checks the run input at the boundary, once, before any
// simulation. Every violation is collected into a single aggregated error
// rather than failing fast, so the caller sees the full list at once.
func (r *Runner) validate(bars []domain.Candle) error {
	var errs error

	if len(bars) == 0 {
		errs = multierr.Append(errs, errors.New("candle sequence is empty"))
	}

	for i, c := range bars {
		if !c.Open.IsPositive() || !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
			errs = multierr.Append(errs, errors.Errorf("bar %d (%s): prices must be positive", i, c.Time))
		}
		if c.High.LessThan(c.Low) {
			errs = multierr.Append(errs, errors.Errorf("bar %d (%s): high %s below low %s", i, c.Time, c.High, c.Low))
		}
		if c.Open.GreaterThan(c.High) || c.Open.LessThan(c.Low) {
			errs = multierr.Append(errs, errors.Errorf("bar %d (%s): open %s outside [%s, %s]", i, c.Time, c.Open, c.Low, c.High))
		}
		if c.Close.GreaterThan(c.High) || c.Close.LessThan(c.Low) {
			errs = multierr.Append(errs, errors.Errorf("bar %d (%s): close %s outside [%s, %s]", i, c.Time, c.Close, c.Low, c.High))
		}
		if i > 0 && !c.Time.After(bars[i-1].Time) {
			errs = multierr.Append(errs, errors.Errorf("bar %d (%s): time keys must be unique and strictly increasing", i, c.Time))
		}
	}

	if !r.cfg.BalanceInit.IsPositive() {
		errs = multierr.Append(errs, errors.Errorf("initial balance must be positive, got %s", r.cfg.BalanceInit))
	}
	if _, err := resolveSplits(r.cfg.Splits, len(bars)); err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		return errors.Wrap(errs, "invalid run input")
	}
	return nil
}
