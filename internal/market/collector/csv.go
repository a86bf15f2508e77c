package collector

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/pkg/retrier"
)

// CSVKlineProvider implements KlineProvider from a local CSV file, for
// offline runs and reproducible experiments. Expected columns:
//
//	time,open,high,low,close,volume
//
// where time is either a unix timestamp (seconds or milliseconds) or an
// RFC 3339 string. A header row is detected and skipped. Pair and interval
// arguments are ignored: the file is the dataset.
type CSVKlineProvider struct {
	path string
}

// NewCSVKlineProvider creates a provider reading the given file.
func NewCSVKlineProvider(path string) *CSVKlineProvider {
	return &CSVKlineProvider{path: path}
}

// GetKlines reads the whole file and returns the last limit candles. All
// failures are permanent: rereading a broken file cannot help.
func (p *CSVKlineProvider) GetKlines(_ context.Context, _ domain.Pair, _ string, limit int) ([]domain.Candle, error) {
	candles, err := p.read(limit)
	if err != nil {
		return nil, retrier.Permanent(err)
	}
	return candles, nil
}

func (p *CSVKlineProvider) read(limit int) ([]domain.Candle, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open candle file %s", p.path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	var out []domain.Candle
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s line %d", p.path, line)
		}

		ts, err := parseTimeField(record[0])
		if err != nil {
			if line == 1 {
				// header row
				continue
			}
			return nil, errors.Wrapf(err, "%s line %d", p.path, line)
		}

		c, err := parseCandle(ts, record[1], record[2], record[3], record[4], record[5])
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", p.path, line)
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, errors.Errorf("no candles in %s", p.path)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// parseTimeField accepts unix seconds, unix milliseconds or RFC 3339.
func parseTimeField(field string) (time.Time, error) {
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		// heuristics: anything past year 33658 in seconds is milliseconds
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, field)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", field)
	}
	return ts.UTC(), nil
}
