package runs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/backtest/internal/domain"
	"github.com/vadiminshakov/backtest/internal/engine"
)

func testResult(name string) *engine.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &engine.Result{
		Name:         name,
		MakerFeeRate: domain.NewFeeRate(decimal.RequireFromString("0.001")),
		TakerFeeRate: domain.NewFeeRate(decimal.RequireFromString("0.002")),
		BalanceInit:  decimal.RequireFromString("1000"),
	}
	for i, eq := range []string{"1000", "1010", "1005"} {
		e := decimal.RequireFromString(eq)
		r.Times = append(r.Times, start.Add(time.Duration(i)*time.Hour))
		r.Close = append(r.Close, decimal.RequireFromString("100"))
		r.Position = append(r.Position, decimal.Zero)
		r.PositionQuote = append(r.PositionQuote, decimal.Zero)
		r.BalanceQuote = append(r.BalanceQuote, e)
		r.EquityQuote = append(r.EquityQuote, e)
		r.FinishedOrders = append(r.FinishedOrders, nil)
	}
	return r
}

func TestSaveAndList(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	first := NewRunRecord(testResult("first"), "BTC_USDT", "1h", 1)
	second := NewRunRecord(testResult("second"), "ETH_USDT", "4h", 4)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "first", records[0].Name)
	require.Equal(t, "BTC_USDT", records[0].Pair)
	require.Equal(t, 3, records[0].Bars)
	require.True(t, records[0].FinalEquity.Equal(decimal.RequireFromString("1005")))
	require.Len(t, records[0].Equity, 3)
}

func TestLatest(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Latest()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(NewRunRecord(testResult("older"), "BTC_USDT", "1h", 1)))
	require.NoError(t, store.Save(NewRunRecord(testResult("newer"), "BTC_USDT", "1h", 1)))

	latest, ok, err := store.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "newer", latest.Name)
}

func TestRecoveryAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	rec := NewRunRecord(testResult("persisted"), "BTC_USDT", "1h", 2)
	require.NoError(t, store.Save(rec))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, rec.ID, records[0].ID)
	require.Equal(t, 2, records[0].Splits)
}

func TestSaveRejectsMissingID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Save(RunRecord{}))
}
