// Package runs persists finished backtest runs in a write-ahead log so past
// experiments survive restarts and feed the web viewer.
package runs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtest/internal/engine"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir   = "./wal/runs"
	segmentLimit = 100
	maxSegments  = 10

	runKeyPrefix = "run_"
)

// RunRecord is the persisted form of one backtest run: parameters plus the
// merged ledger curves.
type RunRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Pair        string    `json:"pair"`
	Interval    string    `json:"interval"`
	FinishedAt  time.Time `json:"finished_at"`
	Bars        int       `json:"bars"`
	Splits      int       `json:"splits"`
	Logarithmic bool      `json:"logarithmic"`

	BalanceInit decimal.Decimal `json:"balance_init"`
	FinalEquity decimal.Decimal `json:"final_equity"`

	Times    []time.Time       `json:"times"`
	Close    []decimal.Decimal `json:"close"`
	Position []decimal.Decimal `json:"position"`
	Balance  []decimal.Decimal `json:"balance"`
	Equity   []decimal.Decimal `json:"equity"`
}

// NewRunRecord snapshots a finished ledger into a persistable record.
func NewRunRecord(res *engine.Result, pair, interval string, splits int) RunRecord {
	rec := RunRecord{
		ID:          uuid.NewString(),
		Name:        res.Name,
		Pair:        pair,
		Interval:    interval,
		FinishedAt:  time.Now().UTC(),
		Bars:        res.Len(),
		Splits:      splits,
		Logarithmic: res.Logarithmic,
		BalanceInit: res.BalanceInit,
		Times:       res.Times,
		Close:       res.Close,
		Position:    res.Position,
		Balance:     res.BalanceQuote,
		Equity:      res.EquityQuote,
	}
	if res.Len() > 0 {
		rec.FinalEquity = res.EquityQuote[res.Len()-1]
	}
	return rec
}

// WALStore persists run records in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed run store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "run_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the run record to the log.
func (s *WALStore) Save(rec RunRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}
	if rec.ID == "" {
		return errors.New("run record id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal run record")
	}

	key := fmt.Sprintf("%s%s", runKeyPrefix, rec.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// List returns all persisted runs, oldest first.
func (s *WALStore) List() ([]RunRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("run store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []RunRecord
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, runKeyPrefix) {
			continue
		}
		var rec RunRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return nil, errors.Wrap(err, "decode run record")
		}
		records = append(records, rec)
	}
	return records, nil
}

// Latest returns the most recently saved run, or ok=false when the log is
// empty.
func (s *WALStore) Latest() (RunRecord, bool, error) {
	records, err := s.List()
	if err != nil {
		return RunRecord{}, false, err
	}
	if len(records) == 0 {
		return RunRecord{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("run store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
