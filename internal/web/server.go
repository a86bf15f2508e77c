// Package web serves a small dashboard over the persisted backtest runs:
// run history as JSON and an equity chart for the latest run.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vadiminshakov/backtest/internal/storage/runs"
	"go.uber.org/zap"
)

type runReader interface {
	List() ([]runs.RunRecord, error)
	Latest() (runs.RunRecord, bool, error)
}

// Server exposes HTTP endpoints serving the HTML UI and the run data.
type Server struct {
	Addr   string
	Store  runReader
	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, store runReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Store: store, logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web viewer listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler builds the route table; split out so tests can drive it without a
// listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/latest", s.handleLatest)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// runSummary is the list view of a run, without the curve payload.
type runSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Pair        string    `json:"pair"`
	Interval    string    `json:"interval"`
	FinishedAt  time.Time `json:"finished_at"`
	Bars        int       `json:"bars"`
	Splits      int       `json:"splits"`
	Logarithmic bool      `json:"logarithmic"`
	FinalEquity string    `json:"final_equity"`
}

func (s *Server) handleRuns(w http.ResponseWriter, _ *http.Request) {
	if s.Store == nil {
		http.Error(w, "run store not available", http.StatusServiceUnavailable)
		return
	}
	records, err := s.Store.List()
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}

	summaries := make([]runSummary, len(records))
	for i, rec := range records {
		summaries[i] = runSummary{
			ID:          rec.ID,
			Name:        rec.Name,
			Pair:        rec.Pair,
			Interval:    rec.Interval,
			FinishedAt:  rec.FinishedAt,
			Bars:        rec.Bars,
			Splits:      rec.Splits,
			Logarithmic: rec.Logarithmic,
			FinalEquity: rec.FinalEquity.String(),
		}
	}
	writeJSON(w, summaries, s.logger)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	if s.Store == nil {
		http.Error(w, "run store not available", http.StatusServiceUnavailable)
		return
	}
	rec, ok, err := s.Store.Latest()
	if err != nil {
		s.logger.Error("load latest run", zap.Error(err))
		http.Error(w, "failed to load latest run", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no runs recorded yet", http.StatusNotFound)
		return
	}
	writeJSON(w, rec, s.logger)
}

func writeJSON(w http.ResponseWriter, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", zap.Error(err))
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Backtest</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      display:flex;
      align-items:center;
      justify-content:center;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1200px, 96vw);
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:1.5rem;
    }
    header { display:flex; justify-content:space-between; align-items:center; }
    h1 { font-size:.9rem; text-transform:uppercase; letter-spacing:.2em; margin:0; }
    .pill {
      font-size:.6rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      padding:.35rem .7rem;
      border:2px solid var(--ink);
      background:#fff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    canvas { border:2px solid var(--ink); background:#fff; }
    .empty {
      border:2px dashed var(--ink-mid);
      padding:2rem;
      text-align:center;
      font-size:.8rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      color:var(--ink-mid);
    }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <h1>backtest viewer</h1>
      <div id="meta" class="pill">loading</div>
    </header>
    <canvas id="chart" height="360"></canvas>
    <div id="empty" class="empty" style="display:none">No runs recorded yet</div>
  </div>
<script>
const metaEl = document.getElementById('meta');
const emptyEl = document.getElementById('empty');

async function load(){
  const resp = await fetch('/api/runs/latest');
  if(resp.status === 404){
    metaEl.textContent = 'no data';
    emptyEl.style.display = 'block';
    return;
  }
  const run = await resp.json();
  metaEl.textContent = run.name + ' | ' + run.pair + ' | ' + run.bars + ' bars';
  const labels = run.times.map(t => new Date(t).toLocaleString());
  new Chart(document.getElementById('chart'), {
    type: 'line',
    data: {
      labels: labels,
      datasets: [
        { label:'Equity', data: run.equity.map(parseFloat), borderColor:'#111111', pointRadius:0, borderWidth:2 },
        { label:'Balance', data: run.balance.map(parseFloat), borderColor:'#1b9aaa', pointRadius:0, borderWidth:2 },
        { label:'Position', data: run.position.map(parseFloat), borderColor:'#d7263d', pointRadius:0, borderWidth:1, yAxisID:'y1' }
      ]
    },
    options: {
      animation:false,
      interaction:{ intersect:false, mode:'index' },
      scales:{
        y:{ grid:{ color:'rgba(0,0,0,0.08)' } },
        y1:{ position:'right', grid:{ drawOnChartArea:false } }
      }
    }
  });
}

load().catch(err => { metaEl.textContent = 'error'; console.error(err); });
</script>
</body>
</html>`
