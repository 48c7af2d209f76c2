package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"trading-core/internal/engine"
	"trading-core/internal/model"
	"trading-core/internal/persistence"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    machine_id TEXT,
    final_equity REAL NOT NULL,
    total_return_pct REAL NOT NULL,
    total_trades INTEGER NOT NULL,
    winning_trades INTEGER NOT NULL,
    win_rate REAL NOT NULL,
    gross_profit REAL NOT NULL,
    gross_loss REAL NOT NULL,
    profit_factor REAL NOT NULL,
    duration_ms INTEGER NOT NULL,
    bars_per_sec REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trades (
    run_id TEXT NOT NULL,
    entry_time INTEGER NOT NULL,
    exit_time INTEGER NOT NULL,
    entry_price REAL NOT NULL,
    exit_price REAL NOT NULL,
    side INTEGER NOT NULL,
    quantity REAL NOT NULL,
    pnl REAL NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS equity_points (
    run_id TEXT NOT NULL,
    bar_index INTEGER NOT NULL,
    equity REAL NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(id)
);
`

// Store persists completed run reports, their trade ledgers, and an
// equity curve sample. Reports and trades are written by SaveRun after a
// run finishes; equity points written through EquityStream are buffered
// from inside the bar loop and flushed by the batch writer, which may run
// a flush on the calling goroutine when its buffer fills.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path, applying
// the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EquityPoint is one sample of the equity curve at a given bar index.
type EquityPoint struct {
	BarIndex int
	Equity   float64
}

// EquityWriter batches equity_points inserts for one run so a long backtest
// doesn't have to hold its whole equity curve in memory before SaveRun.
type EquityWriter struct {
	bw    *persistence.BatchWriter
	runID string
}

// EquityStream opens a batched equity-point writer for runID. Rows are
// flushed every 200 points or 500ms, whichever comes first; callers must
// Close it once the run finishes to flush any remainder.
func (s *Store) EquityStream(runID string) *EquityWriter {
	return &EquityWriter{bw: persistence.NewBatchWriter(s.db, 200, 500*time.Millisecond), runID: runID}
}

// Write appends one equity curve sample.
func (w *EquityWriter) Write(barIndex int, equity float64) {
	w.bw.Write(persistence.WriteOp{
		Table: "equity_points",
		Query: `INSERT INTO equity_points (run_id, bar_index, equity) VALUES (?, ?, ?)`,
		Args:  []any{w.runID, barIndex, equity},
	})
}

// Close flushes any buffered points and stops the background flusher.
func (w *EquityWriter) Close() error {
	return w.bw.Close()
}

// SaveRun persists a completed run's report, trade ledger, and equity curve
// in one transaction.
func (s *Store) SaveRun(ctx context.Context, runID, machineID string, report engine.Report, trades []model.Trade, equity []EquityPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, machine_id, final_equity, total_return_pct, total_trades, winning_trades,
			win_rate, gross_profit, gross_loss, profit_factor, duration_ms, bars_per_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, machineID, report.FinalEquity, report.TotalReturnPct, report.TotalTrades, report.WinningTrades,
		report.WinRate, report.GrossProfit, report.GrossLoss, report.ProfitFactor, report.DurationMs, report.BarsPerSec)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, entry_time, exit_time, entry_price, exit_price, side, quantity, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare trade insert: %w", err)
	}
	defer tradeStmt.Close()
	for _, t := range trades {
		if _, err := tradeStmt.ExecContext(ctx, runID, t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice, int(t.Side), t.Quantity, t.PnL); err != nil {
			return fmt.Errorf("store: insert trade: %w", err)
		}
	}

	equityStmt, err := tx.PrepareContext(ctx, `INSERT INTO equity_points (run_id, bar_index, equity) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare equity insert: %w", err)
	}
	defer equityStmt.Close()
	for _, p := range equity {
		if _, err := equityStmt.ExecContext(ctx, runID, p.BarIndex, p.Equity); err != nil {
			return fmt.Errorf("store: insert equity point: %w", err)
		}
	}

	return tx.Commit()
}

// GetReport loads a previously saved run's summary report.
func (s *Store) GetReport(ctx context.Context, runID string) (engine.Report, error) {
	var r engine.Report
	row := s.db.QueryRowContext(ctx, `
		SELECT final_equity, total_return_pct, total_trades, winning_trades, win_rate,
			gross_profit, gross_loss, profit_factor, duration_ms, bars_per_sec
		FROM runs WHERE id = ?
	`, runID)
	err := row.Scan(&r.FinalEquity, &r.TotalReturnPct, &r.TotalTrades, &r.WinningTrades, &r.WinRate,
		&r.GrossProfit, &r.GrossLoss, &r.ProfitFactor, &r.DurationMs, &r.BarsPerSec)
	if err != nil {
		return r, fmt.Errorf("store: get report %s: %w", runID, err)
	}
	return r, nil
}

// GetTrades loads a previously saved run's closed-trade ledger.
func (s *Store) GetTrades(ctx context.Context, runID string) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, exit_time, entry_price, exit_price, side, quantity, pnl
		FROM trades WHERE run_id = ? ORDER BY exit_time ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: get trades %s: %w", runID, err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var side int
		if err := rows.Scan(&t.EntryTime, &t.ExitTime, &t.EntryPrice, &t.ExitPrice, &side, &t.Quantity, &t.PnL); err != nil {
			return nil, fmt.Errorf("store: scan trade: %w", err)
		}
		t.Side = model.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
