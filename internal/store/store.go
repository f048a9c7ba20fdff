// Package store provides optional pgx-backed persistence of backtest runs
// and per-request decision snapshots ("Persisted artefacts"), adapted
// from the prior database.DB connection-pool setup and
// database.Repository's SaveBacktestResult/GetBacktestResults pattern,
// narrowed from its many domain tables down to the two this module needs.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fusionquant/internal/backtest"
	"fusionquant/internal/config"
	"fusionquant/internal/decision"
)

// Store wraps a pgx connection pool. A nil *Store (returned when
// persistence is disabled in config) is valid to call every method on: each
// becomes a no-op, so callers never need a separate "is persistence on"
// branch.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database named by cfg.DSN and ensures the schema
// this package owns exists. It returns (nil, nil) when cfg.Enabled is
// false, signaling "persistence turned off", not an error.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: invalid dsn: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: unable to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool, if any.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS backtest_results (
	id BIGSERIAL PRIMARY KEY,
	symbol TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	total_trades INT NOT NULL,
	wins INT NOT NULL,
	losses INT NOT NULL,
	win_rate DOUBLE PRECISION NOT NULL,
	profit_factor DOUBLE PRECISION NOT NULL,
	max_drawdown DOUBLE PRECISION NOT NULL,
	sharpe_proxy DOUBLE PRECISION NOT NULL,
	final_balance DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	id BIGSERIAL PRIMARY KEY,
	backtest_result_id BIGINT NOT NULL REFERENCES backtest_results(id) ON DELETE CASCADE,
	side TEXT NOT NULL,
	open_ts BIGINT NOT NULL,
	close_ts BIGINT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL,
	exit_reason TEXT NOT NULL,
	pnl_quote DOUBLE PRECISION NOT NULL,
	pnl_pct DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_snapshots (
	id BIGSERIAL PRIMARY KEY,
	request_id UUID NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	regime TEXT NOT NULL,
	safety_gate_passed BOOLEAN NOT NULL,
	reasons TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := s.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveBacktestResult persists result and its trades in one transaction,
// returning the new backtest_results row id.
func (s *Store) SaveBacktestResult(ctx context.Context, symbol string, started, finished time.Time, result backtest.Result) (int64, error) {
	if s == nil {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO backtest_results (
			symbol, started_at, finished_at, total_trades, wins, losses,
			win_rate, profit_factor, max_drawdown, sharpe_proxy, final_balance
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, symbol, started, finished,
		result.Summary.TotalTrades, result.Summary.Wins, result.Summary.Losses,
		result.Summary.WinRate, result.Summary.ProfitFactor, result.Summary.MaxDrawdown,
		result.Summary.SharpeProxy, result.Summary.FinalBalance,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert backtest result: %w", err)
	}

	for _, trade := range result.Trades {
		_, err = tx.Exec(ctx, `
			INSERT INTO backtest_trades (
				backtest_result_id, side, open_ts, close_ts,
				entry_price, exit_price, exit_reason, pnl_quote, pnl_pct
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, id, trade.Side.String(), trade.OpenTS, trade.CloseTS,
			trade.Entry, trade.Exit, trade.ExitReason.String(), trade.PnLQuote, trade.PnLPct)
		if err != nil {
			return 0, fmt.Errorf("store: insert backtest trade: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// SaveDecisionSnapshot persists a single decision outcome for later audit.
func (s *Store) SaveDecisionSnapshot(ctx context.Context, requestID, symbol string, d decision.Decision) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decision_snapshots (
			request_id, symbol, action, confidence, total_score, regime,
			safety_gate_passed, reasons
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, requestID, symbol, d.Action.String(), d.Confidence, d.TotalScore, d.Regime.String(),
		d.SafetyGate.Passed, d.Reasons)
	if err != nil {
		return fmt.Errorf("store: insert decision snapshot: %w", err)
	}
	return nil
}

// BacktestSummary is the row shape returned by RecentBacktests.
type BacktestSummary struct {
	ID           int64
	Symbol       string
	StartedAt    time.Time
	FinishedAt   time.Time
	TotalTrades  int
	WinRate      float64
	ProfitFactor float64
	MaxDrawdown  float64
	FinalBalance float64
}

// RecentBacktests returns the most recent backtest runs for symbol, newest
// first, bounded to limit rows.
func (s *Store) RecentBacktests(ctx context.Context, symbol string, limit int) ([]BacktestSummary, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, started_at, finished_at, total_trades, win_rate,
		       profit_factor, max_drawdown, final_balance
		FROM backtest_results
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent backtests: %w", err)
	}
	defer rows.Close()

	var out []BacktestSummary
	for rows.Next() {
		var b BacktestSummary
		if err := rows.Scan(&b.ID, &b.Symbol, &b.StartedAt, &b.FinishedAt, &b.TotalTrades,
			&b.WinRate, &b.ProfitFactor, &b.MaxDrawdown, &b.FinalBalance); err != nil {
			return nil, fmt.Errorf("store: scan backtest summary: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate backtest summaries: %w", err)
	}
	return out, nil
}
