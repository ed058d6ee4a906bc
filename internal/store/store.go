package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"upbit-backtester/internal/model"
)

// RunStore archives finished backtest runs in Postgres so they can be
// listed later without re-running the simulation.
type RunStore struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Init creates the archive table if it does not exist.
func (s *RunStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS backtest_runs (
			id BIGSERIAL PRIMARY KEY,
			market TEXT NOT NULL,
			strategy TEXT NOT NULL,
			interval TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			total_return DOUBLE PRECISION NOT NULL,
			total_trades INT NOT NULL,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (s *RunStore) SaveRun(ctx context.Context, report *model.BacktestReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO backtest_runs (market, strategy, interval, start_date, end_date, total_return, total_trades, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.StrategyInfo.Market,
		report.StrategyInfo.Strategy,
		report.StrategyInfo.Interval,
		report.StrategyInfo.StartDate,
		report.StrategyInfo.EndDate,
		report.PerformanceMetrics.TotalReturn,
		report.PerformanceMetrics.TotalTrades,
		payload)
	return err
}

// RunSummary is one row of the archive listing.
type RunSummary struct {
	ID          int64     `json:"id"`
	Market      string    `json:"market"`
	Strategy    string    `json:"strategy"`
	Interval    string    `json:"interval"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	TotalReturn float64   `json:"total_return"`
	TotalTrades int       `json:"total_trades"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, market, strategy, interval, start_date, end_date, total_return, total_trades, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Market, &r.Strategy, &r.Interval, &r.StartDate, &r.EndDate, &r.TotalReturn, &r.TotalTrades, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
