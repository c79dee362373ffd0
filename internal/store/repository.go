package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sigtrade/internal/backtest"
	"github.com/wonny/sigtrade/internal/contracts"
)

// ErrRunNotFound is returned when a run id is not stored
var ErrRunNotFound = errors.New("store: run not found")

// tradeColumns is the COPY column order of sigtrade.trades
var tradeColumns = []string{
	"run_id", "seq", "strategy", "stock", "entry_date", "exit_date",
	"entry_type", "entry_price", "exit_type", "exit_price", "shares", "profit", "forced_close",
}

// RunMeta carries the run-file context that is not part of the result
type RunMeta struct {
	RunName    string
	ConfigHash string
}

// RunRecord is one row of sigtrade.runs
type RunRecord struct {
	RunID         string
	RunName       string
	Source        string
	InputDigest   string
	ConfigHash    string
	Models        []string
	Capital       float64
	TradeFraction float64
	TradeSize     float64
	NumStocks     int
	NumTrades     int
	TotalProfit   float64
	StartedAt     time.Time
	Duration      time.Duration
	CreatedAt     time.Time
}

// Repository persists backtest runs to PostgreSQL
// ⭐ SSOT: 결과 저장은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the sigtrade schema and tables if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores the run, its trades and its summaries in one transaction.
// Saving a run id that already exists is a no-op.
func (r *Repository) SaveRun(ctx context.Context, res *backtest.Result, meta RunMeta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO sigtrade.runs (
			run_id, run_name, source, input_digest, config_hash, models,
			capital, trade_fraction, trade_size, num_stocks, num_trades, total_profit,
			started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id) DO NOTHING`,
		res.RunID, meta.RunName, res.Source, res.InputDigest, meta.ConfigHash, res.Models,
		res.Budget.Capital, res.Budget.Fraction, res.Budget.TradeSize,
		res.NumStocks, len(res.Trades), res.TotalProfit(),
		res.StartedAt, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// 캐시에서 재사용된 결과: 이미 저장됨
		return nil
	}

	// 거래 목록은 COPY로 일괄 적재
	if len(res.Trades) > 0 {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sigtrade", "trades"},
			tradeColumns,
			pgx.CopyFromRows(tradeRows(res.RunID, res.Trades)),
		)
		if err != nil {
			return fmt.Errorf("failed to copy trades: %w", err)
		}
		if int(n) != len(res.Trades) {
			return fmt.Errorf("copied %d of %d trades", n, len(res.Trades))
		}
	}

	if err := saveSummaries(ctx, tx, res.RunID, res.Summaries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saveSummaries(ctx context.Context, tx pgx.Tx, runID string, summaries []contracts.StrategySummary) error {
	if len(summaries) == 0 {
		return nil
	}

	query := `
		INSERT INTO sigtrade.strategy_summaries
			(run_id, seq, strategy, total_profit, num_trades, winning_trades, losing_trades)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for i, s := range summaries {
		batch.Queue(query, runID, i, s.Strategy, s.TotalProfit, s.NumTrades, s.WinningTrades, s.LosingTrades)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range summaries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}
	return br.Close()
}

// tradeRows converts trades to COPY rows in tradeColumns order
func tradeRows(runID string, trades []contracts.Trade) [][]interface{} {
	rows := make([][]interface{}, len(trades))
	for i := range trades {
		t := &trades[i]
		rows[i] = []interface{}{
			runID, i, t.Strategy, t.Stock, t.EntryDate, t.ExitDate,
			string(t.EntryType), t.EntryPrice, string(t.ExitType), t.ExitPrice,
			t.Shares, t.Profit, t.ForcedClose,
		}
	}
	return rows
}

// GetRun loads one run record
func (r *Repository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT run_id, run_name, source, input_digest, config_hash, models,
			   capital, trade_fraction, trade_size, num_stocks, num_trades, total_profit,
			   started_at, duration_ms, created_at
		FROM sigtrade.runs
		WHERE run_id = $1`

	var rec RunRecord
	var durationMs int64
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&rec.RunID, &rec.RunName, &rec.Source, &rec.InputDigest, &rec.ConfigHash, &rec.Models,
		&rec.Capital, &rec.TradeFraction, &rec.TradeSize, &rec.NumStocks, &rec.NumTrades, &rec.TotalProfit,
		&rec.StartedAt, &durationMs, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

// GetSummaries loads the summary rows of a run in their original order
func (r *Repository) GetSummaries(ctx context.Context, runID string) ([]contracts.StrategySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT strategy, total_profit, num_trades, winning_trades, losing_trades
		FROM sigtrade.strategy_summaries
		WHERE run_id = $1
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []contracts.StrategySummary
	for rows.Next() {
		var s contracts.StrategySummary
		if err := rows.Scan(&s.Strategy, &s.TotalProfit, &s.NumTrades, &s.WinningTrades, &s.LosingTrades); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return summaries, nil
}

// CountTrades returns the number of stored trades of a run
func (r *Repository) CountTrades(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sigtrade.trades WHERE run_id = $1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// DeleteRun removes a run; trades and summaries cascade
func (r *Repository) DeleteRun(ctx context.Context, runID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sigtrade.runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}
