package store

// schemaStatements create the result store tables; every statement is idempotent
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS sigtrade`,
	`CREATE TABLE IF NOT EXISTS sigtrade.runs (
		run_id         TEXT PRIMARY KEY,
		run_name       TEXT NOT NULL DEFAULT '',
		source         TEXT NOT NULL,
		input_digest   TEXT NOT NULL DEFAULT '',
		config_hash    TEXT NOT NULL DEFAULT '',
		models         TEXT[] NOT NULL,
		capital        DOUBLE PRECISION NOT NULL,
		trade_fraction DOUBLE PRECISION NOT NULL,
		trade_size     DOUBLE PRECISION NOT NULL,
		num_stocks     INTEGER NOT NULL,
		num_trades     INTEGER NOT NULL,
		total_profit   DOUBLE PRECISION NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		duration_ms    BIGINT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sigtrade.trades (
		run_id       TEXT NOT NULL REFERENCES sigtrade.runs(run_id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		strategy     TEXT NOT NULL,
		stock        TEXT NOT NULL,
		entry_date   DATE NOT NULL,
		exit_date    DATE NOT NULL,
		entry_type   TEXT NOT NULL,
		entry_price  DOUBLE PRECISION NOT NULL,
		exit_type    TEXT NOT NULL,
		exit_price   DOUBLE PRECISION NOT NULL,
		shares       BIGINT NOT NULL,
		profit       DOUBLE PRECISION NOT NULL,
		forced_close BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS sigtrade.strategy_summaries (
		run_id         TEXT NOT NULL REFERENCES sigtrade.runs(run_id) ON DELETE CASCADE,
		seq            INTEGER NOT NULL,
		strategy       TEXT NOT NULL,
		total_profit   DOUBLE PRECISION NOT NULL,
		num_trades     INTEGER NOT NULL,
		winning_trades INTEGER NOT NULL,
		losing_trades  INTEGER NOT NULL,
		PRIMARY KEY (run_id, strategy)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_strategy ON sigtrade.trades (run_id, strategy)`,
}
