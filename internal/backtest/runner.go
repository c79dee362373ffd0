package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/internal/sizing"
	"github.com/wonny/sigtrade/pkg/logger"
)

// Runner evaluates every strategy variant on every stock
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Runner struct {
	logger  *logger.Logger
	workers int
}

// Config holds backtest configuration
type Config struct {
	Models        []string
	Capital       float64
	TradeFraction float64
}

// Result holds backtest results
type Result struct {
	RunID       string        `json:"run_id"`
	Source      string        `json:"source"`
	InputDigest string        `json:"input_digest,omitempty"`
	Models      []string      `json:"models"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`

	Budget    sizing.Budget               `json:"budget"`
	NumStocks int                         `json:"num_stocks"`
	Variants  []contracts.Variant         `json:"variants"`
	Stats     MatchStats                  `json:"stats"`
	Trades    []contracts.Trade           `json:"trades"`
	Summaries []contracts.StrategySummary `json:"summaries"`

	// Cached is set when the result was served from the result cache
	Cached bool `json:"-"`
}

// TotalProfit sums the summary rows
func (r *Result) TotalProfit() float64 {
	total := decimal.Zero
	for _, s := range r.Summaries {
		total = total.Add(decimal.NewFromFloat(s.TotalProfit))
	}
	return total.InexactFloat64()
}

// job is one (variant, stock) matcher invocation
type job struct {
	variant int
	stock   int
}

// batch is the immutable output of one job
type batch struct {
	trades []contracts.Trade
	stats  MatchStats
}

// NewRunner creates a new Runner; workers < 1 means sequential
func NewRunner(log *logger.Logger, workers int) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{logger: log, workers: workers}
}

// Run executes the full variant × stock grid.
// Either the whole grid completes or an error is returned with no result.
func (r *Runner) Run(ctx context.Context, table *contracts.Table, cfg Config) (*Result, error) {
	startedAt := time.Now()

	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("%w: no model columns to evaluate", contracts.ErrConfiguration)
	}

	slots := make(map[string]int, len(cfg.Models))
	for _, model := range cfg.Models {
		if _, dup := slots[model]; dup {
			return nil, fmt.Errorf("%w: model column %q listed twice", contracts.ErrConfiguration, model)
		}
		slot := table.ModelIndex(model)
		if slot < 0 {
			return nil, fmt.Errorf("%w: model column %q not in table", contracts.ErrConfiguration, model)
		}
		slots[model] = slot
	}

	budget, err := sizing.NewSizer(cfg.Capital, cfg.TradeFraction).Compute(table.NumStocks())
	if err != nil {
		return nil, err
	}

	variants := EnumerateVariants(cfg.Models)
	result := &Result{
		RunID:       uuid.NewString(),
		Source:      table.Source,
		InputDigest: table.Digest,
		Models:      append([]string(nil), cfg.Models...),
		StartedAt:   startedAt,
		Budget:      budget,
		NumStocks:   table.NumStocks(),
		Variants:    variants,
	}

	log := r.logger.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"stocks":     budget.NumStocks,
		"variants":   len(variants),
		"trade_size": budget.TradeSize,
		"workers":    r.workers,
	}).Info("Starting backtest")

	matcher := NewMatcher(budget.TradeSize)
	numStocks := table.NumStocks()
	batches := make([]batch, len(variants)*numStocks)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for vi := range variants {
		for si := range table.Series {
			j := job{variant: vi, stock: si}
			group.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				v := variants[j.variant]
				trades, stats, err := matcher.Match(table.Series[j.stock], slots[v.Model], v)
				if err != nil {
					return fmt.Errorf("%s on %s: %w", v.ID(), table.Series[j.stock].Stock, err)
				}
				batches[j.variant*numStocks+j.stock] = batch{trades: trades, stats: stats}
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		log.WithError(err).Error("Backtest aborted")
		return nil, err
	}

	// model → entry → exit → stock order, independent of scheduling
	for vi, v := range variants {
		var variantStats MatchStats
		variantTrades := 0
		for si := 0; si < numStocks; si++ {
			b := batches[vi*numStocks+si]
			result.Trades = append(result.Trades, b.trades...)
			variantStats.Add(b.stats)
			variantTrades += len(b.trades)
		}
		result.Stats.Add(variantStats)

		log.WithFields(map[string]interface{}{
			"strategy":      v.ID(),
			"trades":        variantTrades,
			"candidates":    variantStats.Candidates,
			"missing_entry": variantStats.MissingEntry,
			"unaffordable":  variantStats.Unaffordable,
			"forced_closes": variantStats.ForcedCloses,
		}).Debug("Variant evaluated")
	}

	result.Summaries = Aggregate(variants, result.Trades)
	result.Duration = time.Since(startedAt)

	log.WithFields(map[string]interface{}{
		"duration":     result.Duration.Seconds(),
		"trades":       len(result.Trades),
		"total_profit": fmt.Sprintf("%.2f", result.TotalProfit()),
	}).Info("Backtest completed")

	return result, nil
}
