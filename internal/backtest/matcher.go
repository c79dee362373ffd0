package backtest

import (
	"fmt"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/internal/sizing"
)

// MatchStats counts what happened to buy candidates during a scan
type MatchStats struct {
	Candidates   int `json:"candidates"`
	MissingEntry int `json:"missing_entry"`
	Unaffordable int `json:"unaffordable"`
	ForcedCloses int `json:"forced_closes"`
}

// Add accumulates other into s
func (s *MatchStats) Add(other MatchStats) {
	s.Candidates += other.Candidates
	s.MissingEntry += other.MissingEntry
	s.Unaffordable += other.Unaffordable
	s.ForcedCloses += other.ForcedCloses
}

// Matcher turns one stock's signal stream into closed trades
// ⭐ SSOT: 진입/청산 매칭 규칙은 여기서만
type Matcher struct {
	tradeSize float64
}

// NewMatcher creates a Matcher committing tradeSize per entry
func NewMatcher(tradeSize float64) *Matcher {
	return &Matcher{tradeSize: tradeSize}
}

// Match scans series once for variant v, reading signals from the given
// model slot. Every buy row is its own candidate; overlapping trades are kept.
// The exit is the first later sell row if its exit price is present,
// otherwise the last row of the series (forced close).
func (m *Matcher) Match(series *contracts.StockSeries, slot int, v contracts.Variant) ([]contracts.Trade, MatchStats, error) {
	var stats MatchStats
	n := series.Len()
	if n == 0 {
		return nil, stats, nil
	}

	nextSell := nextSellIndex(series, slot)
	strategy := v.ID()

	var trades []contracts.Trade
	for i := 0; i < n; i++ {
		entryRow := &series.Rows[i]
		if entryRow.Signals[slot] != contracts.SignalBuy {
			continue
		}
		stats.Candidates++

		entryPrice := entryRow.Price(v.EntryType)
		if contracts.Missing(entryPrice) {
			stats.MissingEntry++
			continue
		}

		shares := sizing.Shares(m.tradeSize, entryPrice)
		if shares < 1 {
			stats.Unaffordable++
			continue
		}

		trade := contracts.Trade{
			Strategy:   strategy,
			Stock:      series.Stock,
			EntryDate:  entryRow.Date,
			EntryType:  v.EntryType,
			EntryPrice: entryPrice,
			ExitType:   v.ExitType,
			Shares:     shares,
		}

		// first sell only; a sell without an exit price does not look further
		if j := nextSell[i]; j >= 0 && !contracts.Missing(series.Rows[j].Price(v.ExitType)) {
			trade.ExitDate = series.Rows[j].Date
			trade.ExitPrice = series.Rows[j].Price(v.ExitType)
		} else {
			exitPrice, err := forcedClosePrice(series, v.ExitType)
			if err != nil {
				return nil, stats, err
			}
			trade.ExitDate = series.Last().Date
			trade.ExitPrice = exitPrice
			trade.ForcedClose = true
			stats.ForcedCloses++
		}

		trade.Profit = float64(trade.Shares) * (trade.ExitPrice - trade.EntryPrice)
		trades = append(trades, trade)
	}

	return trades, stats, nil
}

// nextSellIndex returns, per row, the position of the first sell strictly after it (-1 if none)
func nextSellIndex(series *contracts.StockSeries, slot int) []int {
	next := make([]int, series.Len())
	pos := -1
	for i := series.Len() - 1; i >= 0; i-- {
		next[i] = pos
		if series.Rows[i].Signals[slot] == contracts.SignalSell {
			pos = i
		}
	}
	return next
}

// forcedClosePrice values a position at the last row: exit field, then close
func forcedClosePrice(series *contracts.StockSeries, exitType contracts.PriceField) (float64, error) {
	last := series.Last()
	if price := last.Price(exitType); !contracts.Missing(price) {
		return price, nil
	}
	if contracts.Missing(last.Close) {
		return 0, fmt.Errorf("%w: stock %s needs a forced close on %s but close is missing",
			contracts.ErrDataValidation, series.Stock, last.Date.Format(contracts.DateLayout))
	}
	return last.Close, nil
}
