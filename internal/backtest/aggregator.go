package backtest

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/sigtrade/internal/contracts"
)

// Aggregate reduces a trade list to one summary per variant, in variant order.
// Variants without trades still get a row. Profits are summed in decimal so
// the total does not depend on trade order.
// ⭐ SSOT: 전략별 집계는 여기서만
func Aggregate(variants []contracts.Variant, trades []contracts.Trade) []contracts.StrategySummary {
	summaries := make([]contracts.StrategySummary, len(variants))
	totals := make([]decimal.Decimal, len(variants))
	index := make(map[string]int, len(variants))

	for i, v := range variants {
		summaries[i].Strategy = v.ID()
		index[v.ID()] = i
	}

	for k := range trades {
		t := &trades[k]
		i, ok := index[t.Strategy]
		if !ok {
			continue
		}
		totals[i] = totals[i].Add(decimal.NewFromFloat(t.Profit))
		summaries[i].NumTrades++
		if t.IsWin() {
			summaries[i].WinningTrades++
		} else if t.IsLoss() {
			summaries[i].LosingTrades++
		}
	}

	for i := range summaries {
		summaries[i].TotalProfit = totals[i].InexactFloat64()
	}

	return summaries
}

// MergeSummaries sums partial summaries by strategy, keeping first-seen order
func MergeSummaries(parts ...[]contracts.StrategySummary) []contracts.StrategySummary {
	var merged []contracts.StrategySummary
	var totals []decimal.Decimal
	index := make(map[string]int)

	for _, part := range parts {
		for _, s := range part {
			i, ok := index[s.Strategy]
			if !ok {
				i = len(merged)
				index[s.Strategy] = i
				merged = append(merged, contracts.StrategySummary{Strategy: s.Strategy})
				totals = append(totals, decimal.Zero)
			}
			totals[i] = totals[i].Add(decimal.NewFromFloat(s.TotalProfit))
			merged[i].NumTrades += s.NumTrades
			merged[i].WinningTrades += s.WinningTrades
			merged[i].LosingTrades += s.LosingTrades
		}
	}

	for i := range merged {
		merged[i].TotalProfit = totals[i].InexactFloat64()
	}
	return merged
}

// RealizedCurve returns, per strategy, the cumulative realized profit at
// every distinct exit date. Strategies appear in the order of variants.
func RealizedCurve(variants []contracts.Variant, trades []contracts.Trade) []contracts.CurvePoint {
	byStrategy := make(map[string][]*contracts.Trade, len(variants))
	for k := range trades {
		t := &trades[k]
		byStrategy[t.Strategy] = append(byStrategy[t.Strategy], t)
	}

	var curve []contracts.CurvePoint
	for _, v := range variants {
		list := byStrategy[v.ID()]
		if len(list) == 0 {
			continue
		}

		sort.SliceStable(list, func(i, j int) bool {
			return list[i].ExitDate.Before(list[j].ExitDate)
		})

		realized := decimal.Zero
		for i, t := range list {
			realized = realized.Add(decimal.NewFromFloat(t.Profit))
			if i+1 < len(list) && list[i+1].ExitDate.Equal(t.ExitDate) {
				continue
			}
			curve = append(curve, contracts.CurvePoint{
				Strategy:       v.ID(),
				Date:           t.ExitDate,
				RealizedProfit: realized.InexactFloat64(),
			})
		}
	}

	return curve
}
