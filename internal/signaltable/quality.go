package signaltable

import (
	"github.com/wonny/sigtrade/internal/contracts"
)

// Inspect builds a data quality snapshot of a loaded table
// ⭐ SSOT: data-check 커버리지 계산은 여기서만
func Inspect(table *contracts.Table) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Source:      table.Source,
		TotalStocks: table.NumStocks(),
		TotalRows:   table.NumRows(),
		Coverage:    make(map[string]float64),
		Signals:     make(map[string]contracts.SignalCounts, len(table.Models)),
		RowsByStock: make(map[string]int, table.NumStocks()),
	}

	var withOpen, withClose, withHigh, withLow int
	counts := make([]contracts.SignalCounts, len(table.Models))

	for _, series := range table.Series {
		snapshot.RowsByStock[series.Stock] = series.Len()
		if series.Len() == 0 {
			continue
		}

		first, last := series.Rows[0].Date, series.Last().Date
		if snapshot.FirstDate.IsZero() || first.Before(snapshot.FirstDate) {
			snapshot.FirstDate = first
		}
		if last.After(snapshot.LastDate) {
			snapshot.LastDate = last
		}

		for i := range series.Rows {
			row := &series.Rows[i]
			if !contracts.Missing(row.Open) {
				withOpen++
			}
			if !contracts.Missing(row.Close) {
				withClose++
			}
			if !contracts.Missing(row.High) {
				withHigh++
			}
			if !contracts.Missing(row.Low) {
				withLow++
			}
			for m, s := range row.Signals {
				counts[m].Add(s)
			}
		}
	}

	if snapshot.TotalRows > 0 {
		total := float64(snapshot.TotalRows)
		snapshot.Coverage[ColOpen] = float64(withOpen) / total
		snapshot.Coverage[ColClose] = float64(withClose) / total
		snapshot.Coverage[ColHigh] = float64(withHigh) / total
		snapshot.Coverage[ColLow] = float64(withLow) / total
	}

	for m, model := range table.Models {
		snapshot.Signals[model] = counts[m]
	}

	return snapshot
}
