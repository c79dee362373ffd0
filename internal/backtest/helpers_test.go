package backtest

import (
	"math"
	"time"

	"github.com/wonny/sigtrade/internal/contracts"
)

var nan = math.NaN()

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// bar is a compact row literal for one model column
type bar struct {
	signal string
	open   float64
	close  float64
}

func buildSeries(stock string, bars ...bar) *contracts.StockSeries {
	series := &contracts.StockSeries{Stock: stock}
	for i, b := range bars {
		series.Rows = append(series.Rows, contracts.SignalRow{
			Date:    day0.AddDate(0, 0, i),
			Open:    b.open,
			High:    nan,
			Low:     nan,
			Close:   b.close,
			Signals: []contracts.Signal{contracts.ParseSignal(b.signal)},
		})
	}
	return series
}

func variant(entry, exit contracts.PriceField) contracts.Variant {
	return contracts.Variant{Model: "xg3", EntryType: entry, ExitType: exit}
}

func tableOf(series ...*contracts.StockSeries) *contracts.Table {
	return &contracts.Table{Source: "test", Models: []string{"xg3"}, Series: series}
}
