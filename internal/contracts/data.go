package contracts

import (
	"math"
	"time"
)

// SignalRow is one (stock, date) observation of the signal table
// Missing prices are stored as NaN.
type SignalRow struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`

	// Signals is indexed like Table.Models
	Signals []Signal `json:"signals"`
}

// Price returns the value of the requested price field
func (r *SignalRow) Price(field PriceField) float64 {
	if field == PriceOpen {
		return r.Open
	}
	return r.Close
}

// StockSeries holds the rows of one stock sorted ascending by date.
// Row position order equals chronological order and dates are unique.
// ⭐ SSOT: 종목별 시계열은 signaltable 로더에서만 생성
type StockSeries struct {
	Stock string      `json:"stock"`
	Rows  []SignalRow `json:"rows"`
}

// Len returns the number of rows
func (s *StockSeries) Len() int {
	return len(s.Rows)
}

// Last returns the final row; the series must not be empty
func (s *StockSeries) Last() *SignalRow {
	return &s.Rows[len(s.Rows)-1]
}

// Table is the validated input of a run
// Series keep the first-seen stock order of the source file.
type Table struct {
	Source string         `json:"source"`
	Models []string       `json:"models"`
	Series []*StockSeries `json:"series"`

	// Digest is the sha256 of the raw input bytes, empty for in-memory tables
	Digest string `json:"digest,omitempty"`
}

// NumStocks returns the number of distinct stock symbols
func (t *Table) NumStocks() int {
	return len(t.Series)
}

// NumRows returns the total row count across all series
func (t *Table) NumRows() int {
	n := 0
	for _, s := range t.Series {
		n += s.Len()
	}
	return n
}

// ModelIndex returns the signal slot of a model column, or -1
func (t *Table) ModelIndex(model string) int {
	for i, m := range t.Models {
		if m == model {
			return i
		}
	}
	return -1
}

// DateLayout is the calendar date format of every input and output table
const DateLayout = "2006-01-02"

// Missing reports whether a price cell is absent
func Missing(price float64) bool {
	return math.IsNaN(price)
}

// DataQualitySnapshot summarizes what the loader saw
// ⭐ SSOT: data-check 출력은 이 구조체 기준
type DataQualitySnapshot struct {
	Source      string                  `json:"source"`
	TotalRows   int                     `json:"total_rows"`
	TotalStocks int                     `json:"total_stocks"`
	FirstDate   time.Time               `json:"first_date"`
	LastDate    time.Time               `json:"last_date"`
	Coverage    map[string]float64      `json:"coverage"` // open, close, high, low
	Signals     map[string]SignalCounts `json:"signals"`  // key: model column
	RowsByStock map[string]int          `json:"rows_by_stock"`
}

// CoverageRate returns the average coverage across the price fields
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
