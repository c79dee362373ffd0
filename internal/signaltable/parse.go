package signaltable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/sigtrade/internal/contracts"
)

var dateLayouts = []string{
	contracts.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// missingTokens are the cells read as an absent price
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"na":   {},
	"n/a":  {},
	"none": {},
}

// columns maps header names to record positions (-1 = absent)
type columns struct {
	stock, date, open, close, high, low int
	models                              []int
}

// resolveColumns validates the header against the required schema
func resolveColumns(header []string, models []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	cols := &columns{
		stock: lookup(ColStock),
		date:  lookup(ColDate),
		open:  lookup(ColOpen),
		close: lookup(ColClose),
		high:  lookup(ColHigh),
		low:   lookup(ColLow),
	}

	for name, pos := range map[string]int{ColStock: cols.stock, ColDate: cols.date, ColOpen: cols.open, ColClose: cols.close} {
		if pos < 0 {
			return nil, fmt.Errorf("%w: required column %q missing from input", contracts.ErrConfiguration, name)
		}
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no model columns requested", contracts.ErrConfiguration)
	}

	seen := make(map[string]bool, len(models))
	for _, model := range models {
		if seen[model] {
			return nil, fmt.Errorf("%w: model column %q requested twice", contracts.ErrConfiguration, model)
		}
		seen[model] = true

		pos := lookup(model)
		if pos < 0 {
			return nil, fmt.Errorf("%w: model column %q missing from input", contracts.ErrConfiguration, model)
		}
		cols.models = append(cols.models, pos)
	}

	return cols, nil
}

// parseRecord converts one CSV record into its stock symbol and row
func (c *columns) parseRecord(record []string) (string, contracts.SignalRow, error) {
	var row contracts.SignalRow

	stock := strings.TrimSpace(cell(record, c.stock))
	if stock == "" {
		return "", row, fmt.Errorf("empty stock symbol")
	}

	date, err := ParseDate(cell(record, c.date))
	if err != nil {
		return "", row, err
	}
	row.Date = date

	if row.Open, err = ParsePrice(cell(record, c.open)); err != nil {
		return "", row, fmt.Errorf("column open: %w", err)
	}
	if row.Close, err = ParsePrice(cell(record, c.close)); err != nil {
		return "", row, fmt.Errorf("column close: %w", err)
	}
	// high/low are informational; a malformed cell is read as absent
	row.High, _ = ParsePrice(cell(record, c.high))
	row.Low, _ = ParsePrice(cell(record, c.low))

	row.Signals = make([]contracts.Signal, len(c.models))
	for i, pos := range c.models {
		row.Signals[i] = contracts.ParseSignal(cell(record, pos))
	}

	return stock, row, nil
}

// cell returns record[pos], or "" when the column is absent or the row is short
func cell(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return record[pos]
}

// ParseDate accepts ISO 8601 dates with an optional time part
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParsePrice returns NaN for a missing cell.
// Prices must be finite; zero or negative entries are left to sizing.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if _, ok := missingTokens[strings.ToLower(raw)]; ok {
		return math.NaN(), nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("invalid price %q", raw)
	}
	if math.IsNaN(v) {
		return v, nil
	}
	if math.IsInf(v, 0) {
		return math.NaN(), fmt.Errorf("price %q must be finite", raw)
	}
	return v, nil
}
