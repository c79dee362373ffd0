package contracts

import (
	"fmt"
	"time"
)

// PriceField selects which price values an entry or exit
type PriceField string

const (
	PriceOpen  PriceField = "open"
	PriceClose PriceField = "close"
)

// PriceFields is the closed set of entry/exit choices, in iteration order
var PriceFields = []PriceField{PriceOpen, PriceClose}

// Variant identifies one strategy: (model column, entry field, exit field)
// ⭐ SSOT: 전략 식별자는 Variant.ID()만 사용
type Variant struct {
	Model     string     `json:"model"`
	EntryType PriceField `json:"entry_type"`
	ExitType  PriceField `json:"exit_type"`
}

// ID returns the strategy name used in every output table
func (v Variant) ID() string {
	return fmt.Sprintf("%s_entry_%s_exit_%s", v.Model, v.EntryType, v.ExitType)
}

// Trade is one closed long position. Immutable once recorded.
type Trade struct {
	Strategy   string     `json:"strategy"`
	Stock      string     `json:"stock"`
	EntryDate  time.Time  `json:"entry_date"`
	ExitDate   time.Time  `json:"exit_date"`
	EntryType  PriceField `json:"entry_type"`
	EntryPrice float64    `json:"entry_price"`
	ExitType   PriceField `json:"exit_type"`
	ExitPrice  float64    `json:"exit_price"`
	Shares     int64      `json:"shares"`
	Profit     float64    `json:"profit"`

	// ForcedClose is set when the exit came from the last-row fallback
	ForcedClose bool `json:"forced_close"`
}

// IsWin reports a strictly positive profit
func (t *Trade) IsWin() bool {
	return t.Profit > 0
}

// IsLoss reports a strictly negative profit
func (t *Trade) IsLoss() bool {
	return t.Profit < 0
}

// StrategySummary is the per-variant reduction of the trade list
type StrategySummary struct {
	Strategy      string  `json:"strategy"`
	TotalProfit   float64 `json:"total_profit"`
	NumTrades     int     `json:"num_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
}

// WinRate returns winning / total, or 0 without trades
func (s *StrategySummary) WinRate() float64 {
	if s.NumTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.NumTrades)
}

// CurvePoint is the cumulative realized profit of one strategy at an exit date
type CurvePoint struct {
	Strategy       string    `json:"strategy"`
	Date           time.Time `json:"date"`
	RealizedProfit float64   `json:"realized_profit"`
}
