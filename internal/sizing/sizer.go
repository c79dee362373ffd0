package sizing

import (
	"fmt"
	"math"

	"github.com/wonny/sigtrade/internal/contracts"
)

// DefaultTradeFraction is the share of a stock budget committed per trade
const DefaultTradeFraction = 0.10

// Budget is the global, per-run sizing result
type Budget struct {
	Capital     float64 `json:"capital"`
	Fraction    float64 `json:"fraction"`
	NumStocks   int     `json:"num_stocks"`
	StockBudget float64 `json:"stock_budget"`
	TradeSize   float64 `json:"trade_size"`
}

// Sizer splits capital equally across stocks and commits a fixed fraction per trade
// ⭐ SSOT: 종목당 예산 / 거래 규모 계산은 여기서만
type Sizer struct {
	Capital  float64
	Fraction float64
}

// NewSizer creates a Sizer
func NewSizer(capital, fraction float64) *Sizer {
	return &Sizer{Capital: capital, Fraction: fraction}
}

// Compute returns the budget for numStocks distinct symbols.
// Zero stocks is a configuration error, never a division by zero.
func (s *Sizer) Compute(numStocks int) (Budget, error) {
	if numStocks <= 0 {
		return Budget{}, fmt.Errorf("%w: no stocks to trade", contracts.ErrConfiguration)
	}
	if s.Capital <= 0 || math.IsInf(s.Capital, 0) || math.IsNaN(s.Capital) {
		return Budget{}, fmt.Errorf("%w: capital must be positive, got %v", contracts.ErrConfiguration, s.Capital)
	}
	if !(s.Fraction > 0 && s.Fraction <= 1) {
		return Budget{}, fmt.Errorf("%w: trade fraction must be in (0, 1], got %v", contracts.ErrConfiguration, s.Fraction)
	}

	stockBudget := s.Capital / float64(numStocks)
	return Budget{
		Capital:     s.Capital,
		Fraction:    s.Fraction,
		NumStocks:   numStocks,
		StockBudget: stockBudget,
		TradeSize:   s.Fraction * stockBudget,
	}, nil
}

// Shares returns floor(tradeSize / price); zero means the entry is unaffordable.
// Share counts that do not fit in int64 are treated as unaffordable too.
func Shares(tradeSize, price float64) int64 {
	if price <= 0 || contracts.Missing(price) {
		return 0
	}
	shares := math.Floor(tradeSize / price)
	// float64(MaxInt64) is 2^63, outside int64
	if !(shares < float64(math.MaxInt64)) {
		return 0
	}
	return int64(shares)
}
