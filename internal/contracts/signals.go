package contracts

import "strings"

// Signal is the normalized per-day model output
// ⭐ SSOT: 원본 문자열 → Signal 변환은 ParseSignal에서만
type Signal uint8

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

// ParseSignal maps a raw table cell to a Signal.
// Comparison is case-insensitive after trimming; anything other than
// buy or sell (including empty cells) is hold.
func ParseSignal(raw string) Signal {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return SignalBuy
	case "sell":
		return SignalSell
	default:
		return SignalHold
	}
}

// String returns the lowercase label
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "hold"
	}
}

// SignalCounts tallies normalized signals for one model column
type SignalCounts struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
	Hold int `json:"hold"`
}

// Add increments the bucket for s
func (c *SignalCounts) Add(s Signal) {
	switch s {
	case SignalBuy:
		c.Buy++
	case SignalSell:
		c.Sell++
	default:
		c.Hold++
	}
}

// Total returns the number of counted cells
func (c SignalCounts) Total() int {
	return c.Buy + c.Sell + c.Hold
}
