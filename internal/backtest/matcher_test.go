package backtest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sigtrade/internal/contracts"
)

const (
	onOpen  = contracts.PriceOpen
	onClose = contracts.PriceClose
)

func TestMatcher_SellSignalExit(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 101},
		bar{"hold", 101, 102},
		bar{"hold", 102, 103},
		bar{"", 103, 104},
		bar{"hold", 104, 105},
		bar{"sell", 110, 111},
		bar{"hold", 120, 121},
	)

	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, "xg3_entry_open_exit_open", tr.Strategy)
	assert.Equal(t, "AAA", tr.Stock)
	assert.Equal(t, int64(10), tr.Shares)
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, 110.0, tr.ExitPrice)
	assert.Equal(t, 100.0, tr.Profit)
	assert.Equal(t, day0, tr.EntryDate)
	assert.Equal(t, day0.AddDate(0, 0, 5), tr.ExitDate)
	assert.False(t, tr.ForcedClose)
	assert.Equal(t, MatchStats{Candidates: 1}, stats)
}

func TestMatcher_ForcedCloseFallsBackToClose(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 99},
		bar{"hold", 98, 97},
		bar{"hold", nan, 95},
	)

	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.True(t, tr.ForcedClose)
	assert.Equal(t, 95.0, tr.ExitPrice)
	assert.Equal(t, day0.AddDate(0, 0, 2), tr.ExitDate)
	assert.Equal(t, 10.0*(95-100), tr.Profit)
	assert.Less(t, tr.Profit, 0.0)
	assert.Equal(t, 1, stats.ForcedCloses)
}

func TestMatcher_MissingEntryPriceDiscardsCandidate(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", nan, 100},
		bar{"hold", 101, 101},
		bar{"sell", 105, 105},
	)

	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onClose))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, MatchStats{Candidates: 1, MissingEntry: 1}, stats)

	// the close-entry variant of the same row is unaffected
	trades, _, err = NewMatcher(1000).Match(series, 0, variant(onClose, onClose))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 50.0, trades[0].Profit)
}

func TestMatcher_FirstSellWithoutPriceForcesClose(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"hold", 101, 101},
		bar{"hold", 102, 102},
		bar{"sell", nan, 105},
		bar{"hold", 96, 97},
		bar{"hold", 90, 91},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].ForcedClose)
	assert.Equal(t, day0.AddDate(0, 0, 5), trades[0].ExitDate)
	assert.Equal(t, 90.0, trades[0].ExitPrice)
	assert.Equal(t, -100.0, trades[0].Profit)

	// with exit on close the row-3 sell is valid
	trades, _, err = NewMatcher(1000).Match(series, 0, variant(onOpen, onClose))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.False(t, trades[0].ForcedClose)
	assert.Equal(t, day0.AddDate(0, 0, 3), trades[0].ExitDate)
	assert.Equal(t, 105.0, trades[0].ExitPrice)
}

func TestMatcher_FirstSellWithoutPriceIgnoresLaterSell(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"sell", nan, 80},
		bar{"sell", 150, 150},
		bar{"hold", 120, 120},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, day0.AddDate(0, 0, 3), trades[0].ExitDate)
	assert.Equal(t, 120.0, trades[0].ExitPrice)
}

func TestMatcher_UnaffordableEntry(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 1500, 1500},
		bar{"sell", 1600, 1600},
	)

	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 1, stats.Unaffordable)
}

func TestMatcher_NonPositivePrices(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"hold", 0, 105},
		bar{"buy", -2, 0},
		bar{"sell", 110, 110},
	)

	// zero/negative entries are unaffordable; an inert zero row changes nothing
	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, day0, trades[0].EntryDate)
	assert.Equal(t, day0.AddDate(0, 0, 3), trades[0].ExitDate)
	assert.Equal(t, int64(10), trades[0].Shares)
	assert.Equal(t, 100.0, trades[0].Profit)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 1, stats.Unaffordable)

	trades, stats, err = NewMatcher(1000).Match(series, 0, variant(onClose, onClose))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 1, stats.Unaffordable)
}

func TestMatcher_BuyOnLastRow(t *testing.T) {
	series := buildSeries("AAA",
		bar{"hold", 90, 90},
		bar{"buy", 100, 102},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, trades[0].EntryDate, trades[0].ExitDate)
	assert.Equal(t, 0.0, trades[0].Profit)

	trades, _, err = NewMatcher(1000).Match(series, 0, variant(onOpen, onClose))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 20.0, trades[0].Profit)
}

func TestMatcher_ConsecutiveBuysOverlap(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"buy", 125, 125},
		bar{"hold", 130, 130},
		bar{"buy", 200, 200},
		bar{"sell", 250, 250},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 3)

	exit := day0.AddDate(0, 0, 4)
	for _, tr := range trades {
		assert.Equal(t, exit, tr.ExitDate)
		assert.Equal(t, 250.0, tr.ExitPrice)
	}
	assert.Equal(t, []int64{10, 8, 5}, []int64{trades[0].Shares, trades[1].Shares, trades[2].Shares})
}

func TestMatcher_FirstMatchNotBestMatch(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"sell", 90, 90},
		bar{"sell", 200, 200},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onClose, onClose))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 90.0, trades[0].ExitPrice)
}

func TestMatcher_SellBeforeBuyIsInert(t *testing.T) {
	series := buildSeries("AAA",
		bar{"sell", 100, 100},
		bar{"buy", 100, 100},
		bar{"hold", 110, 110},
	)

	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].ForcedClose)
	assert.Equal(t, 100.0, trades[0].Profit)
}

func TestMatcher_NoBuysNoTrades(t *testing.T) {
	series := buildSeries("AAA",
		bar{"hold", 100, 100},
		bar{"sell", 100, 100},
	)

	trades, stats, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Zero(t, stats.Candidates)

	trades, _, err = NewMatcher(1000).Match(&contracts.StockSeries{Stock: "EMPTY"}, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestMatcher_MissingTerminalClose(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"hold", nan, nan},
	)

	_, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataValidation)

	// not an error when the forced close is never needed
	series = buildSeries("AAA",
		bar{"buy", 100, 100},
		bar{"sell", 110, 110},
		bar{"hold", nan, nan},
	)
	trades, _, err := NewMatcher(1000).Match(series, 0, variant(onOpen, onOpen))
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

// referenceMatch is a literal nested-loop rendering of the matching rules
func referenceMatch(series *contracts.StockSeries, v contracts.Variant, tradeSize float64) []contracts.Trade {
	var out []contracts.Trade
	n := series.Len()
	for i := 0; i < n; i++ {
		row := series.Rows[i]
		if row.Signals[0] != contracts.SignalBuy {
			continue
		}
		entry := row.Price(v.EntryType)
		if math.IsNaN(entry) {
			continue
		}
		shares := int64(math.Floor(tradeSize / entry))
		if shares < 1 {
			continue
		}
		exitIndex := -1
		for j := i + 1; j < n; j++ {
			if series.Rows[j].Signals[0] == contracts.SignalSell {
				if !math.IsNaN(series.Rows[j].Price(v.ExitType)) {
					exitIndex = j
				}
				break
			}
		}
		var exitPrice float64
		var exitRow contracts.SignalRow
		if exitIndex >= 0 {
			exitRow = series.Rows[exitIndex]
			exitPrice = exitRow.Price(v.ExitType)
		} else {
			exitRow = series.Rows[n-1]
			exitPrice = exitRow.Price(v.ExitType)
			if math.IsNaN(exitPrice) {
				exitPrice = exitRow.Close
			}
		}
		out = append(out, contracts.Trade{
			EntryDate: row.Date, ExitDate: exitRow.Date,
			EntryPrice: entry, ExitPrice: exitPrice,
			Shares: shares, Profit: float64(shares) * (exitPrice - entry),
		})
	}
	return out
}

func randomSeries(rng *rand.Rand, n int) *contracts.StockSeries {
	signals := []string{"buy", "sell", "hold", "hold", ""}
	bars := make([]bar, n)
	for i := range bars {
		o := 50 + rng.Float64()*1500
		c := 50 + rng.Float64()*1500
		if rng.Intn(6) == 0 {
			o = nan
		}
		if rng.Intn(8) == 0 && i != n-1 {
			c = nan
		}
		bars[i] = bar{signals[rng.Intn(len(signals))], o, c}
	}
	return buildSeries("RND", bars...)
}

func TestMatcher_AgreesWithReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const tradeSize = 1000.0

	for iter := 0; iter < 200; iter++ {
		series := randomSeries(rng, 1+rng.Intn(40))

		for _, v := range EnumerateVariants([]string{"xg3"}) {
			got, _, err := NewMatcher(tradeSize).Match(series, 0, v)
			require.NoError(t, err)
			want := referenceMatch(series, v, tradeSize)
			require.Len(t, got, len(want), "iteration %d %s", iter, v.ID())

			for k := range got {
				assert.Equal(t, want[k].EntryDate, got[k].EntryDate)
				assert.Equal(t, want[k].ExitDate, got[k].ExitDate)
				assert.Equal(t, want[k].EntryPrice, got[k].EntryPrice)
				assert.Equal(t, want[k].ExitPrice, got[k].ExitPrice)
				assert.Equal(t, want[k].Shares, got[k].Shares)
				assert.Equal(t, want[k].Profit, got[k].Profit)

				// trade invariants
				assert.GreaterOrEqual(t, got[k].Shares, int64(1))
				assert.Equal(t, int64(math.Floor(tradeSize/got[k].EntryPrice)), got[k].Shares)
				assert.Equal(t, float64(got[k].Shares)*(got[k].ExitPrice-got[k].EntryPrice), got[k].Profit)
				assert.False(t, got[k].ExitDate.Before(got[k].EntryDate))
				if got[k].ExitDate.Equal(got[k].EntryDate) {
					assert.Equal(t, series.Last().Date, got[k].ExitDate)
				}
			}
		}
	}
}

func TestNextSellIndex(t *testing.T) {
	series := buildSeries("AAA",
		bar{"buy", 1, 1},
		bar{"sell", 1, 1},
		bar{"hold", 1, 1},
		bar{"sell", 1, 1},
		bar{"buy", 1, 1},
	)

	assert.Equal(t, []int{1, 3, 3, -1, -1}, nextSellIndex(series, 0))
}
