package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sigtrade/internal/contracts"
)

func sampleOutput() Output {
	d := func(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }

	return Output{
		Trades: []contracts.Trade{
			{
				Strategy: "xg3_entry_open_exit_close", Stock: "AAPL",
				EntryDate: d(1), ExitDate: d(5),
				EntryType: contracts.PriceOpen, EntryPrice: 100.25,
				ExitType: contracts.PriceClose, ExitPrice: 110,
				Shares: 997, Profit: 9720.75,
			},
			{
				Strategy: "xg3_entry_open_exit_close", Stock: "MSFT",
				EntryDate: d(4), ExitDate: d(4),
				EntryType: contracts.PriceOpen, EntryPrice: 400,
				ExitType: contracts.PriceClose, ExitPrice: 395.5,
				Shares: 250, Profit: -1125, ForcedClose: true,
			},
		},
		Summaries: []contracts.StrategySummary{
			{Strategy: "xg3_entry_open_exit_close", TotalProfit: 8595.75, NumTrades: 2, WinningTrades: 1, LosingTrades: 1},
			{Strategy: "xg3_entry_close_exit_close", TotalProfit: 0, NumTrades: 0},
		},
	}
}

func TestWriteTrades(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrades(&buf, sampleOutput().Trades))

	want := "strategy,stock,entry_date,exit_date,entry_type,entry_price,exit_type,exit_price,shares,profit\n" +
		"xg3_entry_open_exit_close,AAPL,2024-03-01,2024-03-05,open,100.25,close,110,997,9720.75\n" +
		"xg3_entry_open_exit_close,MSFT,2024-03-04,2024-03-04,open,400,close,395.5,250,-1125\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTrades_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrades(&buf, nil))
	assert.Equal(t, "strategy,stock,entry_date,exit_date,entry_type,entry_price,exit_type,exit_price,shares,profit\n", buf.String())
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, sampleOutput().Summaries))

	want := "strategy,total_profit,num_trades\n" +
		"xg3_entry_open_exit_close,8595.75,2\n" +
		"xg3_entry_close_exit_close,0,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCurve(t *testing.T) {
	var buf bytes.Buffer
	curve := []contracts.CurvePoint{
		{Strategy: "nn7_entry_open_exit_open", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), RealizedProfit: -12.5},
		{Strategy: "nn7_entry_open_exit_open", Date: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), RealizedProfit: 30},
	}
	require.NoError(t, WriteCurve(&buf, curve))

	want := "strategy,date,realized_profit\n" +
		"nn7_entry_open_exit_open,2024-01-02,-12.5\n" +
		"nn7_entry_open_exit_open,2024-01-09,30\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-3.5, "-3.5"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e7, "10000000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFloat(tt.in))
	}
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "portfolio_details")
	w := NewWriter(dir, nil)

	paths, err := w.Write(sampleOutput())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, TradeListFile), paths.TradeList)
	assert.Equal(t, filepath.Join(dir, SummaryFile), paths.Summary)
	assert.Empty(t, paths.Curve)
	assert.NoFileExists(t, filepath.Join(dir, CurveFile))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")

	info, err := os.Stat(paths.TradeList)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriter_WriteCurve(t *testing.T) {
	dir := t.TempDir()
	out := sampleOutput()
	out.Curve = []contracts.CurvePoint{}

	paths, err := NewWriter(dir, nil).Write(out)
	require.NoError(t, err)

	// empty but non-nil curve still produces a header-only file
	data, err := os.ReadFile(paths.Curve)
	require.NoError(t, err)
	assert.Equal(t, "strategy,date,realized_profit\n", string(data))
}

func TestWriter_Idempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	paths, err := w.Write(sampleOutput())
	require.NoError(t, err)
	first, err := os.ReadFile(paths.TradeList)
	require.NoError(t, err)
	firstSummary, err := os.ReadFile(paths.Summary)
	require.NoError(t, err)

	_, err = w.Write(sampleOutput())
	require.NoError(t, err)
	second, err := os.ReadFile(paths.TradeList)
	require.NoError(t, err)
	secondSummary, err := os.ReadFile(paths.Summary)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSummary, secondSummary)
}

func TestWriter_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewWriter(filepath.Join(file, "out"), nil).Write(sampleOutput())
	assert.Error(t, err)
}
