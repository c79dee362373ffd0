package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/logger"
)

// Output file names inside the output directory
const (
	TradeListFile = "trade_list.csv"
	SummaryFile   = "strategy_summary.csv"
	CurveFile     = "realized_curve.csv"
)

var (
	tradeHeader   = []string{"strategy", "stock", "entry_date", "exit_date", "entry_type", "entry_price", "exit_type", "exit_price", "shares", "profit"}
	summaryHeader = []string{"strategy", "total_profit", "num_trades"}
	curveHeader   = []string{"strategy", "date", "realized_profit"}
)

// Output is everything a finished run writes
type Output struct {
	Trades    []contracts.Trade
	Summaries []contracts.StrategySummary
	Curve     []contracts.CurvePoint // nil = no curve file
}

// Paths lists the files written by Writer.Write
type Paths struct {
	TradeList string
	Summary   string
	Curve     string
}

// Writer writes run results as CSV tables
// ⭐ SSOT: 결과 파일 포맷은 여기서만
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &Writer{dir: dir, logger: log}
}

// Write stores all tables. Each file is written to a temp file and renamed,
// so readers never see a half-written table.
func (w *Writer) Write(out Output) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	paths := Paths{
		TradeList: filepath.Join(w.dir, TradeListFile),
		Summary:   filepath.Join(w.dir, SummaryFile),
	}

	if err := writeAtomic(paths.TradeList, func(wr io.Writer) error {
		return WriteTrades(wr, out.Trades)
	}); err != nil {
		return Paths{}, err
	}

	if err := writeAtomic(paths.Summary, func(wr io.Writer) error {
		return WriteSummaries(wr, out.Summaries)
	}); err != nil {
		return Paths{}, err
	}

	if out.Curve != nil {
		paths.Curve = filepath.Join(w.dir, CurveFile)
		if err := writeAtomic(paths.Curve, func(wr io.Writer) error {
			return WriteCurve(wr, out.Curve)
		}); err != nil {
			return Paths{}, err
		}
	}

	w.logger.WithFields(map[string]interface{}{
		"dir":       w.dir,
		"trades":    len(out.Trades),
		"summaries": len(out.Summaries),
		"curve":     paths.Curve != "",
	}).Info("Results written")

	return paths, nil
}

// WriteTrades writes the trade list table
func WriteTrades(w io.Writer, trades []contracts.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return fmt.Errorf("write trade header: %w", err)
	}

	for i := range trades {
		t := &trades[i]
		record := []string{
			t.Strategy,
			t.Stock,
			t.EntryDate.Format(contracts.DateLayout),
			t.ExitDate.Format(contracts.DateLayout),
			string(t.EntryType),
			formatFloat(t.EntryPrice),
			string(t.ExitType),
			formatFloat(t.ExitPrice),
			strconv.FormatInt(t.Shares, 10),
			formatFloat(t.Profit),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write trade %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaries writes the strategy summary table
func WriteSummaries(w io.Writer, summaries []contracts.StrategySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, s := range summaries {
		if err := cw.Write([]string{s.Strategy, formatFloat(s.TotalProfit), strconv.Itoa(s.NumTrades)}); err != nil {
			return fmt.Errorf("write summary %s: %w", s.Strategy, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCurve writes the realized profit curve
func WriteCurve(w io.Writer, curve []contracts.CurvePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(curveHeader); err != nil {
		return fmt.Errorf("write curve header: %w", err)
	}

	for _, p := range curve {
		if err := cw.Write([]string{p.Strategy, p.Date.Format(contracts.DateLayout), formatFloat(p.RealizedProfit)}); err != nil {
			return fmt.Errorf("write curve point: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatFloat uses the shortest representation that round-trips
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
