package signaltable

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/logger"
)

// Required columns of the signal table
const (
	ColStock = "stock"
	ColDate  = "date"
	ColOpen  = "open"
	ColClose = "close"
	ColHigh  = "high"
	ColLow   = "low"
)

// Loader reads the labeled OHLCV table produced by the indicator stage
// ⭐ SSOT: 입력 테이블 파싱과 시그널 정규화는 여기서만
type Loader struct {
	logger *logger.Logger
}

// NewLoader creates a new Loader
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{logger: log}
}

// LoadFile opens path and reads it with Read
func (l *Loader) LoadFile(path string, models []string) (*contracts.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: input file %q not found", contracts.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	table, err := l.Read(io.TeeReader(f, h), path, models)
	if err != nil {
		return nil, err
	}
	table.Digest = hex.EncodeToString(h.Sum(nil))

	l.logger.WithFields(map[string]interface{}{
		"source": path,
		"stocks": table.NumStocks(),
		"rows":   table.NumRows(),
		"models": strings.Join(models, ","),
		"digest": table.Digest[:12],
	}).Info("Signal table loaded")

	return table, nil
}

// Read parses a CSV stream into a Table.
// UTF-8 and UTF-16 input with a byte order mark are both accepted.
func (l *Loader) Read(r io.Reader, source string, models []string) (*contracts.Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: input %q is empty", contracts.ErrConfiguration, source)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header, models)
	if err != nil {
		return nil, err
	}

	table := &contracts.Table{
		Source: source,
		Models: append([]string(nil), models...),
	}
	byStock := make(map[string]*contracts.StockSeries)

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", contracts.ErrDataValidation, line, err)
		}
		if isBlank(record) {
			continue
		}
		if len(record) < len(header) {
			return nil, fmt.Errorf("%w: line %d: %d fields, header has %d",
				contracts.ErrDataValidation, line, len(record), len(header))
		}

		stock, row, err := cols.parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", contracts.ErrDataValidation, line, err)
		}

		series, ok := byStock[stock]
		if !ok {
			series = &contracts.StockSeries{Stock: stock}
			byStock[stock] = series
			table.Series = append(table.Series, series)
		}
		series.Rows = append(series.Rows, row)
	}

	for _, series := range table.Series {
		if err := orderSeries(series); err != nil {
			return nil, err
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"source": source,
		"lines":  line,
	}).Debug("Signal table parsed")

	return table, nil
}

// orderSeries sorts rows by date and rejects duplicate dates
func orderSeries(series *contracts.StockSeries) error {
	sort.SliceStable(series.Rows, func(i, j int) bool {
		return series.Rows[i].Date.Before(series.Rows[j].Date)
	})

	for i := 1; i < len(series.Rows); i++ {
		if series.Rows[i].Date.Equal(series.Rows[i-1].Date) {
			return fmt.Errorf("%w: stock %s has duplicate date %s",
				contracts.ErrDataValidation, series.Stock, series.Rows[i].Date.Format(contracts.DateLayout))
		}
	}
	return nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
