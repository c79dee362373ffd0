package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/internal/signaltable"
)

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "시그널 테이블 상태 확인",
	Long: `시그널 테이블을 읽어 검증하고 데이터 상태를 출력합니다.

확인 항목:
- 종목 수 / 행 수 / 기간
- 가격 커버리지 (open, close, high, low)
- 모델별 buy / sell / hold 개수
- 종목별 행 수

Example:
  go run ./cmd/sigtrade data-check
  go run ./cmd/sigtrade data-check --input selected_data_with_nn.csv --models xg3,nn7
  go run ./cmd/sigtrade data-check --json`,
	RunE: runDataCheck,
}

var (
	dataCheckInput  string
	dataCheckModels []string
	dataCheckJSON   bool
	dataCheckStocks bool
)

func init() {
	rootCmd.AddCommand(dataCheckCmd)

	dataCheckCmd.Flags().StringVar(&dataCheckInput, "input", "", "시그널 테이블 CSV 경로 (기본: INPUT_PATH)")
	dataCheckCmd.Flags().StringSliceVar(&dataCheckModels, "models", nil, "모델 컬럼 (기본: MODEL_COLUMNS)")
	dataCheckCmd.Flags().BoolVar(&dataCheckJSON, "json", false, "JSON 출력")
	dataCheckCmd.Flags().BoolVar(&dataCheckStocks, "stocks", false, "종목별 행 수 출력")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	input := cfg.Backtest.InputPath
	if cmd.Flags().Changed("input") {
		input = dataCheckInput
	}
	models := cfg.Backtest.Models
	if cmd.Flags().Changed("models") {
		models = dataCheckModels
	}

	table, err := signaltable.NewLoader(log).LoadFile(input, models)
	if err != nil {
		return err
	}
	snapshot := signaltable.Inspect(table)

	w := cmd.OutOrStdout()
	if dataCheckJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	printDataCheck(w, table, snapshot, dataCheckStocks)
	return nil
}

func printDataCheck(w io.Writer, table *contracts.Table, snapshot *contracts.DataQualitySnapshot, perStock bool) {
	period := "-"
	if !snapshot.FirstDate.IsZero() {
		period = snapshot.FirstDate.Format(contracts.DateLayout) + " ~ " + snapshot.LastDate.Format(contracts.DateLayout)
	}

	PrintHeader(w, RunHeader{
		Title: "Signal Table Check",
		Fields: [][2]string{
			{"Source", snapshot.Source},
			{"Stocks", strconv.Itoa(snapshot.TotalStocks)},
			{"Rows", strconv.Itoa(snapshot.TotalRows)},
			{"Period", period},
		},
	})

	fmt.Fprintln(w, "💹 가격 커버리지")
	for _, field := range []string{signaltable.ColOpen, signaltable.ColClose, signaltable.ColHigh, signaltable.ColLow} {
		PrintKeyValue(w, field, formatPct(snapshot.Coverage[field]), 5)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📈 모델 시그널")
	rows := make([][]string, 0, len(table.Models))
	for _, model := range table.Models {
		c := snapshot.Signals[model]
		rows = append(rows, []string{model, strconv.Itoa(c.Buy), strconv.Itoa(c.Sell), strconv.Itoa(c.Hold)})
	}
	PrintTable(w, []string{"model", "buy", "sell", "hold"}, rows)
	fmt.Fprintln(w)

	if perStock {
		fmt.Fprintln(w, "📋 종목별 행 수")
		stockRows := make([][]string, 0, len(table.Series))
		for _, s := range table.Series {
			stockRows = append(stockRows, []string{s.Stock, strconv.Itoa(snapshot.RowsByStock[s.Stock])})
		}
		PrintTable(w, []string{"stock", "rows"}, stockRows)
		fmt.Fprintln(w)
	}

	if snapshot.Coverage[signaltable.ColClose] < 1 {
		PrintWarning(w, "close 가격이 비어 있는 행이 있습니다: 강제 청산 시 검증 오류가 날 수 있음")
	}
	PrintSuccess(w, "Signal table is valid")
}
