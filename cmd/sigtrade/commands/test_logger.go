package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/sigtrade/pkg/config"
	"github.com/wonny/sigtrade/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Logger 기능 테스트",
	Long: `구조화된 로깅 기능을 테스트합니다.

이 명령어는:
- JSON/Console 포맷 테스트
- 로그 레벨 테스트
- 백테스트 필드 로깅
- 에러 컨텍스트 로깅

Example:
  go run ./cmd/sigtrade test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logOut := cmd.ErrOrStderr()
	fmt.Fprintln(out, "=== sigtrade Logger Test ===")

	steps := []struct {
		title string
		fn    func(io.Writer)
	}{
		{"1. JSON Format (Production)", logJSONFormat},
		{"2. Console Format (Development)", logConsoleFormat},
		{"3. Structured Logging with Fields", logStructured},
		{"4. Error Logging", logErrors},
	}

	for _, step := range steps {
		fmt.Fprintln(out, step.title)
		fmt.Fprintln(out, "--------------------------------")
		step.fn(logOut)
		fmt.Fprintln(out)
	}

	PrintSuccess(out, "All logger tests completed!")
	return nil
}

func logJSONFormat(w io.Writer) {
	log := logger.NewWithWriter(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}, w)
	log.Info("Backtest started")
	log.Warn("Input has rows without close price")
	log.Error("Failed to write output directory")
}

func logConsoleFormat(w io.Writer) {
	log := logger.NewWithWriter(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"}, w)
	log.Debug("Variant evaluated")
	log.Info("Signal table loaded")
	log.Warn("Result cache unavailable, running without it")
}

func logStructured(w io.Writer) {
	log := logger.NewWithWriter(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}, w)

	// Single field
	log.WithField("run_id", "5f0c6a0e-demo").Info("Starting backtest")

	// Multiple fields
	log.WithFields(map[string]interface{}{
		"strategy":      "xg3_entry_open_exit_close",
		"trades":        128,
		"forced_closes": 3,
	}).Info("Variant evaluated")

	// Chained fields
	log.WithField("module", "report").
		WithField("dir", "portfolio_details").
		Info("Results written")
}

func logErrors(w io.Writer) {
	log := logger.NewWithWriter(&config.Config{Env: "production", LogLevel: "error", LogFormat: "json"}, w)

	err := errors.New("close price missing at last row")
	log.WithError(err).Error("Backtest aborted")

	log.WithError(err).
		WithFields(map[string]interface{}{
			"stock":    "AAPL",
			"strategy": "nn7_entry_close_exit_open",
		}).
		Error("Forced close failed")
}
