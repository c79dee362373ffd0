package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/config"
	"github.com/wonny/sigtrade/pkg/logger"
)

var (
	// Global flags
	envFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sigtrade",
	Short: "Signal-driven long-only backtest engine",
	Long: `sigtrade Unified CLI

모델 시그널(buy/sell/hold)을 거래로 매칭하고 전략별 손익을 집계합니다.

Usage:
  go run ./cmd/sigtrade [command]

Examples:
  go run ./cmd/sigtrade backtest run
  go run ./cmd/sigtrade backtest run --models nn3,nn7 --curve
  go run ./cmd/sigtrade data-check --input selected_data_with_nn.csv
  go run ./cmd/sigtrade test-db
  go run ./cmd/sigtrade test-logger`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("%w: %v", contracts.ErrConfiguration, err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(rootCmd.ErrOrStderr(), err.Error())
	}
	return err
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, contracts.ErrConfiguration):
		return 2
	case errors.Is(err, contracts.ErrDataValidation):
		return 3
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "extra .env file loaded before the environment (default search: ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LOG_FORMAT (json|console)")
}

// loadRuntime reads the environment and builds the logger shared by every command
func loadRuntime(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrConfiguration, err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	return cfg, logger.NewWithWriter(cfg, cmd.ErrOrStderr()), nil
}
