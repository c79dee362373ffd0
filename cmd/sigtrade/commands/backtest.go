package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/sigtrade/internal/backtest"
	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/internal/report"
	"github.com/wonny/sigtrade/internal/runconfig"
	"github.com/wonny/sigtrade/internal/signaltable"
	"github.com/wonny/sigtrade/internal/store"
	"github.com/wonny/sigtrade/pkg/config"
	"github.com/wonny/sigtrade/pkg/database"
	"github.com/wonny/sigtrade/pkg/logger"
	"github.com/wonny/sigtrade/pkg/redis"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "시그널 기반 백테스트",
	Long: `모델 시그널 테이블로 전략 변형(모델 × 진입가 × 청산가)을 평가합니다.

각 전략은 buy 시그널마다 포지션을 열고, 이후 첫 sell 시그널에서 청산합니다.
sell이 없거나 청산가가 비어 있으면 마지막 행에서 강제 청산합니다.

Example:
  go run ./cmd/sigtrade backtest run
  go run ./cmd/sigtrade backtest run --capital 500000 --fraction 0.05 --curve`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `시그널 테이블을 읽어 모든 전략 변형을 실행하고 결과 CSV를 씁니다.

우선순위: 플래그 > --run-config YAML > 환경변수(.env)

Flags:
  --input       시그널 테이블 CSV (기본: INPUT_PATH)
  --output      결과 디렉토리 (기본: OUTPUT_DIR)
  --capital     총 자본 (기본: PORTFOLIO_CAPITAL)
  --fraction    거래당 종목 예산 비율 (기본: TRADE_FRACTION)
  --models      모델 컬럼 목록 (기본: MODEL_COLUMNS)
  --workers     병렬 작업 수 (기본: WORKERS)
  --run-config  YAML 실행 파일
  --curve       realized_curve.csv 추가 출력
  --store       결과를 PostgreSQL에 저장 (DATABASE_URL 필요)
  --no-cache    Redis 결과 캐시 사용 안 함

Example:
  go run ./cmd/sigtrade backtest run --input selected_data_with_nn.csv
  go run ./cmd/sigtrade backtest run --models xg3,nn7 --workers 4
  go run ./cmd/sigtrade backtest run --run-config runs/nn_only.yaml --store`,
		RunE: runBacktest,
	}

	// Flags
	backtestInput     string
	backtestOutput    string
	backtestCapital   float64
	backtestFraction  float64
	backtestModels    []string
	backtestWorkers   int
	backtestRunConfig string
	backtestCurve     bool
	backtestStore     bool
	backtestNoCache   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	flags := backtestRunCmd.Flags()
	flags.StringVar(&backtestInput, "input", "", "시그널 테이블 CSV 경로")
	flags.StringVar(&backtestOutput, "output", "", "결과 디렉토리")
	flags.Float64Var(&backtestCapital, "capital", 0, "총 자본")
	flags.Float64Var(&backtestFraction, "fraction", 0, "거래당 종목 예산 비율 (0, 1]")
	flags.StringSliceVar(&backtestModels, "models", nil, "모델 컬럼 (쉼표 구분)")
	flags.IntVar(&backtestWorkers, "workers", 0, "병렬 작업 수")
	flags.StringVar(&backtestRunConfig, "run-config", "", "YAML 실행 파일")
	flags.BoolVar(&backtestCurve, "curve", false, "realized_curve.csv 출력")
	flags.BoolVar(&backtestStore, "store", false, "결과를 PostgreSQL에 저장")
	flags.BoolVar(&backtestNoCache, "no-cache", false, "결과 캐시 사용 안 함")
}

// runSettings is the fully resolved input of one backtest run
type runSettings struct {
	backtest config.BacktestConfig
	curve    bool
	meta     store.RunMeta
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	settings, err := resolveSettings(cmd, cfg, log)
	if err != nil {
		return err
	}
	if backtestStore && !cfg.Database.Enabled() {
		return fmt.Errorf("%w: --store requires DATABASE_URL", contracts.ErrConfiguration)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bt := settings.backtest
	table, err := signaltable.NewLoader(log).LoadFile(bt.InputPath, bt.Models)
	if err != nil {
		return err
	}

	resultCache, closeCache := openResultCache(ctx, cfg, log)
	defer closeCache()

	runner := backtest.NewCachedRunner(backtest.NewRunner(log, bt.Workers), resultCache, cfg.Redis.CacheTTL, log)
	result, err := runner.Run(ctx, table, backtest.Config{
		Models:        bt.Models,
		Capital:       bt.Capital,
		TradeFraction: bt.TradeFraction,
	})
	if err != nil {
		return err
	}

	out := report.Output{Trades: result.Trades, Summaries: result.Summaries}
	if settings.curve {
		out.Curve = backtest.RealizedCurve(result.Variants, result.Trades)
		if out.Curve == nil {
			out.Curve = []contracts.CurvePoint{}
		}
	}

	paths, err := report.NewWriter(bt.OutputDir, log).Write(out)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	if backtestStore {
		if err := saveRun(ctx, cfg, log, result, settings.meta); err != nil {
			return err
		}
	}

	printBacktestReport(cmd.OutOrStdout(), result, paths, bt.Workers)
	return nil
}

// resolveSettings applies the run file and then the flags over the environment
func resolveSettings(cmd *cobra.Command, cfg *config.Config, log *logger.Logger) (*runSettings, error) {
	s := &runSettings{backtest: cfg.Backtest}

	if backtestRunConfig != "" {
		rc, data, err := runconfig.Load(backtestRunConfig)
		if err != nil {
			return nil, err
		}
		for _, w := range runconfig.Warn(rc) {
			log.WithField("code", w.Code).Warn(w.Message)
		}

		snapshot, err := runconfig.NewSnapshot(rc, data)
		if err != nil {
			return nil, fmt.Errorf("hash run file: %w", err)
		}

		rc.Apply(&s.backtest)
		s.curve = rc.Output.Curve
		s.meta = store.RunMeta{RunName: snapshot.RunName, ConfigHash: snapshot.ConfigHash}
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		s.backtest.InputPath = backtestInput
	}
	if flags.Changed("output") {
		s.backtest.OutputDir = backtestOutput
	}
	if flags.Changed("capital") {
		s.backtest.Capital = backtestCapital
	}
	if flags.Changed("fraction") {
		s.backtest.TradeFraction = backtestFraction
	}
	if flags.Changed("models") {
		s.backtest.Models = backtestModels
	}
	if flags.Changed("workers") {
		s.backtest.Workers = backtestWorkers
	}
	if flags.Changed("curve") {
		s.curve = backtestCurve
	}

	if s.backtest.InputPath == "" {
		return nil, fmt.Errorf("%w: no input path", contracts.ErrConfiguration)
	}
	if s.backtest.OutputDir == "" {
		return nil, fmt.Errorf("%w: no output directory", contracts.ErrConfiguration)
	}
	return s, nil
}

// openResultCache returns a nil cache when Redis is off or unreachable
func openResultCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (backtest.ResultCache, func()) {
	noop := func() {}
	if backtestNoCache || !cfg.Redis.Enabled {
		return nil, noop
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Result cache unavailable, running without it")
		return nil, noop
	}

	return redis.NewCache(client, "sigtrade"), func() { client.Close() }
}

func saveRun(ctx context.Context, cfg *config.Config, log *logger.Logger, result *backtest.Result, meta store.RunMeta) error {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		if errors.Is(err, database.ErrDisabled) {
			return fmt.Errorf("%w: %v", contracts.ErrConfiguration, err)
		}
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.SaveRun(ctx, result, meta); err != nil {
		return err
	}

	log.WithField("run_id", result.RunID).Info("Run stored")
	return nil
}

// printBacktestReport prints the console summary of a finished run
func printBacktestReport(w io.Writer, result *backtest.Result, paths report.Paths, workers int) {
	source := "computed"
	if result.Cached {
		source = "cache"
	}

	PrintHeader(w, RunHeader{
		Title: "Backtest Report",
		Fields: [][2]string{
			{"Run ID", result.RunID},
			{"Input", result.Source},
			{"Capital", formatMoney(result.Budget.Capital)},
			{"Trade size", formatMoney(result.Budget.TradeSize)},
			{"Variants", strconv.Itoa(len(result.Variants))},
			{"Workers", strconv.Itoa(workers)},
			{"Result", source},
		},
	})

	fmt.Fprintf(w, "→ Wrote %d trades to '%s'\n", len(result.Trades), paths.TradeList)
	fmt.Fprintf(w, "→ Wrote %d strategies to '%s'\n", len(result.Summaries), paths.Summary)
	if paths.Curve != "" {
		fmt.Fprintf(w, "→ Wrote realized curve to '%s'\n", paths.Curve)
	}

	fmt.Fprintf(w, "\nNumber of unique tickers: %d\n\n", result.NumStocks)

	rows := make([][]string, 0, len(result.Summaries))
	for i := range result.Summaries {
		s := &result.Summaries[i]
		rows = append(rows, []string{
			s.Strategy,
			formatMoney(s.TotalProfit),
			strconv.Itoa(s.NumTrades),
			strconv.Itoa(s.WinningTrades),
			strconv.Itoa(s.LosingTrades),
			formatPct(s.WinRate()),
		})
	}
	PrintTable(w, []string{"strategy", "total_profit", "num_trades", "wins", "losses", "win_rate"}, rows)

	stats := result.Stats
	fmt.Fprintln(w)
	PrintKeyValue(w, "Buy candidates", strconv.Itoa(stats.Candidates), 16)
	PrintKeyValue(w, "Missing entry", strconv.Itoa(stats.MissingEntry), 16)
	PrintKeyValue(w, "Unaffordable", strconv.Itoa(stats.Unaffordable), 16)
	PrintKeyValue(w, "Forced closes", strconv.Itoa(stats.ForcedCloses), 16)
	fmt.Fprintln(w)

	if result.Cached {
		PrintSuccess(w, fmt.Sprintf("Backtest served from cache in %.2fs (total profit %s)", result.Duration.Seconds(), formatMoney(result.TotalProfit())))
		return
	}
	PrintSuccess(w, fmt.Sprintf("Backtest completed in %.2fs (total profit %s)", result.Duration.Seconds(), formatMoney(result.TotalProfit())))
}
