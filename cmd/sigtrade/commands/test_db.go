package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/internal/store"
	"github.com/wonny/sigtrade/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 결과 저장소 연결 테스트",
	Long: `결과 저장소 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성 및 Health Check
- sigtrade 스키마 생성 (--migrate)

Example:
  go run ./cmd/sigtrade test-db
  go run ./cmd/sigtrade test-db --migrate`,
	RunE: runTestDB,
}

var testDBMigrate bool

func init() {
	rootCmd.AddCommand(testDBCmd)
	testDBCmd.Flags().BoolVar(&testDBMigrate, "migrate", false, "sigtrade 스키마/테이블 생성")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "=== sigtrade Database Connection Test ===")

	cfg, _, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("%w: DATABASE_URL is not set", contracts.ErrConfiguration)
	}
	fmt.Fprintf(w, "✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Fprintf(w, "   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(w, "Database connection established")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	PrintSuccess(w, "Health Check Results:")
	PrintKeyValue(w, "Healthy", fmt.Sprintf("%v", status.Healthy), 20)
	PrintKeyValue(w, "Response Time", status.ResponseTime.String(), 20)
	PrintKeyValue(w, "Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 20)
	PrintKeyValue(w, "Total Connections", fmt.Sprintf("%d", status.Stats.TotalConns), 20)
	PrintKeyValue(w, "Idle Connections", fmt.Sprintf("%d", status.Stats.IdleConns), 20)

	if testDBMigrate {
		if err := store.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
			return err
		}
		PrintSuccess(w, "sigtrade schema ready")
	}

	fmt.Fprintln(w)
	PrintSuccess(w, "All checks passed!")
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
