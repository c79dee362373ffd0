package runconfig

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/sigtrade/internal/contracts"
)

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes every validation failure a configuration error
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfiguration
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints.
// Zero values mean "not set" and are accepted.
func Validate(cfg *Config) error {
	// === Portfolio ===
	if cfg.Portfolio.Capital < 0 || math.IsNaN(cfg.Portfolio.Capital) || math.IsInf(cfg.Portfolio.Capital, 0) {
		return ValidationError{"portfolio.capital", "must be a finite value > 0"}
	}
	if err := validateFraction(cfg.Portfolio.TradeFraction, "portfolio.trade_fraction"); err != nil {
		return err
	}

	// === Models ===
	seen := make(map[string]bool, len(cfg.Models))
	for i, model := range cfg.Models {
		if strings.TrimSpace(model) == "" {
			return ValidationError{fmt.Sprintf("models[%d]", i), "must not be empty"}
		}
		if seen[model] {
			return ValidationError{fmt.Sprintf("models[%d]", i), fmt.Sprintf("duplicate model %q", model)}
		}
		seen[model] = true
	}

	// === Execution ===
	if cfg.Workers < 0 {
		return ValidationError{"workers", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 포지션이 겹칠 수 있어 큰 비율은 자본 초과 가능
	if cfg.Portfolio.TradeFraction > 0.25 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_TRADE_FRACTION",
			Message: "trade_fraction > 25%: overlapping trades can exceed the stock budget",
		})
	}

	if cfg.Workers > 64 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_WORKER_POOL",
			Message: "workers > 64: the grid is CPU bound, extra workers only add scheduling",
		})
	}

	return warnings
}

// validateFraction는 비율이 (0, 1] 범위인지 검증 (0 = 미설정)
func validateFraction(f float64, field string) error {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return ValidationError{field, "must be in range (0, 1]"}
	}
	return nil
}
