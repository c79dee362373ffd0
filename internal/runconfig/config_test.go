package runconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/config"
)

const sampleYAML = `
meta:
  run_name: nn_only
  description: neural models on the 2024 table
input:
  path: data/selected_data_with_nn.csv
portfolio:
  capital: 500000
  trade_fraction: 0.05
models: [nn3, nn7]
output:
  dir: out/nn_only
  curve: true
workers: 4
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, data, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "nn_only", cfg.Meta.RunName)
	assert.Equal(t, "data/selected_data_with_nn.csv", cfg.Input.Path)
	assert.Equal(t, 500000.0, cfg.Portfolio.Capital)
	assert.Equal(t, 0.05, cfg.Portfolio.TradeFraction)
	assert.Equal(t, []string{"nn3", "nn7"}, cfg.Models)
	assert.Equal(t, "out/nn_only", cfg.Output.Dir)
	assert.True(t, cfg.Output.Curve)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, sampleYAML, string(data))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "portfolio:\n  capitol: 100\n"},
		{"malformed", "models: [nn3\n"},
		{"negative capital", "portfolio:\n  capital: -1\n"},
		{"fraction above one", "portfolio:\n  trade_fraction: 1.5\n"},
		{"duplicate model", "models: [nn3, nn3]\n"},
		{"blank model", "models: [nn3, ' ']\n"},
		{"negative workers", "workers: -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, err := Load(writeFile(t, tt.body))
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, contracts.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, contracts.ErrConfiguration)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestValidationError(t *testing.T) {
	err := Validate(&Config{Workers: -1})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "workers", verr.Field)
	assert.Equal(t, "workers: must be >= 0", err.Error())
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	hashA, err := Hash(a)
	require.NoError(t, err)
	hashB, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, hashA, 64)
	assert.Equal(t, hashA, hashB, "동일 설정 → 동일 해시")

	b.Portfolio.TradeFraction = 0.06
	hashC, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)
}

func TestNewSnapshot(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	snap, err := NewSnapshot(cfg, []byte(sampleYAML))
	require.NoError(t, err)

	hash, _ := Hash(cfg)
	assert.Equal(t, hash, snap.ConfigHash)
	assert.Equal(t, "nn_only", snap.RunName)
	assert.Equal(t, sampleYAML, snap.ConfigYAML)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestApply(t *testing.T) {
	bt := config.BacktestConfig{
		InputPath:     "selected_data_with_nn.csv",
		OutputDir:     "portfolio_details",
		Capital:       1_000_000,
		TradeFraction: 0.10,
		Models:        config.DefaultModels,
		Workers:       8,
	}

	// 빈 설정은 아무것도 바꾸지 않음
	unchanged := bt
	(&Config{}).Apply(&unchanged)
	assert.Equal(t, bt, unchanged)

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	cfg.Apply(&bt)

	assert.Equal(t, "data/selected_data_with_nn.csv", bt.InputPath)
	assert.Equal(t, "out/nn_only", bt.OutputDir)
	assert.Equal(t, 500000.0, bt.Capital)
	assert.Equal(t, 0.05, bt.TradeFraction)
	assert.Equal(t, []string{"nn3", "nn7"}, bt.Models)
	assert.Equal(t, 4, bt.Workers)

	// the run file's slice is copied, not shared
	cfg.Models[0] = "xg3"
	assert.Equal(t, "nn3", bt.Models[0])
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(&Config{}))

	warnings := Warn(&Config{Portfolio: Portfolio{TradeFraction: 0.5}, Workers: 128})
	require.Len(t, warnings, 2)
	assert.Equal(t, "HIGH_TRADE_FRACTION", warnings[0].Code)
	assert.Equal(t, "LARGE_WORKER_POOL", warnings[1].Code)
}
