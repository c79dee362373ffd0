package runconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/sigtrade/internal/contracts"
	"github.com/wonny/sigtrade/pkg/config"
)

// Load reads a YAML run file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read run file: %v", contracts.ErrConfiguration, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates run file bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode run file: %v", contracts.ErrConfiguration, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot records the run file for the result store
func NewSnapshot(cfg *Config, yamlData []byte) (*Snapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		RunName:    cfg.Meta.RunName,
		CreatedAt:  time.Now(),
	}, nil
}

// Apply overlays the non-empty run file fields onto the environment settings
func (c *Config) Apply(bt *config.BacktestConfig) {
	if c.Input.Path != "" {
		bt.InputPath = c.Input.Path
	}
	if c.Output.Dir != "" {
		bt.OutputDir = c.Output.Dir
	}
	if c.Portfolio.Capital > 0 {
		bt.Capital = c.Portfolio.Capital
	}
	if c.Portfolio.TradeFraction > 0 {
		bt.TradeFraction = c.Portfolio.TradeFraction
	}
	if len(c.Models) > 0 {
		bt.Models = append([]string(nil), c.Models...)
	}
	if c.Workers > 0 {
		bt.Workers = c.Workers
	}
}
