package runconfig

import "time"

// Config는 백테스트 실행 파일(YAML)의 전체 설정
// 비어 있는 필드는 환경변수 설정을 그대로 사용
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Input     Input     `yaml:"input" json:"input"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Models    []string  `yaml:"models" json:"models"`
	Output    Output    `yaml:"output" json:"output"`
	Workers   int       `yaml:"workers" json:"workers"`
}

// Meta 메타 정보
type Meta struct {
	RunName     string `yaml:"run_name" json:"run_name"`
	Description string `yaml:"description" json:"description"`
}

// Input 시그널 테이블 위치
type Input struct {
	Path string `yaml:"path" json:"path"`
}

// Portfolio 자본 및 거래 크기
type Portfolio struct {
	Capital       float64 `yaml:"capital" json:"capital"`
	TradeFraction float64 `yaml:"trade_fraction" json:"trade_fraction"` // 0 < f <= 1
}

// Output 결과 파일 설정
type Output struct {
	Dir   string `yaml:"dir" json:"dir"`
	Curve bool   `yaml:"curve" json:"curve"`
}

// Snapshot ties a run to the exact run file that produced it
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	RunName    string    `json:"run_name"`
	CreatedAt  time.Time `json:"created_at"`
}
