package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Limits  LimitsConfig  `yaml:"limits"`
	Scoring ScoringConfig `yaml:"scoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	MaxConns int    `yaml:"max_conns"`
	PageSize int    `yaml:"page_size"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	StagingDir   string `yaml:"staging_dir"`
}

// LimitsConfig bounds submissions and concurrent work.
type LimitsConfig struct {
	MaxFileBytes      int64    `yaml:"max_file_bytes"`
	MaxTotalBytes     int64    `yaml:"max_total_bytes"`
	Extensions        []string `yaml:"extensions"`
	MaxConcurrentRuns int64    `yaml:"max_concurrent_runs"`
}

// ScoringConfig controls the scoring pipeline.
type ScoringConfig struct {
	// MaxResults truncates corpus scoring output; zero keeps every row.
	MaxResults     int      `yaml:"max_results"`
	MinTermLength  int      `yaml:"min_term_length"`
	Encodings      []string `yaml:"encodings"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			MaxConns: 256,
			PageSize: 10,
		},
		Storage: StorageConfig{
			DatabasePath: "termstat.db",
			StagingDir:   filepath.Join(os.TempDir(), "termstat-staging"),
		},
		Limits: LimitsConfig{
			MaxFileBytes:      5 << 20,
			MaxTotalBytes:     20 << 20,
			Extensions:        []string{".txt", ".text"},
			MaxConcurrentRuns: 4,
		},
		Scoring: ScoringConfig{
			MinTermLength: 3,
			Encodings:     []string{"utf-8", "windows-1251"},
		},
	}
}

// Load reads a YAML configuration file. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
