// Package config loads and validates the engine configuration and the
// caller-supplied variables manifest.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct for statfang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Scan          ScanConfig          `mapstructure:"scan"`
	Parse         ParseConfig         `mapstructure:"parse"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ScanConfig holds discovery settings.
type ScanConfig struct {
	Workers   int `mapstructure:"workers"`
	FileLimit int `mapstructure:"file_limit"`
}

// ParseConfig holds extraction settings.
type ParseConfig struct {
	Workers      int      `mapstructure:"workers"`
	Strategy     string   `mapstructure:"strategy"`
	OutputDir    string   `mapstructure:"output_dir"`
	Compress     bool     `mapstructure:"compress"`
	MetadataFile string   `mapstructure:"metadata_file"`
	MetadataKeys []string `mapstructure:"metadata_keys"`
}

// WorkerConfig holds worker subprocess settings.
type WorkerConfig struct {
	Binary         string        `mapstructure:"binary"`
	StartTimeout   time.Duration `mapstructure:"start_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	LogFormat    string `mapstructure:"log_format"`
}

// Strategy names accepted by parse.strategy.
const (
	StrategySimple      = "simple"
	StrategyConfigAware = "config-aware"
)

// Log formats accepted by observability.log_format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidScanWorkers indicates the scan workers value is negative.
	ErrInvalidScanWorkers = errors.New("scan.workers must be non-negative")
	// ErrInvalidFileLimit indicates the file limit is negative.
	ErrInvalidFileLimit = errors.New("scan.file_limit must be non-negative")
	// ErrInvalidParseWorkers indicates the parse workers value is negative.
	ErrInvalidParseWorkers = errors.New("parse.workers must be non-negative")
	// ErrInvalidStrategy indicates an unknown parse strategy name.
	ErrInvalidStrategy = errors.New("parse.strategy must be simple or config-aware")
	// ErrInvalidTimeout indicates a negative worker timeout or interval.
	ErrInvalidTimeout = errors.New("worker timeouts must be non-negative")
	// ErrInvalidLogFormat indicates an unknown log format name.
	ErrInvalidLogFormat = errors.New("observability.log_format must be text or json")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return ErrInvalidScanWorkers
	}

	if c.Scan.FileLimit < 0 {
		return ErrInvalidFileLimit
	}

	if c.Parse.Workers < 0 {
		return ErrInvalidParseWorkers
	}

	if c.Parse.Strategy != StrategySimple && c.Parse.Strategy != StrategyConfigAware {
		return ErrInvalidStrategy
	}

	if c.Worker.StartTimeout < 0 || c.Worker.RequestTimeout < 0 || c.Worker.HealthInterval < 0 {
		return ErrInvalidTimeout
	}

	if c.Observability.LogFormat != LogFormatText && c.Observability.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	return nil
}
