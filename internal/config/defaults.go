package config

import "time"

// Default engine settings, applied before file and environment overrides.
const (
	DefaultScanWorkers  = 4
	DefaultFileLimit    = 0
	DefaultParseWorkers = 4
	DefaultStrategy     = StrategySimple
	DefaultCompress     = false
	DefaultMetadataFile = "config.ini"

	DefaultStartTimeout   = 30 * time.Second
	DefaultRequestTimeout = 2 * time.Minute
	DefaultHealthInterval = 30 * time.Second

	DefaultLogFormat = LogFormatText
)

// DefaultMetadataKeys are the run-identifying metadata keys extracted by
// the config-aware strategy.
var DefaultMetadataKeys = []string{"benchmark", "seed"}
