package parse

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Default metadata extraction settings for the config-aware strategy.
const (
	DefaultMetadataFile = "config.ini"

	iniComment = ";"
)

// DefaultMetadataKeys are the run-identifying keys extracted by default.
var DefaultMetadataKeys = []string{"benchmark", "seed"}

// Strategy decides which run-identifying metadata accompanies each file's
// row in the output table.
type Strategy interface {
	// Name identifies the strategy in logs and configuration.
	Name() string

	// Columns returns the metadata column names this strategy appends
	// after the path column.
	Columns() []string

	// Metadata returns the metadata values for one statistics file.
	// A missing or unreadable metadata source yields an empty map; the
	// row is kept either way.
	Metadata(statPath string) map[string]string
}

// simpleStrategy extracts no metadata: one plain extraction pass per file.
type simpleStrategy struct{}

// NewSimpleStrategy returns the plain one-pass strategy.
func NewSimpleStrategy() Strategy { return simpleStrategy{} }

func (simpleStrategy) Name() string { return "simple" }

func (simpleStrategy) Columns() []string { return nil }

func (simpleStrategy) Metadata(string) map[string]string { return nil }

// configAwareStrategy additionally reads a metadata file adjacent to each
// statistics file and appends selected keys to the row.
type configAwareStrategy struct {
	file   string
	keys   []string
	logger *slog.Logger
}

// ConfigAwareConfig configures the config-aware strategy.
type ConfigAwareConfig struct {
	// MetadataFile is the file name looked up next to each statistics
	// file. Defaults to "config.ini".
	MetadataFile string

	// Keys are the metadata keys appended to each row. Defaults to
	// benchmark and seed.
	Keys []string

	Logger *slog.Logger
}

// NewConfigAwareStrategy returns the metadata-extracting strategy.
func NewConfigAwareStrategy(cfg ConfigAwareConfig) Strategy {
	if cfg.MetadataFile == "" {
		cfg.MetadataFile = DefaultMetadataFile
	}

	if len(cfg.Keys) == 0 {
		cfg.Keys = DefaultMetadataKeys
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &configAwareStrategy{file: cfg.MetadataFile, keys: cfg.Keys, logger: cfg.Logger}
}

func (s *configAwareStrategy) Name() string { return "config-aware" }

func (s *configAwareStrategy) Columns() []string { return s.keys }

func (s *configAwareStrategy) Metadata(statPath string) map[string]string {
	metaPath := filepath.Join(filepath.Dir(statPath), s.file)

	values, err := readFlatINI(metaPath)
	if err != nil {
		s.logger.Warn("metadata file unreadable, keeping row without metadata",
			"file", metaPath, "error", err)

		return nil
	}

	selected := make(map[string]string, len(s.keys))

	for _, key := range s.keys {
		val, ok := values[key]
		if !ok {
			continue
		}

		selected[key] = val
	}

	return selected
}

// readFlatINI reads key=value lines, ignoring section headers, comments,
// and blank lines. Later occurrences of a key win.
func readFlatINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, iniComment) || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			continue
		}

		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		values[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return values, nil
}
