// Package stattype implements the closed set of value-shape handlers for
// simulator statistics: Scalar, Vector, Distribution, Histogram, and
// Configuration. Each kind accumulates raw samples line by line, balances
// missing entries against a target entry set, reduces duplicate samples by
// arithmetic mean, and serializes into named output columns.
package stattype

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the type tag of a statistic.
type Kind string

// The closed set of statistic kinds. The set is fixed by the input format,
// not user-extensible at runtime.
const (
	Scalar        Kind = "Scalar"
	Vector        Kind = "Vector"
	Distribution  Kind = "Distribution"
	Histogram     Kind = "Histogram"
	Configuration Kind = "Configuration"
)

// EntrySeparator joins a variable name with an entry label in serialized
// column names, e.g. "cpu.cycles..3".
const EntrySeparator = ".."

// Sentinel errors for accumulation and construction.
var (
	// ErrUnknownKind indicates a kind tag outside the closed set.
	ErrUnknownKind = errors.New("unknown statistic kind")
	// ErrScalarOverflow indicates more samples than the configured repeat count.
	ErrScalarOverflow = errors.New("scalar received more samples than its repeat count")
	// ErrBadValue indicates a raw value that does not parse as a number.
	ErrBadValue = errors.New("value is not numeric")
)

// Config is a caller-supplied request descriptor for one statistic.
type Config struct {
	// Name is the dotted variable name, or a regex when IsRegex is set.
	Name string `json:"name" yaml:"name"`

	// Kind is the statistic's type tag.
	Kind Kind `json:"type" yaml:"type"`

	// Repeat is the expected number of samples per logical entry
	// (one per simulation dump). Zero means one.
	Repeat int `json:"repeat,omitempty" yaml:"repeat,omitempty"`

	// Params carries per-kind extras, e.g. "on_empty" for Configuration.
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`

	// StatisticsOnly requests only derived summary values, not raw buckets.
	// Meaningful for Distribution.
	StatisticsOnly bool `json:"statistics_only,omitempty" yaml:"statistics_only,omitempty"`

	// IsRegex marks Name as a pattern to expand against scanned variables.
	IsRegex bool `json:"is_regex,omitempty" yaml:"is_regex,omitempty"`
}

// Column is one serialized output cell: a column name and its value.
type Column struct {
	Name  string
	Value string
}

// Stat is the runtime value-accumulator for one concrete variable within one
// file-parsing job. Implementations are not safe for concurrent use; each
// instance belongs to exactly one (file, variable) pair.
type Stat interface {
	// Name returns the variable name this instance accumulates for.
	Name() string

	// Kind returns the type tag.
	Kind() Kind

	// Accumulate records one observed raw value for the given entry label.
	// The label is empty for Scalar and Configuration.
	Accumulate(entry, raw string) error

	// Balance pads the instance with neutral values for any of the given
	// entry labels it has not observed, so every instance in a batch shares
	// the same entry set before reduction.
	Balance(entries []string)

	// Reduce collapses duplicate samples per entry via arithmetic mean.
	// Must be called after Balance and before Columns.
	Reduce()

	// Columns returns the serialized column/value pairs in stable order.
	Columns() []Column
}

// New constructs a Stat for the given request descriptor.
func New(cfg Config) (Stat, error) {
	switch cfg.Kind {
	case Scalar:
		return newScalar(cfg), nil
	case Vector:
		return newVector(cfg), nil
	case Distribution:
		return newDistribution(cfg), nil
	case Histogram:
		return newHistogram(cfg), nil
	case Configuration:
		return newConfiguration(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// ColumnNames returns the serialized column names a variable with the given
// descriptor and entry set will produce, without accumulating any values.
// Used to compute the output table header before results arrive.
func ColumnNames(cfg Config, entries []string) ([]string, error) {
	stat, err := New(cfg)
	if err != nil {
		return nil, err
	}

	stat.Balance(entries)
	stat.Reduce()

	cols := stat.Columns()
	names := make([]string, len(cols))

	for idx, col := range cols {
		names[idx] = col.Name
	}

	return names, nil
}

// parseValue parses a raw worker value. The simulator emits "nan" and "inf"
// tokens for undefined statistics; strconv accepts both.
func parseValue(raw string) (float64, error) {
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadValue, raw)
	}

	return val, nil
}

// formatValue renders a numeric cell for the output table.
func formatValue(val float64) string {
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// mean returns the arithmetic mean of samples, or 0 for an empty slice.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}

	return sum / float64(len(samples))
}

// repeatOf normalizes a descriptor's repeat count.
func repeatOf(cfg Config) int {
	if cfg.Repeat <= 0 {
		return 1
	}

	return cfg.Repeat
}
