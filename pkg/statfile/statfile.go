// Package statfile reads and classifies simulator statistics dump files.
// A file holds one or more dump blocks of `name value [# comment]` lines;
// entry-bearing variables use a `base::entry` name. Both the scanner and the
// worker binary build on this package.
package statfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// Class tags one classified data line. The set extends the statistic kinds
// with Summary, which marks derived values (mean, stdev, ...) attached to an
// entry-bearing variable rather than a kind of its own.
type Class string

// Line classes.
const (
	ClassScalar        Class = "Scalar"
	ClassVector        Class = "Vector"
	ClassDistribution  Class = "Distribution"
	ClassHistogram     Class = "Histogram"
	ClassSummary       Class = "Summary"
	ClassConfiguration Class = "Configuration"
)

// ErrMissingOrEmpty indicates the statistics file does not exist or holds no
// data lines. Callers skip the file and continue the batch.
var ErrMissingOrEmpty = errors.New("statistics file missing or empty")

// EntryMark separates a variable base name from its entry label.
const EntryMark = "::"

const commentMark = "#"

// dumpDelimiterPrefix starts the "Begin/End Simulation Statistics" lines
// that frame each dump block.
const dumpDelimiterPrefix = "----------"

var (
	bucketRangeRe = regexp.MustCompile(`^(-?\d+)-(-?\d+)$`)
	bucketOpenRe  = regexp.MustCompile(`^(\d+)\+$`)
	digitsRe      = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// Distribution boundary labels.
const (
	labelUnderflows = "underflows"
	labelOverflows  = "overflows"
)

// Entry is one classified data line.
type Entry struct {
	// Class is the line's value-shape classification.
	Class Class

	// Base is the variable name without the entry label.
	Base string

	// Label is the entry label, empty for Scalar and Configuration lines.
	Label string

	// Value is the raw value token.
	Value string
}

// ID returns the full variable identifier, base plus entry label.
func (e Entry) ID() string {
	if e.Label == "" {
		return e.Base
	}

	return e.Base + EntryMark + e.Label
}

// Read parses all dump blocks of the file at path into classified entries.
// A missing file, an unreadable file, or a file with zero data lines yields
// ErrMissingOrEmpty.
func Read(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingOrEmpty, path)
	}
	defer file.Close()

	var entries []Entry

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		entry, ok := classifyLine(scanner.Text())
		if !ok {
			continue
		}

		entries = append(entries, entry)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("read %s: %w", path, scanErr)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingOrEmpty, path)
	}

	return entries, nil
}

// classifyLine parses one raw line. Returns false for delimiters, blanks,
// and comment-only lines.
func classifyLine(raw string) (Entry, bool) {
	line := raw
	if idx := strings.Index(line, commentMark); idx >= 0 {
		line = line[:idx]
	}

	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(raw, dumpDelimiterPrefix) {
		return Entry{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Entry{}, false
	}

	name, value := fields[0], fields[1]

	base, label, hasLabel := strings.Cut(name, EntryMark)
	if !hasLabel {
		if isNumeric(value) {
			return Entry{Class: ClassScalar, Base: base, Value: value}, true
		}

		return Entry{Class: ClassConfiguration, Base: base, Value: value}, true
	}

	return Entry{Class: classifyLabel(label), Base: base, Label: label, Value: value}, true
}

// classifyLabel decides the shape of an entry-bearing line from its label:
// derived summary tokens, bucket ranges and the trailing open-ended bucket
// (histogram), numeric sample values and boundary counters (distribution),
// or named vector entries.
func classifyLabel(label string) Class {
	switch {
	case stattype.IsSummaryLabel(label):
		return ClassSummary
	case bucketRangeRe.MatchString(label), bucketOpenRe.MatchString(label):
		return ClassHistogram
	case digitsRe.MatchString(label), label == labelUnderflows, label == labelOverflows:
		return ClassDistribution
	default:
		return ClassVector
	}
}

func isNumeric(value string) bool {
	_, err := strconv.ParseFloat(value, 64)

	return err == nil
}

// LabelBounds extracts the numeric bounds of a bucket or sample label.
// For a range label like "16-31" it returns both ends; for an open-ended
// bucket like "1024+" the lower bound twice; for a plain numeric label the
// value twice. Boundary and non-numeric labels report ok=false.
func LabelBounds(label string) (low, high float64, ok bool) {
	if match := bucketRangeRe.FindStringSubmatch(label); match != nil {
		lowVal, lowErr := strconv.ParseFloat(match[1], 64)
		highVal, highErr := strconv.ParseFloat(match[2], 64)

		if lowErr != nil || highErr != nil {
			return 0, 0, false
		}

		return lowVal, highVal, true
	}

	if match := bucketOpenRe.FindStringSubmatch(label); match != nil {
		lowVal, lowErr := strconv.ParseFloat(match[1], 64)
		if lowErr != nil {
			return 0, 0, false
		}

		return lowVal, lowVal, true
	}

	val, err := strconv.ParseFloat(label, 64)
	if err != nil {
		return 0, 0, false
	}

	return val, val, true
}
