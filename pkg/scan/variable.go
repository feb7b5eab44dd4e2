// Package scan discovers which statistics exist across a set of simulator
// output files: one discovery pass per file on a bounded work pool, then a
// deterministic cross-file merge of the per-file results.
package scan

import (
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// Variable describes one discovered statistic. Records are merged across
// files by union of entries and widening of bounds; after merge a record is
// never mutated, a new one replaces the old.
type Variable struct {
	// Name is the dotted variable name, or the placeholder pattern for a
	// consolidated pattern variable.
	Name string `yaml:"name" json:"name"`

	// Kind is the statistic's type tag.
	Kind stattype.Kind `yaml:"type" json:"type"`

	// Entries are the ordered sub-entry labels, empty for scalars.
	Entries []string `yaml:"entries,omitempty" json:"entries,omitempty"`

	// Minimum and Maximum bound the observed bucket labels. Meaningful only
	// for Distribution and Histogram kinds.
	Minimum float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`

	// PatternIndices holds the sorted concrete index tokens when this record
	// represents a consolidated pattern rather than one concrete variable.
	PatternIndices []string `yaml:"pattern_indices,omitempty" json:"pattern_indices,omitempty"`
}

// IsPattern reports whether the record represents a consolidated pattern.
func (v Variable) IsPattern() bool {
	return len(v.PatternIndices) > 0
}

// merge combines two records for the same variable name: entries become the
// stable set union, bounds widen. Membership of the result is independent of
// argument order.
func merge(a, b Variable) Variable {
	merged := a

	seen := make(map[string]bool, len(a.Entries))
	for _, entry := range a.Entries {
		seen[entry] = true
	}

	for _, entry := range b.Entries {
		if seen[entry] {
			continue
		}

		seen[entry] = true
		merged.Entries = append(merged.Entries, entry)
	}

	if b.Minimum < merged.Minimum {
		merged.Minimum = b.Minimum
	}

	if b.Maximum > merged.Maximum {
		merged.Maximum = b.Maximum
	}

	return merged
}

// Aggregate merges per-file discovery results into one variable list.
// A variable seen in several files gets the union of its entries and the
// widened bounds; a variable present in only one file is kept as-is.
// Output order follows first appearance across the input slices.
func Aggregate(results [][]Variable) []Variable {
	var order []string

	byName := make(map[string]Variable)

	for _, fileVars := range results {
		for _, fileVar := range fileVars {
			existing, ok := byName[fileVar.Name]
			if !ok {
				order = append(order, fileVar.Name)
				byName[fileVar.Name] = fileVar

				continue
			}

			byName[fileVar.Name] = merge(existing, fileVar)
		}
	}

	aggregated := make([]Variable, 0, len(order))
	for _, name := range order {
		aggregated = append(aggregated, byName[name])
	}

	return aggregated
}
