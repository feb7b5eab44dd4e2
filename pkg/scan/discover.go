package scan

import (
	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// DiscoverFile reads one statistics file and builds its variable records.
// Entry labels keep their in-file order; bucket bounds widen as labels are
// observed. The file's own duplicate emissions (multiple dump blocks) do not
// duplicate entries.
func DiscoverFile(path string) ([]Variable, error) {
	entries, err := statfile.Read(path)
	if err != nil {
		return nil, err
	}

	builder := newDiscovery()

	for _, entry := range entries {
		builder.observe(entry)
	}

	return builder.variables(), nil
}

// discovery accumulates variable records for one file.
type discovery struct {
	order   []string
	byName  map[string]*Variable
	entries map[string]map[string]bool
	bounded map[string]bool
}

func newDiscovery() *discovery {
	return &discovery{
		byName:  make(map[string]*Variable),
		entries: make(map[string]map[string]bool),
		bounded: make(map[string]bool),
	}
}

func (d *discovery) observe(entry statfile.Entry) {
	record := d.record(entry.Base, kindOf(entry.Class))

	if entry.Label == "" || entry.Class == statfile.ClassSummary {
		return
	}

	if d.entries[entry.Base][entry.Label] {
		return
	}

	d.entries[entry.Base][entry.Label] = true
	record.Entries = append(record.Entries, entry.Label)

	if low, high, ok := statfile.LabelBounds(entry.Label); ok {
		if !d.bounded[entry.Base] || low < record.Minimum {
			record.Minimum = low
		}

		if !d.bounded[entry.Base] || high > record.Maximum {
			record.Maximum = high
		}

		d.bounded[entry.Base] = true
	}
}

// record returns the variable record for base, creating it with the given
// kind on first sight. The first observed class wins; later lines for the
// same base only contribute entries.
func (d *discovery) record(base string, kind stattype.Kind) *Variable {
	if existing, ok := d.byName[base]; ok {
		return existing
	}

	record := &Variable{Name: base, Kind: kind}

	d.order = append(d.order, base)
	d.byName[base] = record
	d.entries[base] = make(map[string]bool)

	return record
}

func (d *discovery) variables() []Variable {
	vars := make([]Variable, 0, len(d.order))
	for _, name := range d.order {
		vars = append(vars, *d.byName[name])
	}

	return vars
}

// kindOf maps a line classification to the variable kind it implies.
// Summary lines imply an entry-bearing variable; when they are the first
// sight of a base name the variable is a statistics-only Distribution.
func kindOf(class statfile.Class) stattype.Kind {
	switch class {
	case statfile.ClassScalar:
		return stattype.Scalar
	case statfile.ClassConfiguration:
		return stattype.Configuration
	case statfile.ClassVector:
		return stattype.Vector
	case statfile.ClassHistogram:
		return stattype.Histogram
	case statfile.ClassDistribution, statfile.ClassSummary:
		return stattype.Distribution
	default:
		return stattype.Scalar
	}
}
