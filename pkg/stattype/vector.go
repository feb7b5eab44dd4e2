package stattype

// vectorStat accumulates one numeric value per entry label, preserving the
// order in which entries were first observed.
type vectorStat struct {
	name    string
	kind    Kind
	entries []string
	samples map[string][]float64
	reduced map[string]float64
}

func newVector(cfg Config) *vectorStat {
	return &vectorStat{
		name:    cfg.Name,
		kind:    Vector,
		samples: make(map[string][]float64),
	}
}

func (v *vectorStat) Name() string { return v.name }

func (v *vectorStat) Kind() Kind { return v.kind }

func (v *vectorStat) Accumulate(entry, raw string) error {
	val, err := parseValue(raw)
	if err != nil {
		return err
	}

	if _, seen := v.samples[entry]; !seen {
		v.entries = append(v.entries, entry)
	}

	v.samples[entry] = append(v.samples[entry], val)

	return nil
}

// Balance pads every listed-but-unobserved entry with a single neutral zero
// sample. Files from different runs may observe different subsets of dynamic
// entries; after balancing all instances in a batch share the same entry set.
func (v *vectorStat) Balance(entries []string) {
	for _, entry := range entries {
		if _, seen := v.samples[entry]; seen {
			continue
		}

		v.entries = append(v.entries, entry)
		v.samples[entry] = []float64{0}
	}
}

func (v *vectorStat) Reduce() {
	v.reduced = make(map[string]float64, len(v.entries))

	for entry, samples := range v.samples {
		v.reduced[entry] = mean(samples)
	}
}

func (v *vectorStat) Columns() []Column {
	cols := make([]Column, 0, len(v.entries))

	for _, entry := range v.entries {
		cols = append(cols, Column{
			Name:  v.name + EntrySeparator + entry,
			Value: formatValue(v.reduced[entry]),
		})
	}

	return cols
}

// histogramStat shares the vector accumulation model: one numeric value per
// bucket label.
type histogramStat struct {
	vectorStat
}

func newHistogram(cfg Config) *histogramStat {
	h := &histogramStat{
		vectorStat: vectorStat{
			name:    cfg.Name,
			kind:    Histogram,
			samples: make(map[string][]float64),
		},
	}

	return h
}
