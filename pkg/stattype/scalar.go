package stattype

import "math"

// scalarStat accumulates a single numeric value, one sample per simulation
// dump. More samples than the repeat count is a caller error.
type scalarStat struct {
	name    string
	repeat  int
	samples []float64
	reduced float64
}

func newScalar(cfg Config) *scalarStat {
	return &scalarStat{
		name:    cfg.Name,
		repeat:  repeatOf(cfg),
		reduced: math.NaN(),
	}
}

func (s *scalarStat) Name() string { return s.name }

func (s *scalarStat) Kind() Kind { return Scalar }

func (s *scalarStat) Accumulate(_, raw string) error {
	if len(s.samples) >= s.repeat {
		return ErrScalarOverflow
	}

	val, err := parseValue(raw)
	if err != nil {
		return err
	}

	s.samples = append(s.samples, val)

	return nil
}

// Balance is a no-op: scalars carry no entries.
func (s *scalarStat) Balance(_ []string) {}

func (s *scalarStat) Reduce() {
	if len(s.samples) == 0 {
		s.reduced = math.NaN()

		return
	}

	s.reduced = mean(s.samples)
}

func (s *scalarStat) Columns() []Column {
	return []Column{{Name: s.name, Value: formatValue(s.reduced)}}
}
