package stattype

import "math"

// Summary entry labels emitted by the simulator for entry-bearing variables.
const (
	SummaryMean     = "mean"
	SummaryStdev    = "stdev"
	SummarySamples  = "samples"
	SummaryTotal    = "total"
	SummaryMinValue = "min_value"
	SummaryMaxValue = "max_value"
	SummaryGeoMean  = "gmean"
)

// Serialized summary column suffixes.
const (
	colMean    = "mean"
	colMinimum = "minimum"
	colMaximum = "maximum"
)

// summaryLabels is the recognized set of summary entry labels.
var summaryLabels = map[string]bool{
	SummaryMean:     true,
	SummaryStdev:    true,
	SummarySamples:  true,
	SummaryTotal:    true,
	SummaryMinValue: true,
	SummaryMaxValue: true,
	SummaryGeoMean:  true,
}

// IsSummaryLabel reports whether an entry label denotes a derived summary
// value rather than a raw bucket or vector entry.
func IsSummaryLabel(entry string) bool {
	return summaryLabels[entry]
}

// distributionStat accumulates bucketed samples plus the simulator's derived
// summary values. Serialization always emits mean/minimum/maximum; raw bucket
// columns are emitted only when the request did not set StatisticsOnly.
type distributionStat struct {
	name           string
	statisticsOnly bool

	buckets       []string
	bucketSamples map[string][]float64
	summary       map[string][]float64

	reducedBuckets map[string]float64
	reducedSummary map[string]float64
}

func newDistribution(cfg Config) *distributionStat {
	return &distributionStat{
		name:           cfg.Name,
		statisticsOnly: cfg.StatisticsOnly,
		bucketSamples:  make(map[string][]float64),
		summary:        make(map[string][]float64),
	}
}

func (d *distributionStat) Name() string { return d.name }

func (d *distributionStat) Kind() Kind { return Distribution }

func (d *distributionStat) Accumulate(entry, raw string) error {
	val, err := parseValue(raw)
	if err != nil {
		return err
	}

	if IsSummaryLabel(entry) {
		d.summary[entry] = append(d.summary[entry], val)

		return nil
	}

	if _, seen := d.bucketSamples[entry]; !seen {
		d.buckets = append(d.buckets, entry)
	}

	d.bucketSamples[entry] = append(d.bucketSamples[entry], val)

	return nil
}

// Balance pads unobserved bucket labels with a neutral zero sample.
// Summary slots are never padded; an absent summary serializes as NaN.
func (d *distributionStat) Balance(entries []string) {
	for _, entry := range entries {
		if IsSummaryLabel(entry) {
			continue
		}

		if _, seen := d.bucketSamples[entry]; seen {
			continue
		}

		d.buckets = append(d.buckets, entry)
		d.bucketSamples[entry] = []float64{0}
	}
}

func (d *distributionStat) Reduce() {
	d.reducedBuckets = make(map[string]float64, len(d.buckets))
	for entry, samples := range d.bucketSamples {
		d.reducedBuckets[entry] = mean(samples)
	}

	d.reducedSummary = make(map[string]float64, len(d.summary))
	for label, samples := range d.summary {
		d.reducedSummary[label] = mean(samples)
	}
}

func (d *distributionStat) Columns() []Column {
	cols := []Column{
		{Name: d.name + EntrySeparator + colMean, Value: formatValue(d.summaryValue(SummaryMean))},
		{Name: d.name + EntrySeparator + colMinimum, Value: formatValue(d.summaryValue(SummaryMinValue))},
		{Name: d.name + EntrySeparator + colMaximum, Value: formatValue(d.summaryValue(SummaryMaxValue))},
	}

	if d.statisticsOnly {
		return cols
	}

	for _, bucket := range d.buckets {
		cols = append(cols, Column{
			Name:  d.name + EntrySeparator + bucket,
			Value: formatValue(d.reducedBuckets[bucket]),
		})
	}

	return cols
}

func (d *distributionStat) summaryValue(label string) float64 {
	val, ok := d.reducedSummary[label]
	if !ok {
		return math.NaN()
	}

	return val
}
