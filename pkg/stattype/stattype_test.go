package stattype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

func mustStat(t *testing.T, cfg stattype.Config) stattype.Stat {
	t.Helper()

	stat, err := stattype.New(cfg)
	require.NoError(t, err)

	return stat
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := stattype.New(stattype.Config{Name: "x", Kind: "Matrix"})
	require.ErrorIs(t, err, stattype.ErrUnknownKind)
}

func TestScalar_SingleSample(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "sim_seconds", Kind: stattype.Scalar})

	require.NoError(t, stat.Accumulate("", "0.25"))
	stat.Balance(nil)
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 1)
	assert.Equal(t, "sim_seconds", cols[0].Name)
	assert.Equal(t, "0.25", cols[0].Value)
}

func TestScalar_OverflowBeyondRepeat(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "sim_seconds", Kind: stattype.Scalar})

	require.NoError(t, stat.Accumulate("", "1"))
	require.ErrorIs(t, stat.Accumulate("", "2"), stattype.ErrScalarOverflow)
}

func TestScalar_RepeatAverages(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "ipc", Kind: stattype.Scalar, Repeat: 2})

	require.NoError(t, stat.Accumulate("", "1.0"))
	require.NoError(t, stat.Accumulate("", "3.0"))
	stat.Reduce()

	cols := stat.Columns()
	assert.Equal(t, "2", cols[0].Value)
}

func TestScalar_NoSamplesSerializesNaN(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "ipc", Kind: stattype.Scalar})

	stat.Reduce()

	cols := stat.Columns()
	assert.Equal(t, "NaN", cols[0].Value)
}

func TestScalar_RejectsNonNumeric(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "ipc", Kind: stattype.Scalar})

	require.ErrorIs(t, stat.Accumulate("", "fast"), stattype.ErrBadValue)
}

func TestVector_BalanceReduceRoundTrip(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "cpu.cycles", Kind: stattype.Vector})

	require.NoError(t, stat.Accumulate("a", "1"))
	require.NoError(t, stat.Accumulate("b", "2"))

	stat.Balance([]string{"a", "b", "c"})
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, "cpu.cycles..a", cols[0].Name)
	assert.Equal(t, "1", cols[0].Value)
	assert.Equal(t, "cpu.cycles..b", cols[1].Name)
	assert.Equal(t, "2", cols[1].Value)
	assert.Equal(t, "cpu.cycles..c", cols[2].Name)
	assert.Equal(t, "0", cols[2].Value)
}

func TestVector_DuplicateSamplesReduceToMean(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "socket.power", Kind: stattype.Vector})

	// Repeated emission for the same entry, once per hardware thread.
	require.NoError(t, stat.Accumulate("0", "10"))
	require.NoError(t, stat.Accumulate("0", "20"))
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 1)
	assert.Equal(t, "15", cols[0].Value)
}

func TestHistogram_KeepsBucketOrder(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "lat_hist", Kind: stattype.Histogram})

	require.NoError(t, stat.Accumulate("0-15", "4"))
	require.NoError(t, stat.Accumulate("16-31", "7"))
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "lat_hist..0-15", cols[0].Name)
	assert.Equal(t, "lat_hist..16-31", cols[1].Name)
	assert.Equal(t, stattype.Histogram, stat.Kind())
}

func TestDistribution_SummaryAndBuckets(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "mem.lat", Kind: stattype.Distribution})

	require.NoError(t, stat.Accumulate("1", "5"))
	require.NoError(t, stat.Accumulate("2", "9"))
	require.NoError(t, stat.Accumulate(stattype.SummaryMean, "1.5"))
	require.NoError(t, stat.Accumulate(stattype.SummaryMinValue, "1"))
	require.NoError(t, stat.Accumulate(stattype.SummaryMaxValue, "2"))
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, "mem.lat..mean", cols[0].Name)
	assert.Equal(t, "1.5", cols[0].Value)
	assert.Equal(t, "mem.lat..minimum", cols[1].Name)
	assert.Equal(t, "mem.lat..maximum", cols[2].Name)
	assert.Equal(t, "mem.lat..1", cols[3].Name)
	assert.Equal(t, "mem.lat..2", cols[4].Name)
}

func TestDistribution_StatisticsOnlySkipsBuckets(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{
		Name:           "mem.lat",
		Kind:           stattype.Distribution,
		StatisticsOnly: true,
	})

	require.NoError(t, stat.Accumulate("1", "5"))
	require.NoError(t, stat.Accumulate(stattype.SummaryMean, "1.5"))
	stat.Reduce()

	cols := stat.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, "mem.lat..mean", cols[0].Name)
}

func TestDistribution_MissingSummaryIsNaN(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "mem.lat", Kind: stattype.Distribution, StatisticsOnly: true})

	stat.Reduce()

	cols := stat.Columns()
	assert.Equal(t, "NaN", cols[0].Value)
	assert.Equal(t, "NaN", cols[1].Value)
	assert.Equal(t, "NaN", cols[2].Value)
}

func TestConfiguration_FirstNonEmptyWins(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{Name: "system.cpu_type", Kind: stattype.Configuration})

	require.NoError(t, stat.Accumulate("", ""))
	require.NoError(t, stat.Accumulate("", "DerivO3CPU"))
	require.NoError(t, stat.Accumulate("", "AtomicSimpleCPU"))
	stat.Reduce()

	cols := stat.Columns()
	assert.Equal(t, "DerivO3CPU", cols[0].Value)
}

func TestConfiguration_OnEmptyDefault(t *testing.T) {
	t.Parallel()

	stat := mustStat(t, stattype.Config{
		Name:   "system.cpu_type",
		Kind:   stattype.Configuration,
		Params: map[string]string{stattype.ParamOnEmpty: "unknown"},
	})

	stat.Reduce()

	cols := stat.Columns()
	assert.Equal(t, "unknown", cols[0].Value)
}

func TestColumnNames_MatchesSerialization(t *testing.T) {
	t.Parallel()

	names, err := stattype.ColumnNames(
		stattype.Config{Name: "cpu.cycles", Kind: stattype.Vector},
		[]string{"0", "1"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu.cycles..0", "cpu.cycles..1"}, names)
}
