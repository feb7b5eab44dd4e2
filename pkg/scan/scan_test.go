package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/pkg/scan"
	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
	"github.com/Sumatoshi-tech/statfang/pkg/workpool"
)

const statsFileName = "stats.txt"

func writeStats(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDiscoverFile_BuildsVariables(t *testing.T) {
	t.Parallel()

	content := `sim_seconds 0.5
system.cpu_type DerivO3CPU
cpu.op_class::IntAlu 19
cpu.op_class::MemRead 7
mem.lat::underflows 0
mem.lat::2 12
mem.lat::9 3
mem.lat::mean 4.1
lat_hist::0-15 44
lat_hist::16-31 7
`

	path := writeStats(t, t.TempDir(), statsFileName, content)

	vars, err := scan.DiscoverFile(path)
	require.NoError(t, err)
	require.Len(t, vars, 5)

	byName := make(map[string]scan.Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	assert.Equal(t, stattype.Scalar, byName["sim_seconds"].Kind)
	assert.Equal(t, stattype.Configuration, byName["system.cpu_type"].Kind)

	opClass := byName["cpu.op_class"]
	assert.Equal(t, stattype.Vector, opClass.Kind)
	assert.Equal(t, []string{"IntAlu", "MemRead"}, opClass.Entries)

	memLat := byName["mem.lat"]
	assert.Equal(t, stattype.Distribution, memLat.Kind)
	assert.Equal(t, []string{"underflows", "2", "9"}, memLat.Entries)
	assert.InDelta(t, 2, memLat.Minimum, 0)
	assert.InDelta(t, 9, memLat.Maximum, 0)

	latHist := byName["lat_hist"]
	assert.Equal(t, stattype.Histogram, latHist.Kind)
	assert.InDelta(t, 0, latHist.Minimum, 0)
	assert.InDelta(t, 31, latHist.Maximum, 0)
}

func TestDiscoverFile_SummaryOnlyIsDistribution(t *testing.T) {
	t.Parallel()

	content := `mem.lat::mean 4.1
mem.lat::stdev 0.3
`

	path := writeStats(t, t.TempDir(), statsFileName, content)

	vars, err := scan.DiscoverFile(path)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, stattype.Distribution, vars[0].Kind)
	assert.Empty(t, vars[0].Entries)
}

func TestAggregate_UnionIsOrderIndependent(t *testing.T) {
	t.Parallel()

	first := []scan.Variable{{
		Name:    "cpu.op_class",
		Kind:    stattype.Vector,
		Entries: []string{"IntAlu", "MemRead"},
	}}
	second := []scan.Variable{{
		Name:    "cpu.op_class",
		Kind:    stattype.Vector,
		Entries: []string{"MemRead", "MemWrite"},
	}}

	forward := scan.Aggregate([][]scan.Variable{first, second})
	backward := scan.Aggregate([][]scan.Variable{second, first})

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.ElementsMatch(t, forward[0].Entries, backward[0].Entries)
	assert.ElementsMatch(t, []string{"IntAlu", "MemRead", "MemWrite"}, forward[0].Entries)
}

func TestAggregate_WidensBounds(t *testing.T) {
	t.Parallel()

	first := []scan.Variable{{
		Name: "mem.lat", Kind: stattype.Distribution,
		Entries: []string{"2"}, Minimum: 2, Maximum: 2,
	}}
	second := []scan.Variable{{
		Name: "mem.lat", Kind: stattype.Distribution,
		Entries: []string{"9"}, Minimum: 9, Maximum: 9,
	}}

	merged := scan.Aggregate([][]scan.Variable{first, second})
	require.Len(t, merged, 1)
	assert.InDelta(t, 2, merged[0].Minimum, 0)
	assert.InDelta(t, 9, merged[0].Maximum, 0)
}

func TestAggregate_SingleFileVariableKeptAsIs(t *testing.T) {
	t.Parallel()

	first := []scan.Variable{{Name: "cpu0.cycles", Kind: stattype.Scalar}}
	second := []scan.Variable{
		{Name: "cpu0.cycles", Kind: stattype.Scalar},
		{Name: "cpu1.cycles", Kind: stattype.Scalar},
	}

	merged := scan.Aggregate([][]scan.Variable{first, second})
	require.Len(t, merged, 2)
	assert.Equal(t, "cpu0.cycles", merged[0].Name)
	assert.Equal(t, "cpu1.cycles", merged[1].Name)
}

func TestService_SubmitScanAndCollect(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeStats(t, root, filepath.Join("run_a", statsFileName), "sim_seconds 0.5\n")
	writeStats(t, root, filepath.Join("run_b", statsFileName), "sim_seconds 0.7\ncpu1.cycles 99\n")
	writeStats(t, root, filepath.Join("run_c", statsFileName), "") // empty file fails discovery

	service := scan.NewService(scan.ServiceConfig{Pool: workpool.New[[]scan.Variable](2)})

	handles, err := service.SubmitScan(context.Background(), root, statsFileName, 0)
	require.NoError(t, err)
	require.Len(t, handles, 3)

	results, failed := service.Collect(context.Background(), handles)
	assert.Equal(t, 1, failed)
	require.Len(t, results, 2)

	merged := scan.Aggregate(results)
	assert.Len(t, merged, 2)
}

func TestService_SubmitScanFailsFastOnMissingRoot(t *testing.T) {
	t.Parallel()

	service := scan.NewService(scan.ServiceConfig{Pool: workpool.New[[]scan.Variable](1)})

	_, err := service.SubmitScan(context.Background(), filepath.Join(t.TempDir(), "absent"), statsFileName, 0)
	require.Error(t, err)
}

func TestListFiles_HonorsLimit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeStats(t, root, filepath.Join("run_a", statsFileName), "x 1\n")
	writeStats(t, root, filepath.Join("run_b", statsFileName), "x 1\n")
	writeStats(t, root, filepath.Join("run_c", statsFileName), "x 1\n")

	paths, err := scan.ListFiles(root, statsFileName, 2)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestManifest_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vars.yaml")

	manifest := scan.Manifest{
		Root:      "/runs",
		Pattern:   statsFileName,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Variables: []scan.Variable{
			{Name: "sim_seconds", Kind: stattype.Scalar},
			{Name: `cpu\d+.cycles`, Kind: stattype.Vector, PatternIndices: []string{"0", "1"}},
		},
	}

	require.NoError(t, scan.WriteManifest(path, manifest))

	loaded, err := scan.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, manifest.Variables, loaded.Variables)
	assert.Equal(t, manifest.Root, loaded.Root)
}
