package worker_test

import (
	"bufio"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/internal/worker"
	"github.com/Sumatoshi-tech/statfang/pkg/proto"
	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
)

const sampleDump = `---------- Begin Simulation Statistics ----------
sim_ticks                                    500000 # Number of ticks simulated
system.cpu0.cycles                             1200 # CPU cycles
system.cpu0.issue_dist::mean                 2.5000 # issue distribution
system.cpu0.issue_dist::0-3                      14 # issue distribution
config.out_dir                 /tmp/run/output # output directory
---------- End Simulation Statistics ----------
`

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stats.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleDump), 0o600))

	return path
}

func serve(t *testing.T, input string) []string {
	t.Helper()

	var out bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&out, nil))

	var protoOut bytes.Buffer

	err := worker.Serve(strings.NewReader(input), &protoOut, logger)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(protoOut.String(), "\n"), "\n")

	return lines
}

func TestServe_AnnouncesReadyOnEmptyInput(t *testing.T) {
	t.Parallel()

	lines := serve(t, "")

	assert.Equal(t, []string{proto.TokenReady}, lines)
}

func TestServe_AnswersPingAndShutdown(t *testing.T) {
	t.Parallel()

	lines := serve(t, proto.TokenPing+"\n"+proto.TokenShutdown+"\n")

	assert.Equal(t, []string{proto.TokenReady, proto.TokenPong}, lines)
}

func TestServe_ExtractsRequestedKeys(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	req := proto.Request{Path: path, Keys: []string{"system.cpu0.issue_dist"}}

	lines := serve(t, req.Encode()+"\n")
	require.Len(t, lines, 4)

	assert.Equal(t, proto.TokenReady, lines[0])

	first, err := proto.DecodeLine(lines[1])
	require.NoError(t, err)
	assert.Equal(t, statfile.ClassSummary, first.Class)
	assert.Equal(t, "system.cpu0.issue_dist::mean", first.ID)

	second, err := proto.DecodeLine(lines[2])
	require.NoError(t, err)
	assert.Equal(t, statfile.ClassHistogram, second.Class)
	assert.Equal(t, "14", second.Value)

	assert.Equal(t, "END|2", lines[3])
}

func TestServe_EmptyKeyListSelectsEverything(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	req := proto.Request{Path: path}

	lines := serve(t, req.Encode()+"\n")

	// READY, five payload lines, END.
	require.Len(t, lines, 7)
	assert.Equal(t, "END|5", lines[6])

	last, err := proto.DecodeLine(lines[5])
	require.NoError(t, err)
	assert.Equal(t, statfile.ClassConfiguration, last.Class)
	assert.Equal(t, "/tmp/run/output", last.Value)
}

func TestServe_UnreadableFileReportsInlineError(t *testing.T) {
	t.Parallel()

	req := proto.Request{Path: filepath.Join(t.TempDir(), "absent.txt"), Keys: []string{"sim_ticks"}}

	lines := serve(t, req.Encode()+"\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[1], "ERR|"))
	assert.Equal(t, "END|1", lines[2])
}

func TestServe_MalformedRequestReportsInlineError(t *testing.T) {
	t.Parallel()

	lines := serve(t, "NONSENSE|x\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[1], "ERR|"))
	assert.Equal(t, "END|1", lines[2])
}

func TestServe_ResponsesDecodeWithReadResponse(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	req := proto.Request{Path: path, Keys: []string{"sim_ticks"}}

	var protoOut bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	require.NoError(t, worker.Serve(strings.NewReader(req.Encode()+"\n"), &protoOut, logger))

	reader := bufio.NewReader(&protoOut)

	ready, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, proto.TokenReady, strings.TrimRight(ready, "\n"))

	resp, err := proto.ReadResponse(reader)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "sim_ticks", resp.Lines[0].ID)
	assert.Equal(t, "500000", resp.Lines[0].Value)
	assert.Empty(t, resp.Errs)
}
