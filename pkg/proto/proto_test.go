package proto_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/pkg/proto"
	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
)

func TestRequest_EncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	req := proto.Request{
		Path: "/runs/a/stats.txt",
		Keys: []string{"sim_seconds", "cpu0.cycles"},
	}

	encoded := req.Encode()
	assert.Equal(t, "PARSE|/runs/a/stats.txt|sim_seconds,cpu0.cycles", encoded)

	decoded, err := proto.ParseRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestParseRequest_Malformed(t *testing.T) {
	t.Parallel()

	tests := []string{
		"PARSE|/runs/a/stats.txt",
		"SCAN|/runs/a/stats.txt|x",
		"PARSE||x",
		"",
	}

	for _, raw := range tests {
		_, err := proto.ParseRequest(raw)
		require.ErrorIs(t, err, proto.ErrMalformedLine, raw)
	}
}

func TestDecodeLine_ValueMayContainSeparator(t *testing.T) {
	t.Parallel()

	line, err := proto.DecodeLine("Configuration/system.kernel//usr/share/vmlinux")
	require.NoError(t, err)
	assert.Equal(t, statfile.ClassConfiguration, line.Class)
	assert.Equal(t, "system.kernel", line.ID)
	assert.Equal(t, "/usr/share/vmlinux", line.Value)
}

func TestReadResponse_RoundTripThroughWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	writer := proto.NewWriter(&buf)
	require.NoError(t, writer.WriteLine(proto.Line{Class: statfile.ClassScalar, ID: "sim_seconds", Value: "0.25"}))
	require.NoError(t, writer.WriteLine(proto.Line{Class: statfile.ClassVector, ID: "cpu.op::IntAlu", Value: "19"}))
	require.NoError(t, writer.WriteError("mangled dump block"))
	require.NoError(t, writer.End())

	resp, err := proto.ReadResponse(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "sim_seconds", resp.Lines[0].ID)
	assert.Equal(t, "cpu.op::IntAlu", resp.Lines[1].ID)
	assert.Equal(t, []string{"mangled dump block"}, resp.Errs)
}

func TestReadResponse_CountMismatch(t *testing.T) {
	t.Parallel()

	raw := "Scalar/sim_seconds/0.25\nEND|2\n"

	_, err := proto.ReadResponse(bufio.NewReader(strings.NewReader(raw)))
	require.ErrorIs(t, err, proto.ErrCountMismatch)
}

func TestReadResponse_MalformedPayload(t *testing.T) {
	t.Parallel()

	raw := "Scalar-missing-separators\nEND|1\n"

	_, err := proto.ReadResponse(bufio.NewReader(strings.NewReader(raw)))
	require.ErrorIs(t, err, proto.ErrMalformedLine)
}

func TestReadResponse_TruncatedStream(t *testing.T) {
	t.Parallel()

	raw := "Scalar/sim_seconds/0.25\n"

	_, err := proto.ReadResponse(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

func TestWriter_EndResetsCount(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	writer := proto.NewWriter(&buf)
	require.NoError(t, writer.WriteLine(proto.Line{Class: statfile.ClassScalar, ID: "a", Value: "1"}))
	require.NoError(t, writer.End())
	require.NoError(t, writer.End())

	out := buf.String()
	assert.Contains(t, out, "END|1\n")
	assert.True(t, strings.HasSuffix(out, "END|0\n"))
}

func TestWriter_TokenFlushesImmediately(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	writer := proto.NewWriter(&buf)
	require.NoError(t, writer.WriteToken(proto.TokenReady))
	assert.Equal(t, "READY\n", buf.String())
}
