// Package proto implements the line protocol spoken between the engine and
// its persistent worker processes over stdin/stdout.
//
// Frames are single text lines. The worker announces READY on startup, then
// serves requests strictly one at a time:
//
//	request:  PARSE|<file-path>|<key1,key2,...>
//	response: <class>/<id>/<value>   zero or more payload lines
//	          ERR|<message>          zero or more, counted as payload
//	          END|<payload-count>
//	health:   PING -> PONG
//	shutdown: SHUTDOWN -> process exit
//
// The END trailer carries the number of preceding payload lines as an
// integrity check; a mismatch means worker output skew and the response
// must be discarded.
package proto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/statfang/pkg/statfile"
)

// Control tokens.
const (
	TokenReady    = "READY"
	TokenPing     = "PING"
	TokenPong     = "PONG"
	TokenShutdown = "SHUTDOWN"
)

// Frame markers.
const (
	cmdParse   = "PARSE"
	markEnd    = "END"
	markErr    = "ERR"
	fieldSep   = "|"
	keySep     = ","
	payloadSep = "/"
)

// Sentinel protocol errors.
var (
	// ErrMalformedLine indicates a frame that does not parse.
	ErrMalformedLine = errors.New("malformed protocol line")
	// ErrCountMismatch indicates the END trailer disagrees with the number
	// of payload lines received.
	ErrCountMismatch = errors.New("payload line count mismatch")
)

// Request asks a worker to extract the given variable keys from one file.
type Request struct {
	// Path is the absolute path of the statistics file.
	Path string

	// Keys are the requested variable base names.
	Keys []string
}

// Encode renders the request frame.
func (r Request) Encode() string {
	return cmdParse + fieldSep + r.Path + fieldSep + strings.Join(r.Keys, keySep)
}

// ParseRequest decodes a request frame on the worker side.
func ParseRequest(raw string) (Request, error) {
	parts := strings.SplitN(raw, fieldSep, 3)
	if len(parts) != 3 || parts[0] != cmdParse || parts[1] == "" {
		return Request{}, fmt.Errorf("%w: %q", ErrMalformedLine, raw)
	}

	var keys []string

	if parts[2] != "" {
		keys = strings.Split(parts[2], keySep)
	}

	return Request{Path: parts[1], Keys: keys}, nil
}

// Line is one payload line: a classified value for one variable id.
type Line struct {
	// Class is the line's value-shape classification.
	Class statfile.Class

	// ID is the variable identifier, base name plus optional "::entry".
	ID string

	// Value is the raw value token.
	Value string
}

// Encode renders the payload frame.
func (l Line) Encode() string {
	return string(l.Class) + payloadSep + l.ID + payloadSep + l.Value
}

// DecodeLine parses a payload frame. Variable ids never contain the payload
// separator; the value keeps any separators it carries (configuration values
// may be filesystem paths).
func DecodeLine(raw string) (Line, error) {
	parts := strings.SplitN(raw, payloadSep, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Line{}, fmt.Errorf("%w: %q", ErrMalformedLine, raw)
	}

	return Line{Class: statfile.Class(parts[0]), ID: parts[1], Value: parts[2]}, nil
}

// Response is one complete per-request reply.
type Response struct {
	// Lines are the decoded payload lines.
	Lines []Line

	// Errs are per-file error messages the worker reported inline.
	Errs []string
}

// ReadResponse consumes frames from the reader until the END trailer and
// verifies the payload count. Any framing violation surfaces as
// ErrMalformedLine or ErrCountMismatch; the caller treats either as worker
// failure.
func ReadResponse(reader *bufio.Reader) (Response, error) {
	var resp Response

	count := 0

	for {
		raw, err := readLine(reader)
		if err != nil {
			return Response{}, err
		}

		if rest, isEnd := strings.CutPrefix(raw, markEnd+fieldSep); isEnd {
			declared, convErr := strconv.Atoi(rest)
			if convErr != nil {
				return Response{}, fmt.Errorf("%w: %q", ErrMalformedLine, raw)
			}

			if declared != count {
				return Response{}, fmt.Errorf("%w: declared %d, received %d", ErrCountMismatch, declared, count)
			}

			return resp, nil
		}

		count++

		if msg, isErr := strings.CutPrefix(raw, markErr+fieldSep); isErr {
			resp.Errs = append(resp.Errs, msg)

			continue
		}

		line, decodeErr := DecodeLine(raw)
		if decodeErr != nil {
			return Response{}, decodeErr
		}

		resp.Lines = append(resp.Lines, line)
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	raw, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read protocol line: %w", err)
	}

	return strings.TrimRight(raw, "\r\n"), nil
}

// Writer emits response frames on the worker side, tracking the payload
// count for the END trailer.
type Writer struct {
	out   *bufio.Writer
	count int
}

// NewWriter wraps the worker's stdout.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(out)}
}

// WriteLine emits one payload line.
func (w *Writer) WriteLine(line Line) error {
	w.count++

	return w.writeRaw(line.Encode())
}

// WriteError emits an inline per-file error message.
func (w *Writer) WriteError(msg string) error {
	w.count++

	return w.writeRaw(markErr + fieldSep + strings.ReplaceAll(msg, "\n", " "))
}

// End emits the END trailer with the accumulated payload count, flushes,
// and resets the counter for the next request.
func (w *Writer) End() error {
	err := w.writeRaw(markEnd + fieldSep + strconv.Itoa(w.count))
	if err != nil {
		return err
	}

	w.count = 0

	return w.flush()
}

// WriteToken emits a control token (READY, PONG) and flushes immediately.
func (w *Writer) WriteToken(token string) error {
	err := w.writeRaw(token)
	if err != nil {
		return err
	}

	return w.flush()
}

func (w *Writer) writeRaw(frame string) error {
	_, err := w.out.WriteString(frame + "\n")
	if err != nil {
		return fmt.Errorf("write protocol line: %w", err)
	}

	return nil
}

func (w *Writer) flush() error {
	err := w.out.Flush()
	if err != nil {
		return fmt.Errorf("flush protocol writer: %w", err)
	}

	return nil
}
