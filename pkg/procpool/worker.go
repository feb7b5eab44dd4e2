package procpool

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/statfang/pkg/proto"
)

// Worker failure classes. Both trigger respawn plus a single resubmission
// of the failed item.
var (
	// ErrWorkerCrashed indicates the worker process died or stopped answering.
	ErrWorkerCrashed = errors.New("worker crashed")
	// ErrMalformedOutput indicates the worker produced protocol-violating output.
	ErrMalformedOutput = errors.New("malformed worker output")
)

// pingTimeout bounds a PING round trip during health checks.
const pingTimeout = 5 * time.Second

// workerProc is one long-lived external worker process. Calls to a worker
// are strictly serialized by its owning pool slot.
type workerProc struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

// spawnWorker starts the worker binary and waits for its READY handshake.
func spawnWorker(binary string, args []string, startTimeout time.Duration) (*workerProc, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open worker stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open worker stdout: %w", err)
	}

	if startErr := cmd.Start(); startErr != nil {
		return nil, fmt.Errorf("start worker %s: %w", binary, startErr)
	}

	w := &workerProc{
		cmd:   cmd,
		stdin: stdin,
		out:   bufio.NewReader(stdout),
	}

	line, err := w.readLineTimeout(startTimeout)
	if err != nil || line != proto.TokenReady {
		w.kill()

		return nil, fmt.Errorf("%w: no READY handshake from %s", ErrWorkerCrashed, binary)
	}

	return w, nil
}

// roundTrip sends one request and reads the full response. Any failure
// leaves the worker in an unknown state; the caller must kill and respawn.
func (w *workerProc) roundTrip(req proto.Request, timeout time.Duration) (proto.Response, error) {
	if err := w.send(req.Encode()); err != nil {
		return proto.Response{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, err)
	}

	type outcome struct {
		resp proto.Response
		err  error
	}

	ch := make(chan outcome, 1)

	go func() {
		resp, err := proto.ReadResponse(w.out)
		ch <- outcome{resp: resp, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			if errors.Is(out.err, proto.ErrMalformedLine) || errors.Is(out.err, proto.ErrCountMismatch) {
				return proto.Response{}, fmt.Errorf("%w: %v", ErrMalformedOutput, out.err)
			}

			return proto.Response{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, out.err)
		}

		return out.resp, nil
	case <-timer.C:
		return proto.Response{}, fmt.Errorf("%w: no response within %s", ErrWorkerCrashed, timeout)
	}
}

// ping verifies the worker still answers.
func (w *workerProc) ping() bool {
	if err := w.send(proto.TokenPing); err != nil {
		return false
	}

	line, err := w.readLineTimeout(pingTimeout)

	return err == nil && line == proto.TokenPong
}

// shutdown asks the worker to exit and kills it if it lingers.
func (w *workerProc) shutdown(timeout time.Duration) {
	_ = w.send(proto.TokenShutdown)
	_ = w.stdin.Close()

	done := make(chan struct{})

	go func() {
		_ = w.cmd.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		_ = w.cmd.Process.Kill()
		<-done
	}
}

// kill terminates the worker process without ceremony.
func (w *workerProc) kill() {
	_ = w.stdin.Close()
	_ = w.cmd.Process.Kill()

	go func() { _ = w.cmd.Wait() }()
}

func (w *workerProc) send(frame string) error {
	_, err := io.WriteString(w.stdin, frame+"\n")
	if err != nil {
		return fmt.Errorf("write to worker: %w", err)
	}

	return nil
}

func (w *workerProc) readLineTimeout(timeout time.Duration) (string, error) {
	type lineResult struct {
		line string
		err  error
	}

	ch := make(chan lineResult, 1)

	go func() {
		raw, err := w.out.ReadString('\n')
		ch <- lineResult{line: strings.TrimRight(raw, "\r\n"), err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("read worker line: %w", res.err)
		}

		return res.line, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no line within %s", ErrWorkerCrashed, timeout)
	}
}
