// Package runner provides command execution with timeouts, process-group
// termination, and output size limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 2 * time.Minute
	DefaultMaxOutput = 16 << 20 // 16 MB

	// waitDelay bounds how long Run waits on output pipes after the
	// process group has been killed, in case a helper that left the
	// group still holds them.
	waitDelay = 2 * time.Second
)

var discard = log.New(io.Discard)

// Runner executes commands with a bounded lifetime.
type Runner struct {
	MaxOutput int         // bytes per stream; <= 0 means DefaultMaxOutput
	Logger    *log.Logger // nil disables logging
}

// Run executes req and waits until it exits and both output streams reach
// EOF, or until the timeout.
//
// A nonzero exit is not an error: it is reported through Result.ExitCode.
// A timeout is reported through Result.TimedOut, after the whole process
// group has been killed and reaped. Run returns an error only when the
// executable cannot be started or ctx is cancelled by the caller before
// the run completes.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Executable == "" {
		return nil, fmt.Errorf("empty executable")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	logger := r.Logger
	if logger == nil {
		logger = discard
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runID := uuid.New().String()

	// The pipes are ours rather than exec's, so that a normal exit of the
	// direct child does not start a pipe deadline: output is read to EOF,
	// bounded only by the timeout.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	defer outR.Close()
	errR, errW, err := os.Pipe()
	if err != nil {
		outW.Close()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	defer errR.Close()

	cmd := exec.Command(req.Executable, req.Args...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcessGroup(cmd)

	start := time.Now()
	err = cmd.Start()
	outW.Close()
	errW.Close()
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", req.Executable, err)
	}

	var stdout, stderr bytes.Buffer
	var drained sync.WaitGroup
	drained.Add(2)
	go drain(&drained, &limitWriter{buf: &stdout, limit: maxOutput}, outR)
	go drain(&drained, &limitWriter{buf: &stderr, limit: maxOutput}, errR)

	var waitErr error
	done := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		drained.Wait()
		close(done)
	}()

	killed := false
	select {
	case <-done:
	case <-runCtx.Done():
		select {
		case <-done:
			// Finished on its own as the deadline fired.
		default:
			killed = true
			if err := killProcessGroup(cmd); err != nil {
				logger.Warn("killing process group", "id", runID, "err", err)
			}
			select {
			case <-done:
			case <-time.After(waitDelay):
				logger.Warn("output still open after kill", "id", runID, "argv", req.Argv())
				outR.Close()
				errR.Close()
				<-done
			}
		}
	}
	elapsed := time.Since(start)

	res := &Result{
		RunID:     runID,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
		Duration:  elapsed,
	}

	if killed {
		// The caller's cancellation wins over our own deadline.
		if err := ctx.Err(); err != nil {
			logger.Debug("run cancelled", "id", runID, "argv", req.Argv(), "elapsed", elapsed)
			return nil, fmt.Errorf("executing %s: %w", req.Executable, err)
		}
		res.TimedOut = true
		res.ExitCode = -1
		logger.Debug("run timed out", "id", runID, "argv", req.Argv(), "timeout", timeout)
		return res, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("executing %s: %w", req.Executable, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	logger.Debug("run finished", "id", runID, "argv", req.Argv(), "exit", res.ExitCode, "elapsed", elapsed)
	return res, nil
}

func drain(wg *sync.WaitGroup, w io.Writer, r io.Reader) {
	defer wg.Done()
	_, _ = io.Copy(w, r)
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
