package dispatcher

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// DefaultTimeout bounds how long the session CLI subprocess may run before
// the dispatcher kills it and reports a timeout failure (spec §9, Open
// Question resolution: a hung session CLI must not pin a worker goroutine
// indefinitely).
const DefaultTimeout = 10 * time.Minute

// maxStderrBytes bounds captured stderr so a runaway CLI cannot exhaust
// memory.
const maxStderrBytes = 4096

// limitedWriter caps writes at maxBytes, silently discarding overflow while
// always reporting the original length so callers never see a short write.
type limitedWriter struct {
	buf      bytes.Buffer
	maxBytes int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	originalLen := len(p)
	remaining := w.maxBytes - w.buf.Len()
	if remaining <= 0 {
		return originalLen, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	w.buf.Write(p)
	return originalLen, nil
}

// Runner invokes the session CLI as a blocking subprocess.
type Runner struct {
	// Command is the session CLI binary name or path; a bare name is looked
	// up on PATH by os/exec on every Run.
	Command string
	Timeout time.Duration
}

// Run executes r.Command with argv, bounded by r.Timeout (or DefaultTimeout
// if zero). On a zero exit it returns the trimmed stdout and a nil error.
// Otherwise it returns a *models.SubprocessError: TimedOut is set when the
// timeout expired, else ExitCode (-1 when no exit status is available, e.g.
// the binary could not be started) and the captured stderr are set.
func (r *Runner) Run(ctx context.Context, argv []string) (stdout string, runErr error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Command, argv...) //nolint:gosec // G204: argv is a fixed, total-function-built table, not operator-supplied
	var stdoutBuf bytes.Buffer
	stderrW := &limitedWriter{maxBytes: maxStderrBytes}
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = stderrW

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdoutBuf.String()), nil
	}

	stderrMsg := stderrW.buf.String()
	if stderrW.buf.Len() >= stderrW.maxBytes {
		stderrMsg += " (truncated)"
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return "", &models.SubprocessError{Argv: argv, TimedOut: true}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		exitCode = exitErr.ExitCode()
	}
	return "", &models.SubprocessError{Argv: argv, ExitCode: exitCode, Stderr: stderrMsg}
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}
