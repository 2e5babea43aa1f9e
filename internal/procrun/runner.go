package procrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default resource bounds for external tool invocations.
const (
	DefaultTimeout        = 5 * time.Minute
	DefaultMaxOutputBytes = 10 * 1024 * 1024 // 10MB per stream
)

// Failure classes. Callers translate these into their own error taxonomy.
var (
	ErrTimeout         = errors.New("process timeout")
	ErrBufferExceeded  = errors.New("output buffer exceeded maximum size")
	ErrSpawn           = errors.New("spawning process failed")
	ErrMalformedOutput = errors.New("malformed process output")
)

// Spec describes one subprocess invocation. Args are passed as a discrete
// vector, never through a shell.
type Spec struct {
	Command string
	Args    []string

	// Timeout bounds the whole invocation; zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps each of stdout and stderr; zero means
	// DefaultMaxOutputBytes. The process is terminated on overflow.
	MaxOutputBytes int64
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external tools with enforced resource bounds. It owns no
// filesystem state; cleanup after failures is the caller's responsibility.
type Runner struct {
	log *zap.Logger
}

// New creates a Runner.
func New(log *zap.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes the spec and returns captured stdout/stderr and the exit
// code. A nonzero exit is not an error here; callers inspect ExitCode.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := spec.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	stdout := newCapWriter(maxOutput, cancel)
	stderr := newCapWriter(maxOutput, cancel)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	r.log.Debug("running process",
		zap.String("command", spec.Command),
		zap.Strings("args", spec.Args),
		zap.Duration("timeout", timeout))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// Overflow and timeout both surface through the cancelled context, so
	// check the buffer caps first: partial output is discarded.
	if stdout.exceeded || stderr.exceeded {
		r.log.Warn("process output exceeded cap",
			zap.String("command", spec.Command),
			zap.Int64("cap_bytes", maxOutput))
		return nil, fmt.Errorf("%w (%s)", ErrBufferExceeded, spec.Command)
	}
	if runCtx.Err() == context.DeadlineExceeded {
		r.log.Warn("process timed out",
			zap.String("command", spec.Command),
			zap.Duration("timeout", timeout))
		return nil, fmt.Errorf("%w after %s (%s)", ErrTimeout, timeout, spec.Command)
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			r.log.Debug("process exited nonzero",
				zap.String("command", spec.Command),
				zap.Int("exit_code", result.ExitCode),
				zap.Duration("elapsed", elapsed))
			return result, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, spec.Command, err)
	}

	r.log.Debug("process finished",
		zap.String("command", spec.Command),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// RunJSON executes the spec, requires a zero exit code and unmarshals stdout
// into v. Parse failures return ErrMalformedOutput with stderr attached for
// diagnostics.
func (r *Runner) RunJSON(ctx context.Context, spec Spec, v any) error {
	result, err := r.Run(ctx, spec)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s",
			spec.Command, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	if err := json.Unmarshal([]byte(result.Stdout), v); err != nil {
		return fmt.Errorf("%w: %v: %s",
			ErrMalformedOutput, err, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// capWriter buffers writes up to cap bytes and cancels the process context
// on overflow.
type capWriter struct {
	buf      bytes.Buffer
	limit    int64
	exceeded bool
	cancel   context.CancelFunc
}

func newCapWriter(limit int64, cancel context.CancelFunc) *capWriter {
	return &capWriter{limit: limit, cancel: cancel}
}

// Write appends p until the cap is reached, then terminates the process.
func (w *capWriter) Write(p []byte) (int, error) {
	if w.exceeded {
		return len(p), nil
	}
	if int64(w.buf.Len())+int64(len(p)) > w.limit {
		w.exceeded = true
		w.buf.Reset()
		w.cancel()
		return len(p), nil
	}
	return w.buf.Write(p)
}

// String returns the buffered output.
func (w *capWriter) String() string {
	return w.buf.String()
}
