// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/telemetry"
)

// Reason classifies why a command invocation failed.
type Reason string

const (
	// ReasonStart covers spawn failures (binary missing, permission denied).
	ReasonStart Reason = "start"
	// ReasonExit covers a process that ran and exited non-zero.
	ReasonExit Reason = "exit"
	// ReasonTimeout covers a process killed by the per-call deadline.
	ReasonTimeout Reason = "timeout"
)

// CommandError is the typed failure returned by Run. It deliberately
// carries the command name only, never the argument vector: arguments may
// contain key shares or tokens and redaction is the caller's job.
type CommandError struct {
	Command  string
	Reason   Reason
	ExitCode int
	Stderr   string
	cause    error
}

func (e *CommandError) Error() string {
	msg := "command " + e.Command + " failed (" + string(e.Reason) + ")"
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.cause }

// Options describes a single external command invocation.
type Options struct {
	Command string
	Args    []string
	// Env is overlaid onto the process environment; overlay wins on
	// key collision. The ambient process environment is never mutated.
	Env     map[string]string
	Stdin   string
	Timeout time.Duration
	Dir     string
}

const defaultTimeout = 30 * time.Second

// Run executes an external command and returns its captured stdout. Stderr
// is captured separately and surfaced through CommandError on failure.
func Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(opts.Timeout))
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.Int("arg_count", len(opts.Args)),
	)

	logger := otelzap.Ctx(runCtx)
	logger.Debug("Starting execution",
		zap.String("command", opts.Command),
		zap.Int("arg_count", len(opts.Args)))

	cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
	cmd.Env = mergeEnviron(opts.Env)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		logger.Debug("Execution succeeded", zap.String("command", opts.Command))
		return stdout.String(), nil
	}

	cmdErr := classify(runCtx, opts.Command, stderr.String(), err)
	span.RecordError(cmdErr)
	logger.Error("Execution failed",
		zap.String("command", opts.Command),
		zap.String("reason", string(cmdErr.Reason)),
		zap.Int("exit_code", cmdErr.ExitCode))
	return stdout.String(), cmdErr
}

func classify(ctx context.Context, command, stderr string, err error) *CommandError {
	cmdErr := &CommandError{
		Command: command,
		Stderr:  stderr,
		cause:   err,
	}
	switch {
	case cerr.Is(ctx.Err(), context.DeadlineExceeded):
		cmdErr.Reason = ReasonTimeout
		cmdErr.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if cerr.As(err, &exitErr) {
			cmdErr.Reason = ReasonExit
			cmdErr.ExitCode = exitErr.ExitCode()
		} else {
			cmdErr.Reason = ReasonStart
			cmdErr.ExitCode = -1
		}
	}
	return cmdErr
}

// mergeEnviron flattens the process environment plus the overlay into the
// KEY=VALUE form exec.Cmd expects. Later entries win, so the overlay is
// appended after the inherited environment.
func mergeEnviron(overlay map[string]string) []string {
	if len(overlay) == 0 {
		return os.Environ()
	}
	env := os.Environ()
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

func timeoutOrDefault(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return defaultTimeout
}
