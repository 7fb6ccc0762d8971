// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Package execute runs external tools (snap, openssl, hook tools) without a
// shell, captures their output and logs every invocation.

// Options describes a single command execution.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Stdin   string
	// Timeout of zero means the command may run indefinitely.
	Timeout time.Duration
	// Sensitive hides argument values from logs and spans.
	Sensitive bool
	Logger    *zap.Logger
}

// Runner is implemented by anything that can execute a command and return
// its combined output.
type Runner interface {
	Run(ctx context.Context, opts Options) (string, error)
}

// ExitError carries the exit code and output of a failed command.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExitError) Error() string {
	summary := charm_err.ExtractSummary(e.Output, 2)
	if summary == "" {
		return e.Command + ": " + e.Err.Error()
	}
	return e.Command + ": " + e.Err.Error() + ": " + summary
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec is the Runner backed by os/exec.
type Exec struct {
	Logger *zap.Logger
}

// DefaultRunner is used by packages that are not handed an explicit Runner.
var DefaultRunner Runner = Exec{}

// Run executes opts and returns stdout+stderr. A non-zero exit becomes an
// *ExitError wrapped with a stack.
func (e Exec) Run(ctx context.Context, opts Options) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = e.Logger
	}
	if logger == nil {
		logger = zap.L()
	}

	display := displayCommand(opts)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ctx, span := telemetry.Start(ctx, "execute.Run",
		attribute.String("command", opts.Command),
		attribute.String("args", displayArgs(opts)),
	)
	defer span.End()

	logger.Debug("Starting execution", zap.String("command", display))

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if err == nil {
		logger.Debug("Execution succeeded", zap.String("command", display))
		return output, nil
	}

	span.RecordError(err)
	exitErr := &ExitError{Command: display, ExitCode: -1, Output: output, Err: err}
	var ee *exec.ExitError
	if cerr.As(err, &ee) {
		exitErr.ExitCode = ee.ExitCode()
	}
	logger.Warn("Execution failed",
		zap.String("command", display),
		zap.Int("exit_code", exitErr.ExitCode),
		zap.String("summary", charm_err.ExtractSummary(output, 2)),
		zap.Error(err))
	return output, cerr.WithStack(exitErr)
}

// Run executes opts with DefaultRunner.
func Run(ctx context.Context, opts Options) (string, error) {
	return DefaultRunner.Run(ctx, opts)
}

// RunSimple executes a command and discards its output.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{Command: cmd, Args: args})
	return err
}

// Output returns the trimmed output of the failed command, or err's text
// when it did not come from a command.
func Output(err error) string {
	var ee *ExitError
	if cerr.As(err, &ee) {
		if s := charm_err.ExtractSummary(ee.Output, 1); s != "" {
			return s
		}
		return ee.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func displayArgs(opts Options) string {
	if opts.Sensitive {
		return "[redacted]"
	}
	return strings.Join(opts.Args, " ")
}

func displayCommand(opts Options) string {
	if args := displayArgs(opts); args != "" {
		return opts.Command + " " + args
	}
	return opts.Command
}
