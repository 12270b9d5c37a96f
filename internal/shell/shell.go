// Package shell runs POSIX shell snippets with an in-process interpreter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrTimeout is returned when a command does not finish before its deadline.
var ErrTimeout = errors.New("command timed out")

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Options configures a single Run.
type Options struct {
	Dir     string        // working directory; empty means the process cwd
	Timeout time.Duration // zero means no deadline beyond ctx
	Env     []string      // KEY=VALUE pairs; nil means FilteredEnviron()
}

// ParseError reports a command that is not valid shell syntax.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Result Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("exit status %d", e.Result.ExitCode)
	if s := strings.TrimSpace(e.Result.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Run parses command and executes it, capturing stdout and stderr.
// A non-zero exit yields *ExitError with the captured output; exceeding the
// deadline yields an error wrapping ErrTimeout.
func Run(ctx context.Context, command string, opts Options) (Result, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return Result{}, &ParseError{Err: err}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	env := opts.Env
	if env == nil {
		env = FilteredEnviron()
	}

	var stdout, stderr bytes.Buffer
	runnerOpts := []interp.RunnerOption{
		interp.StdIO(nil, &stdout, &stderr),
		interp.Env(expand.ListEnviron(env...)),
	}
	if opts.Dir != "" {
		runnerOpts = append(runnerOpts, interp.Dir(opts.Dir))
	}
	runner, err := interp.New(runnerOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("shell: %w", err)
	}

	start := time.Now()
	runErr := runner.Run(ctx, file)
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if opts.Timeout > 0 {
			return res, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout)
		}
		return res, ErrTimeout
	}
	if runErr == nil {
		return res, nil
	}
	var status interp.ExitStatus
	if errors.As(runErr, &status) {
		res.ExitCode = int(status)
		return res, &ExitError{Result: res}
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, runErr
}

// sensitiveSuffixes mark environment variables that are not passed to commands.
var sensitiveSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// FilteredEnviron returns os.Environ() minus credentials.
func FilteredEnviron() []string {
	var out []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if isSensitive(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, s := range sensitiveSuffixes {
		if strings.HasSuffix(upper, s) {
			return true
		}
	}
	return false
}
