// Package trace implements the process tracer (C2): run a child process
// under syscall interception and emit the ordered list of paths it opened.
//
// Only the path-accepting syscalls matter here (spec 9 explicitly says not
// to reimplement full syscall decoding), so the tracer decodes just enough
// of each syscall's argument registers to pull out a path string.
package trace

import (
	"context"
	"errors"
	"os"
	"os/exec"
)

// ErrPtraceUnavailable is returned when the host will not allow this
// process to trace children (missing CAP_SYS_PTRACE, seccomp, an
// unsupported architecture/OS). C7 surfaces this to the user with a
// suggestion to build the profile manually with "profile edit".
var ErrPtraceUnavailable = errors.New("trace: ptrace is not available on this host")

// Result is the outcome of tracing one launcher invocation.
type Result struct {
	ExitStatus int
	// ObservedPaths is ordered by first observation; duplicates are not
	// removed here (that happens in pkg/resolve.Classify).
	ObservedPaths []string
}

// Options configures a trace run.
type Options struct {
	// Verbose makes the tracer log, at debug level, every path argument
	// it could not read from the tracee; used by C7's
	// retry-once-with-verbose-tracing policy.
	Verbose bool
	// Stdout/Stderr, when non-nil, receive the traced child's own
	// output; nil discards it.
	Stdout, Stderr *os.File
}

// Trace spawns argv under ptrace and returns every path-accepting syscall
// argument it observed. Cancellation: ctx's cancellation is propagated as
// SIGTERM to the traced process group, escalating to SIGKILL after a
// bounded grace period (spec 4.2, 5).
func Trace(ctx context.Context, argv []string, env []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("trace: empty argv")
	}
	return trace(ctx, argv, env, opts)
}

// newCommand builds the exec.Cmd shared by every platform implementation.
func newCommand(argv []string, env []string, opts Options) *exec.Cmd {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	return cmd
}
