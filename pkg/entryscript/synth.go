// Package entryscript implements the entry script synthesizer (C6): an
// in-container shell script that exports LD_LIBRARY_PATH/LD_PRELOAD,
// optionally sources a user setup script, optionally routes the command
// through a translation layer, and finally execs the user command so the
// container's init sees it as PID 1 (spec section 4.6).
package entryscript

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/E4S-Project/e4s-cl/pkg/shell"
)

// DefaultPath is where C9 deposits the synthesized script inside the
// container bind tree, unless E4S_CL_CONTAINER_DIR overrides the root.
const DefaultPath = "/.e4s-cl/entry"

// Request carries everything Synthesize needs to build the script.
type Request struct {
	// HostLibDir is the in-container path the host library bind
	// directory is mounted at (e.g. "/.e4s-cl/hostlibs").
	HostLibDir string
	// Source is the profile's optional user setup script, sourced with
	// the "." builtin (never forked, per spec 4.6).
	Source string
	// Preload lists the absolute in-container paths of every bound
	// library, used for LD_PRELOAD when enabled.
	Preload           []string
	PreloadEnabled    bool
	Wi4mpiRoot        string
	Wi4mpiFrom        string
	Wi4mpiTo          string
	Wi4mpiWrapperBin  string
	Wi4mpiOptions     string
	// Command is the user's program and its arguments, already resolved
	// to an in-container path by the caller.
	Command []string
}

// Synthesize renders Request into a POSIX shell script. The script is
// first assembled as text (quoted via pkg/shell, following the teacher's
// own escaping helper) and then round-tripped through mvdan.cc/sh/v3's
// parser and printer: parsing validates the generated script is
// syntactically sound before it's ever written into a container, and the
// printer normalizes formatting.
func Synthesize(req Request) (string, error) {
	var b strings.Builder

	fmt.Fprintln(&b, "#!/bin/sh")
	fmt.Fprintf(&b, "export LD_LIBRARY_PATH=%q\n", req.HostLibDir+":${LD_LIBRARY_PATH}")

	if req.Source != "" {
		fmt.Fprintf(&b, ". \"%s\"\n", shell.Escape(req.Source))
	}

	if req.PreloadEnabled && len(req.Preload) > 0 {
		fmt.Fprintf(&b, "export LD_PRELOAD=%q\n", strings.Join(req.Preload, " "))
	}

	if req.Wi4mpiFrom != "" {
		fmt.Fprintf(&b, "export WI4MPI_ROOT=%q\n", req.Wi4mpiRoot)
		fmt.Fprintf(&b, "export WI4MPI_FROM=%q\n", req.Wi4mpiFrom)
		fmt.Fprintf(&b, "export WI4MPI_TO=%q\n", req.Wi4mpiTo)
		fmt.Fprintf(&b, "export WI4MPI_WRAPPER_BIN=%q\n", req.Wi4mpiWrapperBin)
		fmt.Fprintf(&b, "exec %s\n", shell.ArgsQuoted(append([]string{req.Wi4mpiWrapperBin}, req.Command...)))
	} else {
		if len(req.Command) == 0 {
			return "", fmt.Errorf("entryscript: empty command")
		}
		fmt.Fprintf(&b, "exec %s\n", shell.ArgsQuoted(req.Command))
	}

	return canonicalize(b.String())
}

// canonicalize parses src as POSIX shell and re-prints it, catching any
// malformed quoting in the assembled script before it reaches a container.
func canonicalize(src string) (string, error) {
	f, err := syntax.NewParser().Parse(strings.NewReader(src), "entry")
	if err != nil {
		return "", fmt.Errorf("entryscript: generated script failed to parse: %w", err)
	}
	var out strings.Builder
	p := syntax.NewPrinter()
	if err := p.Print(&out, f); err != nil {
		return "", fmt.Errorf("entryscript: printing script: %w", err)
	}
	return out.String(), nil
}
