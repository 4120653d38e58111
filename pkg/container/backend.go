// Package container implements the container backend driver (C4): a
// uniform contract for running a command inside a container, implemented
// once per backend family (apptainer/singularity, docker/podman, shifter,
// and a container-less "none" fallback).
package container

import "context"

// Bind is one host path bound into the container.
type Bind struct {
	Source string
	Target string
	// Mode is "ro", "rw", or "" (backend default).
	Mode string
}

// ExecRequest is the uniform input to Backend.Execute.
type ExecRequest struct {
	Image   string
	Command []string
	Binds   []Bind
	Env     []string
	Workdir string
	// ExtraOptions are appended verbatim to the backend's command line by
	// the apptainer/singularity and shifter backends. C9 fills them from
	// the backend's options environment variable only; the config file's
	// per-backend sub-tables are not read here, and the docker/podman and
	// none backends ignore ExtraOptions.
	ExtraOptions []string
}

// Backend is the uniform contract of spec section 4.4. Each concrete
// backend is a value built from read-only configuration, not an object
// with mutable state: invocations must not share mutable state across
// concurrent calls (spec section 4.4/5).
type Backend interface {
	// Execute runs req.Command inside req.Image, forwarding stdio, and
	// returns the contained process's exit status.
	Execute(ctx context.Context, req ExecRequest) (int, error)
	// SupportsFileBinding reports whether this backend can bind
	// individual files (false for Shifter, which only binds
	// directories).
	SupportsFileBinding() bool
	// ImageVersionInfo returns a best-effort version string for image,
	// used by MPI-family matching (internal/app/e4scl).
	ImageVersionInfo(ctx context.Context, image string) (string, error)
	// ProbeLdconfig returns the raw output of running "ldconfig -p"
	// inside image, used by C9 to read the container's own library
	// cache before the host/container tie-break (spec section 4.9 step
	// 3). Best-effort: an error here falls back to treating the
	// container's library set as empty.
	ProbeLdconfig(ctx context.Context, image string) (string, error)
}

// ExitError describes a contained command that ran but exited non-zero.
// The backends in this package do not return it: they report that case as
// Execute's int result with a nil error, which C9 propagates unchanged
// (spec section 4.4/7).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return "container: command exited non-zero" }

// EnvironmentError distinguishes a missing backend binary/daemon from a
// user error (spec section 7): exit code 2, not 1.
type EnvironmentError struct {
	Reason string
}

func (e *EnvironmentError) Error() string { return e.Reason }

// ImageNotFoundError is a fatal user error: the image the profile or
// --image flag names does not exist (spec section 4.4).
type ImageNotFoundError struct {
	Image string
}

func (e *ImageNotFoundError) Error() string { return "image not found: " + e.Image }
