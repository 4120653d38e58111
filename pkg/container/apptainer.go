package container

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
)

// apptainerBackend drives the external apptainer or singularity binary
// via its "exec" subcommand, binding paths with repeated "-B" flags, the
// way the teacher project itself is invoked as an end-user tool.
type apptainerBackend struct {
	// binary is "apptainer" or "singularity".
	binary string
}

func newApptainerBackend() *apptainerBackend   { return &apptainerBackend{binary: "apptainer"} }
func newSingularityBackend() *apptainerBackend { return &apptainerBackend{binary: "singularity"} }

func (b *apptainerBackend) SupportsFileBinding() bool { return true }

func (b *apptainerBackend) Execute(ctx context.Context, req ExecRequest) (int, error) {
	if _, err := exec.LookPath(b.binary); err != nil {
		return 0, &EnvironmentError{Reason: fmt.Sprintf("%s binary not found in PATH", b.binary)}
	}
	if req.Image != "" {
		if _, err := os.Stat(req.Image); err != nil && !isRegistryRef(req.Image) {
			return 0, &ImageNotFoundError{Image: req.Image}
		}
	}

	args := []string{"exec"}
	for _, bind := range req.Binds {
		args = append(args, "-B", bindSpec(bind))
	}
	if req.Workdir != "" {
		args = append(args, "--pwd", req.Workdir)
	}
	args = append(args, req.ExtraOptions...)
	args = append(args, req.Image)
	args = append(args, req.Command...)

	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Env = req.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	sylog.Debugf("%s %v", b.binary, args)

	err := cmd.Run()
	return exitCodeOf(err)
}

func (b *apptainerBackend) ImageVersionInfo(ctx context.Context, image string) (string, error) {
	if _, err := exec.LookPath(b.binary); err != nil {
		return "", &EnvironmentError{Reason: fmt.Sprintf("%s binary not found in PATH", b.binary)}
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, b.binary, "exec", image, "mpirun", "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run() // best-effort: spec 4.4 says image_version_info is best-effort
	return out.String(), nil
}

func (b *apptainerBackend) ProbeLdconfig(ctx context.Context, image string) (string, error) {
	if _, err := exec.LookPath(b.binary); err != nil {
		return "", &EnvironmentError{Reason: fmt.Sprintf("%s binary not found in PATH", b.binary)}
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, b.binary, "exec", image, "ldconfig", "-p")
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run()
	return out.String(), nil
}

func bindSpec(b Bind) string {
	if b.Mode == "" {
		return b.Source + ":" + b.Target
	}
	return b.Source + ":" + b.Target + ":" + b.Mode
}

func isRegistryRef(image string) bool {
	for _, prefix := range []string{"docker://", "library://", "oras://", "shub://"} {
		if len(image) >= len(prefix) && image[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func exitCodeOf(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
