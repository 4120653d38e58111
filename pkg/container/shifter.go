package container

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
)

// shifterBackend drives NERSC's shifter. Shifter has no per-file bind
// primitive (spec section 4.1/4.4/8 scenario 6): callers must stage every
// file-kind bind into a single directory and pass only that directory's
// Bind here; SupportsFileBinding reports false so that staging logic runs
// upstream in internal/app/e4scl.
type shifterBackend struct{}

func newShifterBackend() *shifterBackend { return &shifterBackend{} }

func (b *shifterBackend) SupportsFileBinding() bool { return false }

func (b *shifterBackend) Execute(ctx context.Context, req ExecRequest) (int, error) {
	if _, err := exec.LookPath("shifter"); err != nil {
		return 0, &EnvironmentError{Reason: "shifter binary not found in PATH"}
	}

	args := []string{"--image=" + req.Image}
	for _, bind := range req.Binds {
		args = append(args, fmt.Sprintf("--volume=%s:%s", bind.Source, bind.Target))
	}
	args = append(args, req.ExtraOptions...)
	args = append(args, req.Command...)

	cmd := exec.CommandContext(ctx, "shifter", args...)
	cmd.Env = req.Env
	cmd.Dir = req.Workdir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	sylog.Debugf("shifter %v", args)

	err := cmd.Run()
	return exitCodeOf(err)
}

func (b *shifterBackend) ImageVersionInfo(ctx context.Context, image string) (string, error) {
	if _, err := exec.LookPath("shifter"); err != nil {
		return "", &EnvironmentError{Reason: "shifter binary not found in PATH"}
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "shifter", "--image="+image, "mpirun", "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run()
	return out.String(), nil
}

func (b *shifterBackend) ProbeLdconfig(ctx context.Context, image string) (string, error) {
	if _, err := exec.LookPath("shifter"); err != nil {
		return "", &EnvironmentError{Reason: "shifter binary not found in PATH"}
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "shifter", "--image="+image, "ldconfig", "-p")
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run()
	return out.String(), nil
}
