package container

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// noneBackend is the bare-bones fallback of spec section 4.4: no
// container at all. Every bind's source is symlinked into a fresh staging
// directory, and the command runs directly with LD_LIBRARY_PATH pointing
// there, rather than at the container image's library tree.
type noneBackend struct{}

func newNoneBackend() *noneBackend { return &noneBackend{} }

func (b *noneBackend) SupportsFileBinding() bool { return true }

func (b *noneBackend) Execute(ctx context.Context, req ExecRequest) (int, error) {
	staging := filepath.Join(os.TempDir(), ".e4s-cl-none-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return 0, errors.Wrap(err, "creating bare-bones staging directory")
	}
	defer os.RemoveAll(staging)

	for _, bind := range req.Binds {
		target := filepath.Join(staging, filepath.Base(bind.Target))
		if err := os.Symlink(bind.Source, target); err != nil {
			return 0, errors.Wrapf(err, "staging %s", bind.Source)
		}
	}

	env := append([]string(nil), req.Env...)
	env = append(env, "LD_LIBRARY_PATH="+staging)

	if len(req.Command) == 0 {
		return 0, errors.New("bare-bones backend: empty command")
	}
	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Env = env
	cmd.Dir = req.Workdir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	return exitCodeOf(err)
}

func (b *noneBackend) ImageVersionInfo(ctx context.Context, image string) (string, error) {
	return "", nil
}

func (b *noneBackend) ProbeLdconfig(ctx context.Context, image string) (string, error) {
	return "", nil
}
