package e4scl

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
	"github.com/E4S-Project/e4s-cl/pkg/container"
	"github.com/E4S-Project/e4s-cl/pkg/launcher"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

// LaunchRequest carries the flags of the "launch" CLI command (spec
// section 6) that matter to C8's decision-making, separate from the raw
// user command line.
type LaunchRequest struct {
	Argv []string

	ProfileName string
	// From, if non-empty, forces translation from the named family
	// (spec 4.8 step 3); "" defers to the auto-detected comparison.
	From string

	SelfPath string // os.Args[0], or an override for testing

	// DryRun propagates to every re-exec'd "__execute" worker (SPEC_FULL's
	// additive inspection path): each rank prints its resolved binds and
	// entry script instead of invoking the container backend.
	DryRun bool
}

// Launch implements C8: split the user's command, resolve the effective
// profile, decide whether MPI translation is needed, and rewrite the
// program portion of argv into a re-exec of this binary's hidden
// "__execute" subcommand.
func Launch(ctx context.Context, store *profile.Store, backend container.Backend, req LaunchRequest) error {
	split, warns, err := launcher.Split(req.Argv)
	if err != nil {
		return errs.NewUserError("pass \"--\" before the program if automatic splitting guesses wrong", "launch: %s", err)
	}
	for _, w := range warns {
		sylog.Warningf("%s", w)
	}
	if len(split.Program) == 0 {
		return errs.NewUserError("", "launch: no program given after the launcher")
	}

	p, _, err := store.Get(req.ProfileName)
	if err != nil {
		return errs.NewUserError("create one with \"profile create\" or pass --profile", "launch: %s", err)
	}

	from := req.From
	if from == "" {
		from = decideTranslation(ctx, split, p, backend)
	} else if hostFamily(ctx, split) == from {
		// Open Question (spec 9): when --from names the same family as
		// the host launcher's own "--version" output, host and container
		// already match, so short-circuit rather than translate anyway.
		sylog.Infof("launch: host and container already match family %q, skipping translation", from)
		from = ""
	}

	selfPath := req.SelfPath
	if selfPath == "" {
		selfPath = selfExecutable()
	}

	execArgs := []string{selfPath, "__execute", "--profile", req.ProfileName}
	if from != "" {
		execArgs = append(execArgs, "--from", from)
	}
	if req.DryRun {
		execArgs = append(execArgs, "--dry-run")
	}
	execArgs = append(execArgs, "--")
	execArgs = append(execArgs, split.Program...)

	rewritten := launcher.Split{
		Launcher:     split.Launcher,
		LauncherArgs: split.LauncherArgs,
		Program:      execArgs,
	}

	argv := rewritten.Reassemble()
	sylog.Debugf("launch: %v", argv)
	return execLauncher(ctx, argv)
}

// decideTranslation implements spec 4.8 step 3's auto-detection path:
// compare the launcher binary's own "--version" family against the
// container image's, via C4.ImageVersionInfo.
func decideTranslation(ctx context.Context, split launcher.Split, p profile.Profile, backend container.Backend) string {
	host := hostFamily(ctx, split)
	if host == "" || backend == nil {
		return ""
	}
	containerVersion, err := backend.ImageVersionInfo(ctx, p.Image)
	if err != nil {
		sylog.Warningf("launch: could not read container MPI version: %s", err)
		return ""
	}
	containerFamily := MPIFamily(containerVersion)
	if containerFamily == "" || containerFamily == host {
		return ""
	}
	return containerFamily
}

func hostFamily(ctx context.Context, split launcher.Split) string {
	cmd := exec.CommandContext(ctx, split.Launcher, "--version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}
	return MPIFamily(string(out))
}

// execLauncher replaces the current process image with argv, the way the
// teacher's own CLI entrypoint hands off to apptainer's runtime starter:
// the front process becomes the launcher so signal forwarding and exit
// code propagation need no extra plumbing.
func execLauncher(ctx context.Context, argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errs.NewEnvironmentError("check that the launcher binary is on PATH", "launch: %s", err)
	}
	return syscall.Exec(path, argv, os.Environ())
}

func selfExecutable() string {
	if p, err := os.Executable(); err == nil {
		return p
	}
	return os.Args[0]
}
