package e4scl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
	"github.com/E4S-Project/e4s-cl/pkg/config"
	"github.com/E4S-Project/e4s-cl/pkg/container"
	"github.com/E4S-Project/e4s-cl/pkg/entryscript"
	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
	"github.com/E4S-Project/e4s-cl/pkg/resolve"
)

// stagingRootEnvVar names the environment variable that overrides the
// host-side root of the bind directories private to each rank (spec 4.9
// step 4); stageRank falls back to <tmpdir>/.e4s-cl when it is unset.
const stagingRootEnvVar = "E4S_CL_STAGING_DIR"

// ExecuteRequest carries the hidden "__execute" subcommand's flags (spec
// section 6): the profile to run under, an optional forced translation
// family, and the user's program argv.
type ExecuteRequest struct {
	ProfileName string
	From        string
	Command     []string
	Env         []string
	Cfg         *config.Config
	// DryRun prints the resolved bind list and entry script instead of
	// invoking the container backend (SPEC_FULL's additive inspection
	// path; exercises C1/C6 without C4's side effects).
	DryRun bool
}

// Execute implements C9: the per-rank worker. It finalizes the library
// bind set, writes the entry script, and hands the whole thing to the
// container backend, propagating its exit code unchanged.
func Execute(ctx context.Context, store *profile.Store, req ExecuteRequest) (int, error) {
	if req.Cfg == nil || !req.Cfg.DisableRankedLog {
		if rank := RankFromEnv(req.Env); rank != "" {
			sylog.SetRankPrefix(rank)
		}
	}

	p, _, err := store.Get(req.ProfileName)
	if err != nil {
		return 0, errs.NewUserError("", "execute: %s", err)
	}

	backend, err := container.New(p.Backend)
	if err != nil {
		return 0, errs.NewUserError("", "execute: %s", err)
	}

	if req.From != "" {
		if err := ensureTranslationLayer(ctx, backend, &p); err != nil {
			return 0, err
		}
	}

	containerDir := os.Getenv("E4S_CL_CONTAINER_DIR")
	if containerDir == "" {
		containerDir = req.Cfg.ContainerDirectory
	}
	if containerDir == "" {
		containerDir = "/.e4s-cl"
	}

	hostLibDir := filepath.Join(containerDir, "hostlibs")

	bindLibs := p.Libraries
	if ldout, err := backend.ProbeLdconfig(ctx, p.Image); err == nil && ldout != "" {
		containerCache := resolve.ParseLdconfigCache(ldout)
		bound, kept := resolve.TieBreak(p.Libraries, containerCache)
		bindLibs = bound
		for _, note := range kept {
			sylog.Debugf("execute: %s", note)
		}
	} else if err != nil {
		sylog.Warningf("execute: could not read container library cache, binding every host library: %s", err)
	}

	stagingDir, err := stageRank()
	if err != nil {
		return 0, errors.Wrap(err, "execute: staging rank directory")
	}
	defer os.RemoveAll(stagingDir)

	binds, preloadPaths, err := buildBinds(p, bindLibs, backend, containerDir, hostLibDir, stagingDir)
	if err != nil {
		return 0, err
	}

	entryHost := filepath.Join(stagingDir, "entry")
	script, err := entryscript.Synthesize(entryscript.Request{
		HostLibDir:       hostLibDir,
		Source:           p.Source,
		Preload:          preloadPaths,
		PreloadEnabled:   req.Cfg.PreloadRootLibraries,
		Wi4mpiRoot:       p.Wi4mpi,
		Wi4mpiFrom:       req.From,
		Wi4mpiTo:         MPIFamily(mustImageVersion(ctx, backend, p.Image)),
		Wi4mpiWrapperBin: wi4mpiWrapperPath(p.Wi4mpi),
		Wi4mpiOptions:    p.Wi4mpiOptions,
		Command:          req.Command,
	})
	if err != nil {
		return 0, errs.NewUserError("", "execute: %s", err)
	}
	if err := os.WriteFile(entryHost, []byte(script), 0o755); err != nil {
		return 0, errors.Wrap(err, "execute: writing entry script")
	}

	binds = append(binds, container.Bind{Source: entryHost, Target: filepath.Join(containerDir, "entry")})

	if req.DryRun {
		printDryRun(binds, script)
		return 0, nil
	}

	code, err := backend.Execute(ctx, container.ExecRequest{
		Image:        p.Image,
		Command:      []string{filepath.Join(containerDir, "entry")},
		Binds:        binds,
		Env:          filterEnv(req.Env),
		ExtraOptions: config.EnvBackendOptions(backendEnvVar(p.Backend)),
	})
	if err != nil {
		if _, ok := err.(*container.EnvironmentError); ok {
			return 0, errs.NewEnvironmentError("check that the backend runtime is installed and running", "execute: %s", err)
		}
		return 0, err
	}
	return code, nil
}

// ensureTranslationLayer checks that a translation layer is already
// installed at the profile's wi4mpi path (its bin/wi4mpi must exist as a
// file) and returns nil if so. It does not install one: when the layer is
// missing it returns an EnvironmentError, and no builder image is run.
func ensureTranslationLayer(ctx context.Context, backend container.Backend, p *profile.Profile) error {
	if p.Wi4mpi != "" {
		if fi, err := os.Stat(filepath.Join(p.Wi4mpi, "bin", "wi4mpi")); err == nil && !fi.IsDir() {
			return nil
		}
	}
	return errs.NewEnvironmentError(
		"run \"profile edit --wi4mpi PATH\" with a pre-built translation layer, or build one with the wi4mpi builder image",
		"execute: no translation layer installed at %q", p.Wi4mpi,
	)
}

// printDryRun renders the resolved bind list and synthesized entry script
// to stdout, standing in for backend.Execute's side effects (SPEC_FULL's
// --dry-run inspection path).
func printDryRun(binds []container.Bind, script string) {
	fmt.Println("# binds")
	for _, b := range binds {
		mode := b.Mode
		if mode == "" {
			mode = "default"
		}
		fmt.Printf("%s -> %s (%s)\n", b.Source, b.Target, mode)
	}
	fmt.Println("# entry script")
	fmt.Print(script)
}

func wi4mpiWrapperPath(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Join(root, "bin", "wi4mpi")
}

func mustImageVersion(ctx context.Context, backend container.Backend, image string) string {
	v, _ := backend.ImageVersionInfo(ctx, image)
	return v
}

func stageRank() (string, error) {
	root := os.Getenv(stagingRootEnvVar)
	if root == "" {
		root = filepath.Join(os.TempDir(), ".e4s-cl")
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// buildBinds assembles the bind list of spec 4.9 step 5: the host library
// directory, every user file/directory in place, and (appended by the
// caller) the entry script directory. When the backend cannot bind
// individual files (Shifter), every file bind is staged into stagingDir
// and only that directory is bound (spec 8 scenario 6).
func buildBinds(p profile.Profile, libs []pathrecord.Record, backend container.Backend, containerDir, hostLibDir, stagingDir string) ([]container.Bind, []string, error) {
	libStage := filepath.Join(stagingDir, "hostlibs")
	if err := os.MkdirAll(libStage, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "execute: creating host library staging directory")
	}

	var binds []container.Bind
	var preloadPaths []string
	for _, lib := range libs {
		link := filepath.Join(libStage, filepath.Base(lib.Realpath))
		if err := os.Symlink(lib.Realpath, link); err != nil && !os.IsExist(err) {
			return nil, nil, errors.Wrapf(err, "execute: staging library %s", lib.Realpath)
		}
		preloadPaths = append(preloadPaths, filepath.Join(hostLibDir, filepath.Base(lib.Realpath)))
	}
	binds = append(binds, container.Bind{Source: libStage, Target: hostLibDir, Mode: "ro"})

	if backend.SupportsFileBinding() {
		for _, f := range p.Files {
			binds = append(binds, container.Bind{Source: f.Realpath, Target: f.Realpath})
		}
		return binds, preloadPaths, nil
	}

	fileStage := filepath.Join(stagingDir, "files")
	if err := os.MkdirAll(fileStage, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "execute: creating file staging directory")
	}
	for _, f := range p.Files {
		target := filepath.Join(fileStage, filepath.Base(f.Realpath))
		if err := os.Symlink(f.Realpath, target); err != nil && !os.IsExist(err) {
			return nil, nil, errors.Wrapf(err, "execute: staging file %s", f.Realpath)
		}
	}
	if len(p.Files) > 0 {
		binds = append(binds, container.Bind{Source: fileStage, Target: filepath.Join(containerDir, "files")})
	}
	return binds, preloadPaths, nil
}

// filteredEnvKeys are stripped from the container's environment before
// C4.Execute (spec 4.9 step 5's "configurable filter list"); these are
// host-local values that would be meaningless or actively wrong inside
// the container.
var filteredEnvKeys = map[string]struct{}{
	"LD_LIBRARY_PATH": {},
	"LD_PRELOAD":      {},
	"PYTHONPATH":      {},
}

func filterEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if _, filtered := filteredEnvKeys[key]; filtered {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func backendEnvVar(b profile.Backend) string {
	switch b {
	case profile.Apptainer:
		return "E4S_CL_APPTAINER_EXEC_OPTIONS"
	case profile.Singularity:
		return "E4S_CL_SINGULARITY_EXEC_OPTIONS"
	case profile.Docker:
		return "E4S_CL_DOCKER_OPTIONS"
	case profile.Podman:
		return "E4S_CL_PODMAN_RUN_OPTIONS"
	case profile.Shifter:
		return "E4S_CL_SHIFTER_OPTIONS"
	default:
		return ""
	}
}
