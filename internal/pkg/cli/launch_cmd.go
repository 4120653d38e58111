package cli

import (
	"github.com/spf13/cobra"

	"github.com/E4S-Project/e4s-cl/internal/app/e4scl"
	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/pkg/container"
	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

var launchFlags struct {
	profileName string
	image       string
	backend     string
	libraries   []string
	files       []string
	source      string
	wi4mpi      string
	from        string
	dryRun      bool
}

var launchCmd = &cobra.Command{
	Use:                "launch [flags] LAUNCHER [--] PROGRAM [ARGS...]",
	Short:              "Run an MPI program inside a container",
	DisableFlagsInUseLine: true,
	Args:               cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		name := launchFlags.profileName
		if name == "" {
			name, err = store.Selected()
			if err != nil {
				return err
			}
		}
		if name == "" {
			return errs.NewUserError("pass --profile or select one; --image and the other profile flags only override fields of a named profile", "launch: no profile selected")
		}

		if name != "" {
			if err := applyOverrides(store, name); err != nil {
				return err
			}
		}

		p, _, err := store.Get(name)
		if err != nil {
			return errs.NewUserError("", "launch: %s", err)
		}

		backend, err := container.New(p.Backend)
		if err != nil {
			return errs.NewUserError("", "launch: %s", err)
		}

		return e4scl.Launch(cmd.Context(), store, backend, e4scl.LaunchRequest{
			Argv:        args,
			ProfileName: name,
			From:        launchFlags.from,
			DryRun:      launchFlags.dryRun,
		})
	},
}

// applyOverrides persists --image/--backend/--libraries/--files/--source/
// --wi4mpi onto the named profile before launch reads it, so that the
// rest of the pipeline (C8/C9) only ever deals with one profile record
// rather than a separate "explicit flags" code path (spec 4.8 step 2).
func applyOverrides(store *profile.Store, name string) error {
	if launchFlags.image == "" && launchFlags.backend == "" && launchFlags.source == "" &&
		launchFlags.wi4mpi == "" && len(launchFlags.libraries) == 0 && len(launchFlags.files) == 0 {
		return nil
	}
	return store.Update(name, profile.UserLevel, func(p *profile.Profile) error {
		if launchFlags.image != "" {
			p.Image = launchFlags.image
		}
		if launchFlags.backend != "" {
			p.Backend = profile.Backend(launchFlags.backend)
		}
		if launchFlags.source != "" {
			p.Source = launchFlags.source
		}
		if launchFlags.wi4mpi != "" {
			p.Wi4mpi = launchFlags.wi4mpi
		}
		if len(launchFlags.libraries) > 0 {
			p.MergeLibraries(classifyPaths(launchFlags.libraries, pathrecord.Library))
		}
		if len(launchFlags.files) > 0 {
			p.MergeFiles(classifyPaths(launchFlags.files, pathrecord.File))
		}
		return nil
	})
}

func init() {
	f := launchCmd.Flags()
	f.StringVar(&launchFlags.profileName, "profile", "", "profile to launch with")
	f.StringVar(&launchFlags.image, "image", "", "container image identifier")
	f.StringVar(&launchFlags.backend, "backend", "", "container backend name")
	f.StringSliceVar(&launchFlags.libraries, "libraries", nil, "extra host library paths")
	f.StringSliceVar(&launchFlags.files, "files", nil, "extra host file paths")
	f.StringVar(&launchFlags.source, "source", "", "setup script sourced before the user command")
	f.StringVar(&launchFlags.wi4mpi, "wi4mpi", "", "path to a pre-built translation layer")
	f.StringVar(&launchFlags.from, "from", "", "force MPI translation from the named family")
	f.BoolVar(&launchFlags.dryRun, "dry-run", false, "print resolved binds and the entry script instead of running")

	// Options are only recognized before the launcher token; everything
	// from there on belongs to the launcher and the user program, never
	// to e4s-cl itself (spec section 6's CLI surface).
	f.SetInterspersed(false)

	rootCmd.AddCommand(launchCmd)
}
