package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/E4S-Project/e4s-cl/internal/app/e4scl"
	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

var initFlags struct {
	system       string
	mpi          string
	launcherBin  string
	launcherArgs string
	image        string
	backend      string
	source       string
	profileName  string
	wi4mpi       string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and populate a profile in one step",
	Long:  "init creates a profile (if it doesn't already exist), runs profile detect against --mpi/--launcher, and applies every other flag as an edit, selecting the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}

		name := initFlags.profileName
		if name == "" {
			name = "default"
		}

		if _, _, err := store.Get(name); err != nil {
			if _, err := store.Create(name, profile.UserLevel); err != nil {
				return errs.NewUserError("", "init: %s", err)
			}
		}

		err = store.Update(name, profile.UserLevel, func(p *profile.Profile) error {
			if initFlags.image != "" {
				p.Image = initFlags.image
			}
			if initFlags.backend != "" {
				p.Backend = profile.Backend(initFlags.backend)
			}
			if initFlags.source != "" {
				p.Source = initFlags.source
			}
			if initFlags.wi4mpi != "" {
				p.Wi4mpi = initFlags.wi4mpi
			}
			return nil
		})
		if err != nil {
			return errs.NewUserError("", "init: %s", err)
		}

		if initFlags.mpi != "" || initFlags.launcherBin != "" {
			probeArgv := e4scl.ProbeArgv(initFlags.launcherBin)
			if initFlags.mpi != "" {
				probeArgv = []string{initFlags.launcherBin, initFlags.mpi}
				if initFlags.launcherBin == "" {
					probeArgv = []string{"mpirun", initFlags.mpi}
				}
			}
			if initFlags.launcherArgs != "" {
				withArgs := append([]string{probeArgv[0]}, strings.Fields(initFlags.launcherArgs)...)
				probeArgv = append(withArgs, probeArgv[1:]...)
			}
			if _, err := e4scl.Detect(cmd.Context(), store, e4scl.DetectRequest{
				Command: probeArgv,
				Profile: name,
				Policy:  defaultPolicy(),
				Env:     os.Environ(),
			}); err != nil {
				return err
			}
		}

		if err := store.Select(name); err != nil {
			return errs.NewUserError("", "init: %s", err)
		}
		return nil
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initFlags.system, "system", "", "target system identifier")
	f.StringVar(&initFlags.mpi, "mpi", "", "path to a sample MPI program to trace")
	f.StringVar(&initFlags.launcherBin, "launcher", "", "launcher binary to use for detection")
	f.StringVar(&initFlags.launcherArgs, "launcher_args", "", "extra arguments passed to the launcher during detection")
	f.StringVar(&initFlags.image, "image", "", "container image identifier")
	f.StringVar(&initFlags.backend, "backend", "", "container backend name")
	f.StringVar(&initFlags.source, "source", "", "setup script sourced before the user command")
	f.StringVar(&initFlags.profileName, "profile", "", "profile to create/populate (default \"default\")")
	f.StringVar(&initFlags.wi4mpi, "wi4mpi", "", "path to a pre-built translation layer")
	rootCmd.AddCommand(initCmd)
}
