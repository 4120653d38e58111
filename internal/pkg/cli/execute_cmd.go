package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/E4S-Project/e4s-cl/internal/app/e4scl"
)

var executeFlags struct {
	profileName string
	from        string
	dryRun      bool
}

// executeCmd is C9's entrypoint, spawned once per rank by the launcher
// that "launch" re-exec'd (spec 4.8 step 4/4.9). It is never meant to be
// typed by a user directly, hence the leading underscores and the
// Hidden flag.
var executeCmd = &cobra.Command{
	Use:    "__execute [flags] -- PROGRAM [ARGS...]",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		code, err := e4scl.Execute(cmd.Context(), store, e4scl.ExecuteRequest{
			ProfileName: executeFlags.profileName,
			From:        executeFlags.from,
			Command:     args,
			Env:         os.Environ(),
			Cfg:         cfg,
			DryRun:      executeFlags.dryRun,
		})
		if err != nil {
			return err
		}
		os.Exit(code)
		return nil
	},
}

func init() {
	f := executeCmd.Flags()
	f.StringVar(&executeFlags.profileName, "profile", "", "profile to execute under")
	f.StringVar(&executeFlags.from, "from", "", "MPI family to translate from")
	f.BoolVar(&executeFlags.dryRun, "dry-run", false, "print resolved binds and the entry script instead of running")
	f.SetInterspersed(false)

	rootCmd.AddCommand(executeCmd)
}
