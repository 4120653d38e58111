// Package cli assembles the e4s-cl command tree: init, launch, profile and
// its subcommands, and the hidden __execute worker entrypoint (spec
// section 6). Each command is a package-level *cobra.Command that
// self-registers with rootCmd from an init() function, the way the
// teacher's own CLI packages are organized.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/E4S-Project/e4s-cl/internal/pkg/buildcfg"
	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
)

var rootCmd = &cobra.Command{
	Use:           "e4s-cl",
	Short:         "Run MPI applications inside containers without rebuilding them",
	Long:          "e4s-cl launches MPI programs inside a container image, reconciling the host's MPI libraries with the ones built into the image so the two don't have to match exactly.",
	Version:       buildcfg.PACKAGE_VERSION,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verboseFlag, debugFlag, quietFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress all but error output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		switch {
		case debugFlag:
			sylog.SetLevel(int(sylog.DebugLevel))
		case verboseFlag:
			sylog.SetLevel(int(sylog.VerboseLevel))
		case quietFlag:
			sylog.SetLevel(int(sylog.ErrorLevel))
		}
	}
}

// Execute runs the command tree and returns the error RunE produced, if
// any, so main can translate it into the right exit code via
// internal/pkg/errs.
func Execute() error {
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}
