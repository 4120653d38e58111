package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/E4S-Project/e4s-cl/internal/app/e4scl"
	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Create and manage profiles",
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		if _, err := store.Create(args[0], profile.UserLevel); err != nil {
			return errs.NewUserError("", "profile create: %s", err)
		}
		return nil
	},
}

var profileCopyCmd = &cobra.Command{
	Use:   "copy SRC DST",
	Short: "Duplicate a profile under a new name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		if err := store.Copy(args[0], args[1]); err != nil {
			return errs.NewUserError("", "profile copy: %s", err)
		}
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return errs.NewUserError("unselect the profile first if it is currently selected", "profile delete: %s", err)
		}
		return nil
	},
}

var profileSelectCmd = &cobra.Command{
	Use:   "select NAME",
	Short: "Mark a profile as the default for launch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		if err := store.Select(args[0]); err != nil {
			return errs.NewUserError("", "profile select: %s", err)
		}
		return nil
	},
}

var profileUnselectCmd = &cobra.Command{
	Use:   "unselect",
	Short: "Clear the selected profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		return store.Unselect()
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every profile across both stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		profiles, err := store.ListAll()
		if err != nil {
			return err
		}
		selected, _ := store.Selected()
		sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
		for _, p := range profiles {
			marker := " "
			if p.Name == selected {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p.Name)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a profile's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		p, level, err := store.Get(args[0])
		if err != nil {
			return errs.NewUserError("", "profile show: %s", err)
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("# level: %s\n%s\n", level, data)
		return nil
	},
}

var editFlags struct {
	image          string
	backend        string
	source         string
	wi4mpi         string
	wi4mpiOptions  string
	addLibraries   []string
	addFiles       []string
}

var profileEditCmd = &cobra.Command{
	Use:   "edit NAME",
	Short: "Modify a profile's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		err = store.Update(args[0], profile.UserLevel, func(p *profile.Profile) error {
			if editFlags.image != "" {
				p.Image = editFlags.image
			}
			if editFlags.backend != "" {
				p.Backend = profile.Backend(editFlags.backend)
			}
			if editFlags.source != "" {
				p.Source = editFlags.source
			}
			if editFlags.wi4mpi != "" {
				p.Wi4mpi = editFlags.wi4mpi
			}
			if editFlags.wi4mpiOptions != "" {
				p.Wi4mpiOptions = editFlags.wi4mpiOptions
			}
			if len(editFlags.addLibraries) > 0 {
				p.MergeLibraries(classifyPaths(editFlags.addLibraries, pathrecord.Library))
			}
			if len(editFlags.addFiles) > 0 {
				p.MergeFiles(classifyPaths(editFlags.addFiles, pathrecord.File))
			}
			return nil
		})
		if err != nil {
			return errs.NewUserError("", "profile edit: %s", err)
		}
		return nil
	},
}

// classifyPaths builds bare Records for paths supplied directly on the
// command line (spec 8 scenario 5): no tracer or ELF introspection is
// involved here, only enough identity for Profile's dedup invariant.
func classifyPaths(paths []string, kind pathrecord.Kind) []pathrecord.Record {
	out := make([]pathrecord.Record, 0, len(paths))
	for _, p := range paths {
		out = append(out, pathrecord.Record{Kind: kind, HostPath: p, Realpath: p})
	}
	return out
}

var detectFlags struct {
	profileName string
}

var profileDetectCmd = &cobra.Command{
	Use:   "detect [-- COMMAND...]",
	Short: "Trace a sample MPI run and merge observed libraries/files into a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		name := detectFlags.profileName
		if name == "" {
			name, err = store.Selected()
			if err != nil || name == "" {
				return errs.NewUserError("pass --profile or select one first", "profile detect: no profile specified")
			}
		}
		result, err := e4scl.Detect(cmd.Context(), store, e4scl.DetectRequest{
			Command: args,
			Profile: name,
			Policy:  defaultPolicy(),
			Env:     os.Environ(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("detected %d libraries, %d files, %d directories\n",
			len(result.Added.Libraries), len(result.Added.Files), len(result.Added.Directories))
		return nil
	},
}

var dumpFlags struct {
	system bool
}

var profileDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the raw JSON document for a store level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		level := profile.UserLevel
		if dumpFlags.system {
			level = profile.SystemLevel
		}
		out, err := store.Dump(level)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var profileDiffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Show the field-by-field difference between two profiles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		a, _, err := store.Get(args[0])
		if err != nil {
			return errs.NewUserError("", "profile diff: %s", err)
		}
		b, _, err := store.Get(args[1])
		if err != nil {
			return errs.NewUserError("", "profile diff: %s", err)
		}
		changes := profile.Diff(a, b)
		if len(changes) == 0 {
			fmt.Println("profiles are identical")
			return nil
		}
		for _, c := range changes {
			fmt.Printf("%s: %q -> %q\n", c.Field, c.A, c.B)
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(
		profileCreateCmd, profileCopyCmd, profileDeleteCmd, profileEditCmd,
		profileListCmd, profileShowCmd, profileSelectCmd, profileUnselectCmd,
		profileDetectCmd, profileDumpCmd, profileDiffCmd,
	)

	f := profileEditCmd.Flags()
	f.StringVar(&editFlags.image, "image", "", "container image identifier")
	f.StringVar(&editFlags.backend, "backend", "", "container backend name")
	f.StringVar(&editFlags.source, "source", "", "setup script sourced before the user command")
	f.StringVar(&editFlags.wi4mpi, "wi4mpi", "", "path to a pre-built translation layer")
	f.StringVar(&editFlags.wi4mpiOptions, "wi4mpi-options", "", "extra options forwarded to the translation layer")
	f.StringSliceVar(&editFlags.addLibraries, "add-libraries", nil, "host library paths to add")
	f.StringSliceVar(&editFlags.addFiles, "add-files", nil, "host file paths to add")

	profileDetectCmd.Flags().StringVar(&detectFlags.profileName, "profile", "", "profile to merge detected paths into")
	profileDetectCmd.Flags().SetInterspersed(false)

	profileDumpCmd.Flags().BoolVar(&dumpFlags.system, "system", false, "dump the system store instead of the user store")
}
