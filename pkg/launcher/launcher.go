// Package launcher implements the launcher adapter (C3): splitting a user
// command line into {launcher, launcher_args, program}, per-family, so
// that C8 can rewrite the program portion into a re-exec of itself.
package launcher

import "path/filepath"

// Split is the result of splitting a user command line.
type Split struct {
	Launcher     string
	LauncherArgs []string
	Program      []string
}

// Reassemble rebuilds an explicit-boundary argv from a Split: launcher,
// launcher args, "--", program. Splitting this output again always
// reproduces the same Split (spec 8's idempotence property), since "--"
// is an unconditional boundary.
func (s Split) Reassemble() []string {
	out := append([]string{s.Launcher}, s.LauncherArgs...)
	out = append(out, "--")
	return append(out, s.Program...)
}

// ArgArity describes how many positional tokens a launcher flag consumes.
type ArgArity int

const (
	// Arity0 is a boolean flag, e.g. "--oversubscribe".
	Arity0 ArgArity = iota
	// Arity1 is a flag taking exactly one value, e.g. "-n 4".
	Arity1
)

// Family describes one launcher's argument grammar.
type Family struct {
	Name string
	// Basenames recognizes the launcher regardless of its full path,
	// e.g. "mpirun", "mpiexec.hydra".
	Basenames []string
	// Options maps a known flag spelling to its arity. Flags not
	// present here are treated as unknown (spec 8 scenario 2).
	Options map[string]ArgArity
	// ProcessCountFlag is the flag this family uses to set the rank
	// count (spec 6's launcher conventions: "-n" for srun, "-np"
	// otherwise). Nothing in this module currently reads it.
	ProcessCountFlag string
}

// Families is the built-in table of recognized launcher families.
var Families = []Family{mpirunFamily, srunFamily, aprunFamily, jsrunFamily}

// Lookup returns the Family matching argv[0]'s basename, and whether one
// was found.
func Lookup(launcherPath string) (Family, bool) {
	base := filepath.Base(launcherPath)
	for _, f := range Families {
		for _, b := range f.Basenames {
			if b == base {
				return f, true
			}
		}
	}
	return Family{}, false
}
