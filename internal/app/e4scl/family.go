// Package e4scl wires C1–C6 into the three user-facing operations of spec
// section 4: detect (C7), launch (C8), and execute (C9).
package e4scl

import "regexp"

// familyPattern is one row of the version-string -> family table of spec
// section 4.8/8 scenario 3.
type familyPattern struct {
	re     *regexp.Regexp
	family string
}

// familyTable is ordered; the first pattern to match wins. "intel" and
// "cray mpich"/"hydra" both fold into "mpich" per spec 4.8, since Intel
// MPI and Cray's MPICH build are both MPICH derivatives at the ABI level
// that matters for translation-layer selection.
var familyTable = []familyPattern{
	{regexp.MustCompile(`(?i)open\s*mpi`), "openmpi"},
	{regexp.MustCompile(`(?i)mvapich`), "mvapich"},
	{regexp.MustCompile(`(?i)hydra`), "mpich"},
	{regexp.MustCompile(`(?i)cray\s*mpich`), "mpich"},
	{regexp.MustCompile(`(?i)intel`), "mpich"},
	{regexp.MustCompile(`(?i)mpich`), "mpich"},
}

// MPIFamily maps a raw "--version" output string to the family name used
// by the translation-layer decision in C8. Unknown or empty input maps to
// "" (spec 8 scenario 3).
func MPIFamily(versionString string) string {
	for _, p := range familyTable {
		if p.re.MatchString(versionString) {
			return p.family
		}
	}
	return ""
}
