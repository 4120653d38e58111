package resolve

import (
	"strings"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

// ParseLdconfigCache parses the output of "ldconfig -p" (as captured
// in-container by C4.ProbeLdconfig) into a soname -> Record map suitable
// for TieBreak's containerLibs argument (spec section 4.9 step 3). Only
// the soname and resolved path are known this way; GLIBC symbol versions
// are left empty, which is conservative: TieBreak then favors the host
// copy whenever it declares any versioned symbols at all.
func ParseLdconfigCache(output string) map[string]pathrecord.Record {
	cache := map[string]pathrecord.Record{}
	for _, line := range strings.Split(output, "\n") {
		arrow := strings.Index(line, "=>")
		if arrow < 0 {
			continue
		}
		namePart := line[:arrow]
		if paren := strings.Index(namePart, "("); paren >= 0 {
			namePart = namePart[:paren]
		}
		name := strings.TrimSpace(namePart)
		path := strings.TrimSpace(line[arrow+2:])
		if name == "" || path == "" {
			continue
		}
		cache[name] = pathrecord.Record{
			Kind:     pathrecord.Library,
			HostPath: path,
			Realpath: path,
			Soname:   name,
		}
	}
	return cache
}
