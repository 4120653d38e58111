package resolve

import (
	"sort"
	"strings"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

// TieBreak implements the host/container library tie-break table of spec
// section 4.1. It is run by C9 once the container's own library set is
// known (read from the container's ldconfig cache), and returns the subset
// of hostLibs that should actually be bind-mounted, plus an informational
// note for every soname resolved in favor of the container's own copy.
func TieBreak(hostLibs []pathrecord.Record, containerLibs map[string]pathrecord.Record) ([]pathrecord.Record, []string) {
	var (
		bind []pathrecord.Record
		keep []string
	)

	for _, host := range hostLibs {
		key := host.Key()
		container, inContainer := containerLibs[key]
		if !inContainer {
			// Library present only on host.
			bind = append(bind, host)
			continue
		}

		switch compareGlibc(host.GlibcVersions, container.GlibcVersions) {
		case 1: // host strictly newer
			bind = append(bind, host)
		case -1: // container strictly newer
			keep = append(keep, key+": keeping container copy (newer GLIBC symbol set)")
		default: // same version
			bind = append(bind, host)
		}
	}

	return bind, keep
}

// compareGlibc returns 1 if a is newer than b, -1 if b is newer, 0 if they
// compare equal. "Newer" is first tried as set containment (one set
// strictly includes the other); if neither contains the other, the
// lexicographically greatest GLIBC_x.y symbol decides.
func compareGlibc(a, b []string) int {
	as := toSet(a)
	bs := toSet(b)

	if supersetOf(as, bs) && len(as) > len(bs) {
		return 1
	}
	if supersetOf(bs, as) && len(bs) > len(as) {
		return -1
	}
	if sameSet(as, bs) {
		return 0
	}

	am, bm := maxVersion(a), maxVersion(b)
	switch {
	case am == "" && bm == "":
		return 0
	case am == "":
		return -1
	case bm == "":
		return 1
	case lessGlibc(bm, am):
		return 1
	case lessGlibc(am, bm):
		return -1
	default:
		return 0
	}
}

func toSet(vs []string) map[string]struct{} {
	s := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

func supersetOf(a, b map[string]struct{}) bool {
	for k := range b {
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}

func sameSet(a, b map[string]struct{}) bool {
	return len(a) == len(b) && supersetOf(a, b)
}

// maxVersion returns the lexicographically greatest GLIBC_x.y string,
// comparing numeric components rather than raw bytes so that GLIBC_2.9 <
// GLIBC_2.17.
func maxVersion(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	sorted := append([]string(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool {
		return lessGlibc(sorted[i], sorted[j])
	})
	return sorted[len(sorted)-1]
}

func lessGlibc(a, b string) bool {
	pa := strings.TrimPrefix(a, "GLIBC_")
	pb := strings.TrimPrefix(b, "GLIBC_")
	na := strings.Split(pa, ".")
	nb := strings.Split(pb, ".")
	for i := 0; i < len(na) && i < len(nb); i++ {
		if na[i] != nb[i] {
			return numeric(na[i]) < numeric(nb[i])
		}
	}
	return len(na) < len(nb)
}

func numeric(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
