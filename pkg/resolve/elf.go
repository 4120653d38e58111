package resolve

import (
	"debug/elf"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// elfInfo is everything the classifier and tie-break need out of an ELF
// shared object: its own soname, its declared dependencies, and the set of
// GLIBC_x.y versioned symbols it exports (used to compare two copies of the
// same soname for "newer").
type elfInfo struct {
	soname  string
	needed  []string
	glibc   []string
	isSO    bool
}

// readELF opens path and extracts elfInfo. It returns (info, false, nil) for
// a file that parses as ELF but isn't a dynamic shared object (e.g. a static
// binary), and a non-nil error only on an actual parse failure — callers
// treat that as a Warning, not a fatal condition, per spec 4.1.
func readELF(path string) (elfInfo, bool, error) {
	f, err := elf.Open(path)
	if err != nil {
		// Not an ELF file at all is not an error here: most traced paths
		// are plain files, not libraries.
		if isNotELF(err) {
			return elfInfo{}, false, nil
		}
		return elfInfo{}, false, errors.Wrapf(err, "parsing ELF header of %s", path)
	}
	defer f.Close()

	if f.Type != elf.ET_DYN {
		return elfInfo{}, false, nil
	}

	info := elfInfo{isSO: true}

	if sonames, err := f.DynString(elf.DT_SONAME); err == nil && len(sonames) > 0 {
		info.soname = sonames[0]
	}

	needed, err := f.DynString(elf.DT_NEEDED)
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return elfInfo{}, false, errors.Wrapf(err, "reading DT_NEEDED of %s", path)
	}
	info.needed = needed

	if syms, err := f.DynamicSymbols(); err == nil {
		versions := map[string]struct{}{}
		for _, s := range syms {
			if strings.HasPrefix(s.Version, "GLIBC_") {
				versions[s.Version] = struct{}{}
			}
		}
		for v := range versions {
			info.glibc = append(info.glibc, v)
		}
		sort.Strings(info.glibc)
	}

	return info, true, nil
}

func isNotELF(err error) bool {
	_, ok := err.(*elf.FormatError)
	return ok
}

// rpathSearchDirs extracts DT_RPATH/DT_RUNPATH entries from a dependent
// library, expanding $ORIGIN relative to the library's own directory, per
// the dynamic linker search order used in library completion.
func rpathSearchDirs(path string) []string {
	f, err := elf.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var dirs []string
	for _, tag := range []elf.DynTag{elf.DT_RUNPATH, elf.DT_RPATH} {
		vals, err := f.DynString(tag)
		if err != nil {
			continue
		}
		for _, v := range vals {
			dirs = append(dirs, strings.Split(v, ":")...)
		}
	}
	return dirs
}
