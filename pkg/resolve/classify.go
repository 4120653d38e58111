// Package resolve implements the path classifier & library resolver (C1):
// turning a bag of raw paths observed by the tracer into a disjoint
// {libraries, files, directories} set, completing the library set by
// walking ELF DT_NEEDED graphs to a fixed point, and applying the
// host/container tie-break described in spec section 4.1.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

// Policy parametrizes classification, per the C1 contract.
type Policy struct {
	// HostRootfs is usually "/"; kept explicit so tests and
	// container-probe invocations can sandbox it.
	HostRootfs string
	// ContainerOnlyPrefixes are paths known to exist only inside the
	// target container (e.g. "/.e4s-cl") and are dropped unconditionally
	// rather than reported as missing.
	ContainerOnlyPrefixes []string
	// LDLibraryPath is the LD_LIBRARY_PATH captured at detect time,
	// consulted during library completion after RPATH/RUNPATH.
	LDLibraryPath []string
	// SystemSearchDirs are the default dynamic linker search
	// directories (e.g. /lib64, /usr/lib64).
	SystemSearchDirs []string
	// LdconfigCache maps soname -> resolved path, standing in for the
	// host's ldconfig -p cache.
	LdconfigCache map[string]string
}

// Warning reports a path the classifier could not use, and why; it never
// aborts classification (spec 4.1 failure semantics).
type Warning struct {
	Path   string
	Reason string
}

// Set is a disjoint {libraries, files, directories} triple satisfying the
// invariants of spec section 3.
type Set struct {
	Libraries   []pathrecord.Record
	Files       []pathrecord.Record
	Directories []pathrecord.Record
}

// Classify applies the classification rules of spec 4.1 to a bag of raw
// observed paths, then completes the library set to a DT_NEEDED fixed
// point. It is idempotent: Classify(paths) and Classify(collect(Classify(paths)))
// produce the same Set, satisfying the universal invariant of spec 8.
func Classify(paths []string, policy Policy) (Set, []Warning, error) {
	var (
		set      Set
		warnings []Warning
		seen     = map[string]struct{}{} // by Key()
	)

	add := func(r pathrecord.Record) {
		k := r.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		switch r.Kind {
		case pathrecord.Library:
			set.Libraries = append(set.Libraries, r)
		case pathrecord.Directory:
			set.Directories = append(set.Directories, r)
		default:
			set.Files = append(set.Files, r)
		}
	}

	for _, p := range paths {
		rec, warn, ok := classifyOne(p, policy)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		if ok {
			add(rec)
		}
	}

	// Fixed-point completion: resolve DT_NEEDED for every library already
	// in the set, adding any dependency not yet present, until a pass
	// adds nothing new. The work list is a set (seen), not a stack, so
	// cyclic DT_NEEDED graphs (spec 9) terminate naturally.
	work := append([]pathrecord.Record(nil), set.Libraries...)
	for len(work) > 0 {
		var next []pathrecord.Record
		for _, lib := range work {
			for _, soname := range lib.Needed {
				if _, ok := seen[soname]; ok {
					continue
				}
				resolved, warn := resolveNeeded(soname, lib.Realpath, policy)
				if warn != nil {
					warnings = append(warnings, *warn)
					continue
				}
				if resolved == nil {
					continue
				}
				add(*resolved)
				next = append(next, *resolved)
			}
		}
		work = next
	}

	return set, warnings, nil
}

func classifyOne(p string, policy Policy) (pathrecord.Record, *Warning, bool) {
	for _, prefix := range policy.ContainerOnlyPrefixes {
		if strings.HasPrefix(p, prefix) {
			return pathrecord.Record{}, nil, false
		}
	}

	info, err := os.Lstat(p)
	if err != nil {
		return pathrecord.Record{}, &Warning{Path: p, Reason: "does not exist on host: " + err.Error()}, false
	}

	real, err := filepath.EvalSymlinks(p)
	if err != nil {
		real = p
	}

	if info.IsDir() {
		return pathrecord.Record{Kind: pathrecord.Directory, HostPath: p, Realpath: real}, nil, true
	}

	fi, err := os.Stat(real)
	if err != nil {
		return pathrecord.Record{}, &Warning{Path: p, Reason: "unreadable after symlink resolution: " + err.Error()}, false
	}
	if fi.IsDir() {
		return pathrecord.Record{Kind: pathrecord.Directory, HostPath: p, Realpath: real}, nil, true
	}

	elfInfo, isELF, err := readELF(real)
	if err != nil {
		return pathrecord.Record{}, &Warning{Path: p, Reason: "ELF parse error: " + err.Error()}, false
	}
	if isELF && elfInfo.soname != "" {
		return pathrecord.Record{
			Kind:          pathrecord.Library,
			HostPath:      p,
			Realpath:      real,
			Soname:        elfInfo.soname,
			Needed:        elfInfo.needed,
			GlibcVersions: elfInfo.glibc,
		}, nil, true
	}
	// A dynamic library with no declared SONAME is still a library for
	// our purposes if it parsed as ET_DYN with DT_NEEDED entries;
	// otherwise it's an ordinary file (rule 4 of spec 4.1).
	if isELF && len(elfInfo.needed) > 0 {
		return pathrecord.Record{
			Kind:     pathrecord.Library,
			HostPath: p,
			Realpath: real,
			Needed:   elfInfo.needed,
			GlibcVersions: elfInfo.glibc,
		}, nil, true
	}

	return pathrecord.Record{Kind: pathrecord.File, HostPath: p, Realpath: real}, nil, true
}

// resolveNeeded searches for a DT_NEEDED soname along the dynamic linker
// search order: the dependent's own RPATH/RUNPATH, the captured
// LD_LIBRARY_PATH, the system default search dirs, then the ldconfig
// cache.
func resolveNeeded(soname, dependentPath string, policy Policy) (*pathrecord.Record, *Warning) {
	origin := filepath.Dir(dependentPath)
	searchDirs := expandOrigin(rpathSearchDirs(dependentPath), origin)
	searchDirs = append(searchDirs, policy.LDLibraryPath...)
	searchDirs = append(searchDirs, policy.SystemSearchDirs...)

	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, soname)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			rec, warn, ok := classifyOne(candidate, policy)
			if !ok {
				return nil, warn
			}
			return &rec, nil
		}
	}

	if cached, ok := policy.LdconfigCache[soname]; ok {
		rec, warn, ok := classifyOne(cached, policy)
		if !ok {
			return nil, warn
		}
		return &rec, nil
	}

	// Missing DT_NEEDED dependencies are warnings, not fatal (spec 4.1).
	return nil, &Warning{Path: soname, Reason: "unresolved DT_NEEDED of " + dependentPath}
}

func expandOrigin(dirs []string, origin string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, strings.ReplaceAll(d, "$ORIGIN", origin))
	}
	return out
}
