package resolve

import (
	"testing"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

func TestClassifyIdempotent(t *testing.T) {
	policy := Policy{ContainerOnlyPrefixes: []string{"/.e4s-cl"}}

	paths := []string{"/etc/hostname", "/tmp", "/.e4s-cl/entry"}
	set1, _, err := Classify(paths, policy)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	var collected []string
	for _, r := range set1.Libraries {
		collected = append(collected, r.HostPath)
	}
	for _, r := range set1.Files {
		collected = append(collected, r.HostPath)
	}
	for _, r := range set1.Directories {
		collected = append(collected, r.HostPath)
	}

	set2, _, err := Classify(collected, policy)
	if err != nil {
		t.Fatalf("re-classify: %v", err)
	}

	if len(set2.Libraries) != len(set1.Libraries) ||
		len(set2.Files) != len(set1.Files) ||
		len(set2.Directories) != len(set1.Directories) {
		t.Fatalf("classify is not idempotent: %+v vs %+v", set1, set2)
	}
}

func TestClassifyDropsContainerOnlyPrefix(t *testing.T) {
	set, warnings, err := Classify([]string{"/.e4s-cl/entry"}, Policy{
		ContainerOnlyPrefixes: []string{"/.e4s-cl"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Files)+len(set.Libraries)+len(set.Directories) != 0 {
		t.Fatalf("expected container-only path to be dropped, got %+v", set)
	}
	if len(warnings) != 0 {
		t.Fatalf("container-only prefix drop must be silent, got %+v", warnings)
	}
}

func TestClassifyWarnsOnMissingPath(t *testing.T) {
	_, warnings, err := Classify([]string{"/does/not/exist/anywhere"}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestTieBreakHostOnlyBinds(t *testing.T) {
	host := []pathrecord.Record{{Kind: pathrecord.Library, Soname: "libmpi.so.12", Realpath: "/usr/lib/libmpi.so.12"}}
	bind, _ := TieBreak(host, map[string]pathrecord.Record{})
	if len(bind) != 1 {
		t.Fatalf("expected host-only library to be bound, got %v", bind)
	}
}

func TestTieBreakContainerNewerIsKept(t *testing.T) {
	host := []pathrecord.Record{{
		Kind: pathrecord.Library, Soname: "libc.so.6",
		GlibcVersions: []string{"GLIBC_2.17"},
	}}
	container := map[string]pathrecord.Record{
		"libc.so.6": {
			Kind: pathrecord.Library, Soname: "libc.so.6",
			GlibcVersions: []string{"GLIBC_2.17", "GLIBC_2.34"},
		},
	}
	bind, kept := TieBreak(host, container)
	if len(bind) != 0 {
		t.Fatalf("expected no host bind when container is newer, got %v", bind)
	}
	if len(kept) != 1 {
		t.Fatalf("expected a kept-container note, got %v", kept)
	}
}

func TestTieBreakHostNewerBinds(t *testing.T) {
	host := []pathrecord.Record{{
		Kind: pathrecord.Library, Soname: "libc.so.6",
		GlibcVersions: []string{"GLIBC_2.17", "GLIBC_2.34"},
	}}
	container := map[string]pathrecord.Record{
		"libc.so.6": {Kind: pathrecord.Library, Soname: "libc.so.6", GlibcVersions: []string{"GLIBC_2.17"}},
	}
	bind, _ := TieBreak(host, container)
	if len(bind) != 1 {
		t.Fatalf("expected host library to be bound when host is newer, got %v", bind)
	}
}

func TestTieBreakSameVersionBinds(t *testing.T) {
	host := []pathrecord.Record{{Kind: pathrecord.Library, Soname: "libc.so.6", GlibcVersions: []string{"GLIBC_2.17"}}}
	container := map[string]pathrecord.Record{
		"libc.so.6": {Kind: pathrecord.Library, Soname: "libc.so.6", GlibcVersions: []string{"GLIBC_2.17"}},
	}
	bind, kept := TieBreak(host, container)
	if len(bind) != 1 || len(kept) != 0 {
		t.Fatalf("expected same-version host library to be bound, got bind=%v kept=%v", bind, kept)
	}
}
