package entryscript

import "testing"

func TestSynthesizeDirectExec(t *testing.T) {
	out, err := Synthesize(Request{
		HostLibDir: "/.e4s-cl/hostlibs",
		Command:    []string{"/usr/bin/a.out", "-x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out, "export LD_LIBRARY_PATH") {
		t.Fatalf("missing LD_LIBRARY_PATH export: %s", out)
	}
	if !contains(out, "exec") || !contains(out, "a.out") {
		t.Fatalf("missing exec of user command: %s", out)
	}
}

func TestSynthesizeWithSource(t *testing.T) {
	out, err := Synthesize(Request{
		HostLibDir: "/.e4s-cl/hostlibs",
		Source:     "/home/user/setup.sh",
		Command:    []string{"/usr/bin/a.out"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out, "setup.sh") {
		t.Fatalf("missing sourced setup script: %s", out)
	}
}

func TestSynthesizeWithWi4mpi(t *testing.T) {
	out, err := Synthesize(Request{
		HostLibDir:       "/.e4s-cl/hostlibs",
		Wi4mpiRoot:       "/opt/wi4mpi",
		Wi4mpiFrom:       "openmpi",
		Wi4mpiTo:         "mpich",
		Wi4mpiWrapperBin: "/opt/wi4mpi/bin/wi4mpi",
		Command:          []string{"/usr/bin/a.out"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out, "WI4MPI_ROOT") || !contains(out, "WI4MPI_FROM") {
		t.Fatalf("missing wi4mpi exports: %s", out)
	}
}

func TestSynthesizeEmptyCommandErrors(t *testing.T) {
	if _, err := Synthesize(Request{HostLibDir: "/x"}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
