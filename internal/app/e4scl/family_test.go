package e4scl

import "testing"

func TestMPIFamily(t *testing.T) {
	cases := []struct {
		version string
		want    string
	}{
		{"Open MPI v4.1.2", "openmpi"},
		{"HYDRA build details:", "mpich"},
		{"MVAPICH2 Version 2.3.7", "mvapich"},
		{"", ""},
		{"some unrelated tool", ""},
	}
	for _, c := range cases {
		if got := MPIFamily(c.version); got != c.want {
			t.Errorf("MPIFamily(%q) = %q, want %q", c.version, got, c.want)
		}
	}
}

func TestFilterEnv(t *testing.T) {
	in := []string{"PATH=/bin", "LD_LIBRARY_PATH=/lib", "LD_PRELOAD=/x.so", "FOO=bar"}
	out := filterEnv(in)
	want := []string{"PATH=/bin", "FOO=bar"}
	if len(out) != len(want) {
		t.Fatalf("filterEnv(%v) = %v, want %v", in, out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("filterEnv(%v) = %v, want %v", in, out, want)
		}
	}
}
