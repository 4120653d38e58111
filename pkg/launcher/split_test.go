package launcher

import "testing"

func eq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSplitExplicitBoundary(t *testing.T) {
	got, warnings, err := Split([]string{"mpirun", "-n", "4", "--", "a.out", "-x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if got.Launcher != "mpirun" || !eq(got.LauncherArgs, []string{"-n", "4"}) || !eq(got.Program, []string{"a.out", "-x"}) {
		t.Fatalf("unexpected split: %+v", got)
	}
}

func TestSplitUnknownFlagStartsProgram(t *testing.T) {
	got, warnings, err := Split([]string{"mpirun", "-n", "4", "--xyz", "a.out"})
	if err != nil {
		t.Fatal(err)
	}
	if !eq(got.LauncherArgs, []string{"-n", "4"}) || !eq(got.Program, []string{"--xyz", "a.out"}) {
		t.Fatalf("unexpected split: %+v", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestSplitIdempotent(t *testing.T) {
	argv := []string{"mpirun", "-n", "4", "--xyz", "a.out"}
	first, _, err := Split(argv)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := Split(first.Reassemble())
	if err != nil {
		t.Fatal(err)
	}
	if !eq(first.LauncherArgs, second.LauncherArgs) || !eq(first.Program, second.Program) {
		t.Fatalf("split is not idempotent: %+v vs %+v", first, second)
	}
}

func TestSplitUnknownLauncher(t *testing.T) {
	got, _, err := Split([]string{"custom-launcher", "--foo", "a.out"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.LauncherArgs) != 0 || !eq(got.Program, []string{"--foo", "a.out"}) {
		t.Fatalf("unexpected split for unknown launcher: %+v", got)
	}
}

func TestSplitSrunUsesDashN(t *testing.T) {
	f, ok := Lookup("srun")
	if !ok || f.ProcessCountFlag != "-n" {
		t.Fatalf("expected srun to use -n, got %+v ok=%v", f, ok)
	}
	f2, ok := Lookup("mpirun")
	if !ok || f2.ProcessCountFlag != "-np" {
		t.Fatalf("expected mpirun to use -np, got %+v ok=%v", f2, ok)
	}
}
