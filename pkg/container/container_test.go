package container

import (
	"context"
	"testing"

	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

func TestBindSpec(t *testing.T) {
	if got := bindSpec(Bind{Source: "/a", Target: "/b"}); got != "/a:/b" {
		t.Fatalf("unexpected bind spec: %q", got)
	}
	if got := bindSpec(Bind{Source: "/a", Target: "/b", Mode: "ro"}); got != "/a:/b:ro" {
		t.Fatalf("unexpected bind spec: %q", got)
	}
}

func TestShifterDoesNotSupportFileBinding(t *testing.T) {
	b, err := New(profile.Shifter)
	if err != nil {
		t.Fatal(err)
	}
	if b.SupportsFileBinding() {
		t.Fatal("shifter must not support per-file binding (spec 8 scenario 6)")
	}
}

func TestOtherBackendsSupportFileBinding(t *testing.T) {
	for _, name := range []profile.Backend{profile.Apptainer, profile.Singularity, profile.Docker, profile.Podman, profile.NoBackend} {
		b, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		if !b.SupportsFileBinding() {
			t.Fatalf("%s should support per-file binding", name)
		}
	}
}

func TestNoneBackendExecutesCommand(t *testing.T) {
	b := newNoneBackend()
	code, err := b.Execute(context.Background(), ExecRequest{
		Command: []string{"/bin/true"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(profile.Backend("bogus")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
