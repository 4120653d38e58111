//go:build linux && amd64

package trace

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestTraceObservesOpenedPath(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := Trace(ctx, []string{"/bin/cat", "/etc/hostname"}, os.Environ(), Options{})
	if err == ErrPtraceUnavailable {
		t.Skip("ptrace not permitted in this environment")
	}
	if err != nil {
		t.Fatalf("trace: %v", err)
	}

	found := false
	for _, p := range result.ObservedPaths {
		if strings.Contains(p, "/etc/hostname") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected /etc/hostname among observed paths, got %v", result.ObservedPaths)
	}
}

func TestTraceEmptyArgv(t *testing.T) {
	if _, err := Trace(context.Background(), nil, nil, Options{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}
