//go:build !(linux && amd64)

package trace

import "context"

// trace is unimplemented on platforms without an amd64 ptrace decoder.
// e4s-cl targets Linux HPC clusters; this stub exists so the rest of the
// module still builds on a developer's non-Linux workstation.
func trace(_ context.Context, _ []string, _ []string, _ Options) (Result, error) {
	return Result{}, ErrPtraceUnavailable
}
