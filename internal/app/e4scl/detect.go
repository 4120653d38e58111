package e4scl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
	"github.com/E4S-Project/e4s-cl/pkg/launcher"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
	"github.com/E4S-Project/e4s-cl/pkg/resolve"
	"github.com/E4S-Project/e4s-cl/pkg/trace"
)

// DetectRequest carries the inputs to the Detect procedure (C7).
type DetectRequest struct {
	// Command is the sample launcher invocation; if empty, ProbeArgv
	// supplies the built-in MPI ping-pong probe (spec 4.7 step 1).
	Command []string
	// Profile is the name of the profile Detect merges its findings
	// into.
	Profile string
	Policy  resolve.Policy
	Env     []string
}

// DetectResult reports what Detect found, for the CLI layer to render.
type DetectResult struct {
	Added    resolve.Set
	Warnings []resolve.Warning
}

// Detect implements C7: trace a sample MPI invocation, classify the
// observed paths, and merge the result into the named profile.
func Detect(ctx context.Context, store *profile.Store, req DetectRequest) (DetectResult, error) {
	argv := req.Command
	if len(argv) == 0 {
		argv = ProbeArgv("")
	}

	split, warns, err := launcher.Split(argv)
	if err != nil {
		return DetectResult{}, fmt.Errorf("detect: %w", err)
	}
	for _, w := range warns {
		sylog.Warningf("%s", w)
	}

	result, err := traceAndClassify(ctx, split, req.Env, req.Policy, false)
	if err != nil {
		return DetectResult{}, err
	}

	// Retry policy (spec 4.7): an empty finding retries once with
	// verbose tracing before Detect gives up.
	if len(result.Added.Libraries) == 0 && len(result.Added.Files) == 0 {
		sylog.Infof("detect: no libraries or files observed, retrying with verbose tracing")
		result, err = traceAndClassify(ctx, split, req.Env, req.Policy, true)
		if err != nil {
			return DetectResult{}, err
		}
	}

	for _, w := range result.Warnings {
		sylog.Warningf("detect: %s: %s", w.Path, w.Reason)
	}

	err = store.Update(req.Profile, profile.UserLevel, func(p *profile.Profile) error {
		p.MergeLibraries(result.Added.Libraries)
		p.MergeFiles(result.Added.Files)
		p.MergeFiles(result.Added.Directories)
		return nil
	})
	if err != nil {
		return DetectResult{}, fmt.Errorf("detect: merging into profile %q: %w", req.Profile, err)
	}

	return result, nil
}

func traceAndClassify(ctx context.Context, split launcher.Split, env []string, policy resolve.Policy, verbose bool) (DetectResult, error) {
	traced, err := trace.Trace(ctx, split.Reassemble(), env, trace.Options{Verbose: verbose})
	if err != nil {
		if errors.Is(err, trace.ErrPtraceUnavailable) {
			return DetectResult{}, errs.NewEnvironmentError(
				"tracing is unavailable on this platform; build the profile manually with \"profile edit --add-libraries/--add-files\" instead",
				"detect: %s", err,
			)
		}
		return DetectResult{}, fmt.Errorf("detect: %w", err)
	}

	set, warnings, err := resolve.Classify(dedupe(traced.ObservedPaths), policy)
	if err != nil {
		return DetectResult{}, fmt.Errorf("detect: classify: %w", err)
	}

	return DetectResult{Added: set, Warnings: warnings}, nil
}

func dedupe(paths []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
