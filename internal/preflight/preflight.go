package preflight

import (
	"context"

	"github.com/leafcam/leafcam/internal/config"
)

// MinFreeBytes is the free space below which the disk check fails.
const MinFreeBytes = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory failures are reported but do not block a session.
	Advisory bool
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Expert directory", cfg.Paths.ExpertDir),
		CheckDiskSpace("Output disk", cfg.Paths.OutputDir, MinFreeBytes),
		CheckSidecar(ctx, cfg.Sidecar.Socket),
	}
}

// Blocking returns the failed results that must stop a session from starting.
func Blocking(results []Result) []Result {
	var out []Result
	for _, r := range Failed(results) {
		if !r.Advisory {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
